// Display client: subscribes to one match and logs every snapshot it
// receives. Useful for smoke-testing a gateway and as a reference consumer of
// the matchsync package.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorecast/go/clients/matchsync"
	"github.com/mcdev12/scorecast/go/internal/match"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "websocket endpoint of the scorecast server")
	matchID := flag.String("match", "default", "match ID to watch")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	client, err := matchsync.New(matchsync.Config{
		URL:     *url,
		MatchID: *matchID,
		OnUpdate: func(cfg match.MatchConfig) {
			log.Info().
				Str("match_id", cfg.MatchID).
				Str("layout", string(cfg.Layout)).
				Str("team1", cfg.Team1.Name).
				Int("team1_set", cfg.Team1.SetScore).
				Int("team1_match", cfg.Team1.MatchScore).
				Bool("team1_serving", cfg.Team1.Serving).
				Str("team2", cfg.Team2.Name).
				Int("team2_set", cfg.Team2.SetScore).
				Int("team2_match", cfg.Team2.MatchScore).
				Bool("team2_serving", cfg.Team2.Serving).
				Msg("match update")
		},
		OnStatus: func(s matchsync.Status) {
			log.Info().Str("status", string(s)).Msg("connection status changed")
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	if err := client.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("display client failed")
	}
}
