package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorecast/go/internal/match"
)

// Service is the scoreboard sync gateway: it owns the connection manager and
// exposes the WebSocket and REST front doors over a shared match app.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	matchHandler      *MatchHandler
	matches           *match.App
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service around a match app.
func NewService(config Config, matches *match.App) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, matches)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		matchHandler:      NewMatchHandler(matches, connectionManager),
		matches:           matches,
	}
}

// Start runs the broadcast processor until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting scoreboard gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("scoreboard gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.matchHandler.RegisterMatchRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Stats returns statistics about active connections and matches.
func (s *Service) Stats() (totalConnections, activeMatches int) {
	return s.connectionManager.Stats()
}

// BroadcastMatchUpdate allows components outside the two front doors to push a
// snapshot to subscribers (useful for tests and tooling).
func (s *Service) BroadcastMatchUpdate(matchID string, cfg *match.MatchConfig) {
	s.connectionManager.BroadcastMatchUpdate(matchID, cfg)
}
