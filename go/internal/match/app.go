package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// MatchRepository defines what the app layer needs from the repository
type MatchRepository interface {
	GetMatch(ctx context.Context, matchID string) (*MatchConfig, error)
	CreateMatch(ctx context.Context, cfg MatchConfig) (*MatchConfig, error)
	UpdateMatch(ctx context.Context, matchID string, upd MatchUpdate) (*MatchConfig, error)
	DeleteMatch(ctx context.Context, matchID string) (bool, error)
	ListMatches(ctx context.Context) ([]MatchConfig, error)
}

// App handles match state business logic. All inbound payload validation
// happens before its methods are called; the app assumes well-formed updates
// and is responsible only for merge, clamp and lazy-default semantics.
type App struct {
	repo MatchRepository
}

// NewApp creates a new match App
func NewApp(repo MatchRepository) *App {
	return &App{repo: repo}
}

// GetOrCreateMatch returns the current state for matchID, synthesizing and
// persisting the default template on first reference. Idempotent: a second
// call returns the identical stored record.
func (a *App) GetOrCreateMatch(ctx context.Context, matchID string) (*MatchConfig, error) {
	cfg, err := a.repo.GetMatch(ctx, matchID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	created, err := a.repo.CreateMatch(ctx, DefaultMatchConfig(matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to create default match: %w", err)
	}

	log.Info().Str("match_id", matchID).Msg("created default match")
	return created, nil
}

// ApplyUpdate merges upd into the match state, creating the record first
// (defaults plus the update) when matchID is unknown. Returns the complete
// post-merge snapshot. Last write wins; the merge is all-or-nothing.
func (a *App) ApplyUpdate(ctx context.Context, matchID string, upd MatchUpdate) (*MatchConfig, error) {
	merged, err := a.repo.UpdateMatch(ctx, matchID, upd)
	if err == nil {
		return merged, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	seeded := upd.apply(DefaultMatchConfig(matchID))
	created, err := a.repo.CreateMatch(ctx, seeded)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Info().Str("match_id", matchID).Msg("created match from first update")
	return created, nil
}

// DeleteMatch removes a match record. Administrative operation; nothing in the
// sync protocol calls it.
func (a *App) DeleteMatch(ctx context.Context, matchID string) (bool, error) {
	existed, err := a.repo.DeleteMatch(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to delete match: %w", err)
	}
	if existed {
		log.Info().Str("match_id", matchID).Msg("deleted match")
	}
	return existed, nil
}

// ListMatches returns all current match records.
func (a *App) ListMatches(ctx context.Context) ([]MatchConfig, error) {
	matches, err := a.repo.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}
