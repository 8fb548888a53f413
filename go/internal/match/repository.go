package match

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a match ID has no stored record.
var ErrNotFound = errors.New("match not found")

// Repository is the authoritative in-memory store of match records. It owns
// every MatchConfig exclusively: values are copied in and out, so callers never
// hold a reference into the map. Persistence across restarts is out of scope;
// a SQL-backed implementation would satisfy the same contract.
type Repository struct {
	mu      sync.RWMutex
	matches map[string]MatchConfig
}

// NewRepository creates an empty match repository.
func NewRepository() *Repository {
	return &Repository{
		matches: make(map[string]MatchConfig),
	}
}

// GetMatch returns the stored record for matchID, or ErrNotFound. Pure lookup,
// no side effects.
func (r *Repository) GetMatch(ctx context.Context, matchID string) (*MatchConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.matches[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// CreateMatch inserts or overwrites the record at cfg.MatchID. Idempotent.
func (r *Repository) CreateMatch(ctx context.Context, cfg MatchConfig) (*MatchConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matches[cfg.MatchID] = cfg
	return &cfg, nil
}

// UpdateMatch shallow-merges upd onto the existing record. The merge is
// all-or-nothing per call: the stored value is replaced in one assignment.
// Returns ErrNotFound if matchID is unknown.
func (r *Repository) UpdateMatch(ctx context.Context, matchID string, upd MatchUpdate) (*MatchConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.matches[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	merged := upd.apply(existing)
	r.matches[matchID] = merged
	return &merged, nil
}

// DeleteMatch removes the record and reports whether it existed.
func (r *Repository) DeleteMatch(ctx context.Context, matchID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.matches[matchID]
	delete(r.matches, matchID)
	return ok, nil
}

// ListMatches returns all current records. Order is not significant.
func (r *Repository) ListMatches(ctx context.Context) ([]MatchConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MatchConfig, 0, len(r.matches))
	for _, cfg := range r.matches {
		out = append(out, cfg)
	}
	return out, nil
}
