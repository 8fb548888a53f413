package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorecast/go/internal/match"
)

// MatchHandler serves the request/response front door of the sync core. It
// shares the match app and the broadcast path with the WebSocket protocol, so
// a write through either surface is visible to both.
type MatchHandler struct {
	matches           *match.App
	connectionManager *ConnectionManager
}

// NewMatchHandler creates a new match REST handler
func NewMatchHandler(matches *match.App, cm *ConnectionManager) *MatchHandler {
	return &MatchHandler{
		matches:           matches,
		connectionManager: cm,
	}
}

type errorResponse struct {
	Error   string             `json:"error"`
	Details []match.FieldError `json:"details,omitempty"`
}

// HandleGetMatch handles GET /api/matches/{id}, creating the default record
// on first reference.
func (h *MatchHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	cfg, err := h.matches.GetOrCreateMatch(r.Context(), matchID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to get match")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to get match"})
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// HandleUpdateMatch handles POST /api/matches/{id}. A successful merge
// triggers the same broadcast as the WebSocket update path.
func (h *MatchHandler) HandleUpdateMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to read request body"})
		return
	}

	upd, err := match.DecodeMatchUpdate(body)
	if err != nil {
		var verrs match.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid match data", Details: verrs})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid match data"})
		return
	}

	cfg, err := h.matches.ApplyUpdate(r.Context(), matchID, upd)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to update match")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to update match"})
		return
	}

	h.connectionManager.BroadcastMatchUpdate(matchID, cfg)

	writeJSON(w, http.StatusOK, cfg)
}

// HandleDeleteMatch handles DELETE /api/matches/{id}. Administrative: no
// client in the normal flow calls it and it does not broadcast.
func (h *MatchHandler) HandleDeleteMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	existed, err := h.matches.DeleteMatch(r.Context(), matchID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to delete match")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to delete match"})
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Match not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// HandleListMatches handles GET /api/matches.
func (h *MatchHandler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matches.ListMatches(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list matches")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to list matches"})
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

// RegisterMatchRoutes registers match REST routes
func (h *MatchHandler) RegisterMatchRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/matches", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleListMatches(w, r)
	})

	mux.HandleFunc("/api/matches/", func(w http.ResponseWriter, r *http.Request) {
		matchID := extractMatchIDFromPath(r.URL.Path)
		if matchID == "" {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			h.HandleGetMatch(w, r, matchID)
		case http.MethodPost:
			h.HandleUpdateMatch(w, r, matchID)
		case http.MethodDelete:
			h.HandleDeleteMatch(w, r, matchID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// extractMatchIDFromPath extracts the match ID from a path like
// /api/matches/{id}. Nested paths are rejected.
func extractMatchIDFromPath(path string) string {
	const prefix = "/api/matches/"

	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	id := path[len(prefix):]
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
