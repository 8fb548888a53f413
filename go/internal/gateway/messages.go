package gateway

import (
	"encoding/json"

	"github.com/mcdev12/scorecast/go/internal/match"
)

// Client-to-server message types.
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUpdateMatch = "update-match"
)

// Server-to-client message types.
const (
	MessageTypeMatchUpdate = "match-update"
	MessageTypeError       = "error"
)

// ClientMessage is the envelope for every inbound websocket frame. Updates
// stays raw until the type dispatch decides how to decode it.
type ClientMessage struct {
	Type    string          `json:"type"`
	MatchID string          `json:"matchId,omitempty"`
	Updates json.RawMessage `json:"updates,omitempty"`
}

// ServerMessage is the envelope for every outbound websocket frame. Data
// always carries a complete snapshot, never a diff: any later message
// supersedes an earlier one, which is what makes reconnects self-healing.
type ServerMessage struct {
	Type    string             `json:"type"`
	Data    *match.MatchConfig `json:"data,omitempty"`
	Message string             `json:"message,omitempty"`
}

func matchUpdateMessage(cfg *match.MatchConfig) ServerMessage {
	return ServerMessage{Type: MessageTypeMatchUpdate, Data: cfg}
}

func errorMessage(msg string) ServerMessage {
	return ServerMessage{Type: MessageTypeError, Message: msg}
}
