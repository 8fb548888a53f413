package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorecast/go/internal/match"
)

// ConnectionManager manages WebSocket connections for match state sync. It is
// both the subscription registry (matchID -> live connections) and the
// broadcast fan-out: every successful update, from either front door, flows
// through its broadcast channel to all subscribers of that match.
type ConnectionManager struct {
	// Connection pools organized by match ID
	matchConnections map[string]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	matches  *match.App

	broadcastCh chan broadcastMessage
}

// Connection represents a WebSocket connection to a client. A connection is
// subscribed to at most one match at a time; matchID is guarded by the
// manager's mutex and is empty until the first subscribe message.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	matchID string

	done      chan struct{}
	closeOnce sync.Once

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	matchID string
	msg     ServerMessage
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		BroadcastBuffer: 1000,
		CheckOrigin: func(r *http.Request) bool {
			// Overlay displays are served from arbitrary origins (OBS, browsers)
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, matches *match.App) *ConnectionManager {
	return &ConnectionManager{
		matchConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		matches:     matches,
		broadcastCh: make(chan broadcastMessage, config.BroadcastBuffer),
	}
}

// Start begins processing broadcast messages. Broadcasts for all matches drain
// through this single goroutine, so deliveries for one match keep the order in
// which their updates were applied.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its
// read/write pumps. The connection begins unsubscribed; it joins a match pool
// only when its first subscribe message arrives.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		done:        make(chan struct{}),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// subscribe registers conn for matchID, moving it out of any previous match
// pool first so a connection is never in two pools at once.
func (cm *ConnectionManager) subscribe(conn *Connection, matchID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.removeLocked(conn)

	if cm.matchConnections[matchID] == nil {
		cm.matchConnections[matchID] = make(map[*Connection]bool)
	}
	cm.matchConnections[matchID][conn] = true
	conn.matchID = matchID

	log.Debug().
		Str("connection_id", conn.ID).
		Str("match_id", matchID).
		Int("subscribers", len(cm.matchConnections[matchID])).
		Msg("connection subscribed")
}

// unregisterConnection removes a connection from its match pool and tears it
// down. Called from whichever pump exits first; safe to call twice.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	matchID := conn.matchID
	cm.removeLocked(conn)
	cm.mu.Unlock()

	conn.close()

	if matchID != "" {
		log.Info().
			Str("connection_id", conn.ID).
			Str("match_id", matchID).
			Msg("connection unregistered")
	}
}

// removeLocked takes conn out of its current pool, deleting the pool entry
// entirely once empty so abandoned match IDs do not accumulate.
func (cm *ConnectionManager) removeLocked(conn *Connection) {
	if conn.matchID == "" {
		return
	}
	if connections, exists := cm.matchConnections[conn.matchID]; exists {
		delete(connections, conn)
		if len(connections) == 0 {
			delete(cm.matchConnections, conn.matchID)
		}
	}
	conn.matchID = ""
}

// BroadcastMatchUpdate queues the full post-merge state for delivery to every
// subscriber of matchID, sender included.
func (cm *ConnectionManager) BroadcastMatchUpdate(matchID string, cfg *match.MatchConfig) {
	select {
	case cm.broadcastCh <- broadcastMessage{matchID: matchID, msg: matchUpdateMessage(cfg)}:
	default:
		log.Warn().Str("match_id", matchID).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast delivers one message to every subscriber of its match.
// Delivery is best-effort and independent per recipient: a subscriber with a
// full send buffer is skipped, not closed. Removal happens only on explicit
// close or unsubscribe.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	data, err := json.Marshal(message.msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connections, exists := cm.matchConnections[message.matchID]
	if !exists {
		return
	}

	delivered := 0
	for conn := range connections {
		if conn.trySend(data) {
			delivered++
		} else {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("match_id", message.matchID).
				Msg("subscriber not ready, skipping delivery")
		}
	}

	log.Debug().
		Str("match_id", message.matchID).
		Int("delivered", delivered).
		Msg("match update broadcast")
}

// Stats returns statistics about active connections and subscribed matches.
func (cm *ConnectionManager) Stats() (totalConnections, activeMatches int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.matchConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.matchConnections)
}

// trySend enqueues data for the write pump without blocking. Returns false if
// the connection is closed or its buffer is full.
func (c *Connection) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// reply marshals and sends a message to this connection only.
func (c *Connection) reply(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal reply")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("connection_id", c.ID).Msg("connection not ready, dropping reply")
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer c.Manager.unregisterConnection(c)

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage dispatches one inbound frame. Malformed input of any
// kind answers the sender with an error frame and leaves both the connection
// and the stored state untouched.
func (c *Connection) handleClientMessage(message []byte) {
	ctx := context.Background()

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed client message")
		c.reply(errorMessage("Invalid message format"))
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(ctx, msg.MatchID)
	case MessageTypeUpdateMatch:
		c.handleUpdateMatch(ctx, msg.MatchID, msg.Updates)
	default:
		c.reply(errorMessage(fmt.Sprintf("Unknown message type %q", msg.Type)))
	}
}

// handleSubscribe registers the connection for a match and answers it, and it
// alone, with the current snapshot, creating the default record on first
// reference.
func (c *Connection) handleSubscribe(ctx context.Context, matchID string) {
	if matchID == "" {
		c.reply(errorMessage("matchId is required"))
		return
	}

	c.Manager.subscribe(c, matchID)

	cfg, err := c.Manager.matches.GetOrCreateMatch(ctx, matchID)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to load match for subscriber")
		c.reply(errorMessage("Failed to load match"))
		return
	}

	c.reply(matchUpdateMessage(cfg))
}

// handleUpdateMatch validates and merges a partial update, then broadcasts the
// resulting full state to every subscriber of the match, sender included. The
// sender reconciles its optimistic local state against this canonical echo.
func (c *Connection) handleUpdateMatch(ctx context.Context, matchID string, updates json.RawMessage) {
	if matchID == "" {
		c.reply(errorMessage("matchId is required"))
		return
	}
	if len(updates) == 0 {
		c.reply(errorMessage("updates is required"))
		return
	}

	upd, err := match.DecodeMatchUpdate(updates)
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("match_id", matchID).
			Msg("rejected match update")
		c.reply(errorMessage(err.Error()))
		return
	}

	cfg, err := c.Manager.matches.ApplyUpdate(ctx, matchID, upd)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to apply match update")
		c.reply(errorMessage("Failed to update match"))
		return
	}

	c.Manager.BroadcastMatchUpdate(matchID, cfg)
}
