// Package matchsync is the client side of the scoreboard sync protocol: a
// resilient subscriber/controller for a single match that reconnects with
// exponential backoff and reconciles purely from snapshot replies.
package matchsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorecast/go/internal/gateway"
	"github.com/mcdev12/scorecast/go/internal/match"
)

// Status is the reported connectivity of a client.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

// ErrNotConnected is returned by SendUpdate while the transport is down.
// Updates are never queued for replay; the server snapshot on resubscribe is
// the only reconciliation mechanism.
var ErrNotConnected = errors.New("matchsync: not connected")

// Default reconnection backoff bounds.
const (
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 10 * time.Second
)

// Config holds configuration for a sync client.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// MatchID is the single match this client subscribes to. Watching a
	// different match means tearing this client down and starting another.
	MatchID string

	BackoffBase      time.Duration
	BackoffCap       time.Duration
	HandshakeTimeout time.Duration

	// Clock defaults to the real clock; tests inject a fake one.
	Clock clockwork.Clock

	// OnUpdate receives every full-state snapshot (subscribe reply and
	// broadcast updates alike).
	OnUpdate func(match.MatchConfig)
	// OnStatus receives connectivity transitions.
	OnStatus func(Status)
	// OnProtocolError receives server error frames (rejected updates etc.).
	OnProtocolError func(string)
}

// Client maintains a subscription to one match across transport failures.
type Client struct {
	cfg    Config
	clock  clockwork.Clock
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status
}

// New creates a client. Run must be called to start the connection loop.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("matchsync: URL is required")
	}
	if cfg.MatchID == "" {
		return nil, fmt.Errorf("matchsync: MatchID is required")
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultBackoffCap
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Client{
		cfg:    cfg,
		clock:  cfg.Clock,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		status: StatusDisconnected,
	}, nil
}

// Run drives the connection state machine until ctx is cancelled: dial,
// resubscribe, pump snapshots, back off, repeat. The attempt counter resets to
// zero after every successful subscribe handshake.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug().
				Err(err).
				Str("match_id", c.cfg.MatchID).
				Int("attempt", attempt).
				Msg("connection attempt failed")
			c.setStatus(StatusDisconnected)
			if !c.waitBackoff(ctx, attempt) {
				return ctx.Err()
			}
			attempt++
			continue
		}

		attempt = 0
		c.setConn(conn)
		c.setStatus(StatusConnected)
		log.Info().Str("match_id", c.cfg.MatchID).Msg("subscribed to match")

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			c.setStatus(StatusDisconnected)
			return ctx.Err()
		}

		log.Debug().Err(err).Str("match_id", c.cfg.MatchID).Msg("connection lost")
		c.setStatus(StatusDisconnected)
		if !c.waitBackoff(ctx, attempt) {
			return ctx.Err()
		}
		attempt++
	}
}

// connect dials the endpoint and runs the subscribe handshake. There is no
// session resumption: every connection starts from a fresh subscribe.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	sub := gateway.ClientMessage{
		Type:    gateway.MessageTypeSubscribe,
		MatchID: c.cfg.MatchID,
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe handshake: %w", err)
	}

	return conn, nil
}

// readLoop pumps server frames until the transport fails or ctx is cancelled.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock the read when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg gateway.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case gateway.MessageTypeMatchUpdate:
			if msg.Data != nil && c.cfg.OnUpdate != nil {
				c.cfg.OnUpdate(*msg.Data)
			}
		case gateway.MessageTypeError:
			log.Warn().
				Str("match_id", c.cfg.MatchID).
				Str("message", msg.Message).
				Msg("server rejected message")
			if c.cfg.OnProtocolError != nil {
				c.cfg.OnProtocolError(msg.Message)
			}
		default:
			log.Debug().Str("type", msg.Type).Msg("ignoring unknown server message")
		}
	}
}

// waitBackoff sleeps for the attempt's backoff delay. Returns false when ctx
// was cancelled, after stopping and draining the pending timer so no stale
// reconnect fires against an abandoned subscription.
func (c *Client) waitBackoff(ctx context.Context, attempt int) bool {
	delay := backoffDelay(c.cfg.BackoffBase, c.cfg.BackoffCap, attempt)
	c.setStatus(StatusReconnecting)
	log.Debug().
		Str("match_id", c.cfg.MatchID).
		Dur("delay", delay).
		Int("attempt", attempt).
		Msg("waiting before reconnect")

	timer := c.clock.NewTimer(delay)
	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		stopAndDrainTimer(timer)
		return false
	}
}

// backoffDelay computes min(base * 2^attempt, limit).
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= limit || delay <= 0 {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent
// goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// SendUpdate submits a partial update for this client's match. Fails
// immediately while disconnected; nothing is queued.
func (c *Client) SendUpdate(upd match.MatchUpdate) error {
	raw, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	msg := gateway.ClientMessage{
		Type:    gateway.MessageTypeUpdateMatch,
		MatchID: c.cfg.MatchID,
		Updates: raw,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.status != StatusConnected {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send update: %w", err)
	}
	return nil
}

// Status reports the current connectivity.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()

	if changed && c.cfg.OnStatus != nil {
		c.cfg.OnStatus(s)
	}
}
