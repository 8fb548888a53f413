package matchsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/scorecast/go/internal/gateway"
	"github.com/mcdev12/scorecast/go/internal/match"
)

func TestBackoffDelay(t *testing.T) {
	base := 1 * time.Second
	limit := 10 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{10, 10 * time.Second},
		{63, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(base, limit, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{MatchID: "m"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := New(Config{URL: "ws://localhost/ws"}); err == nil {
		t.Error("expected error for missing MatchID")
	}
}

func TestSendUpdateWhileDisconnected(t *testing.T) {
	client, err := New(Config{URL: "ws://localhost:1/ws", MatchID: "m"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = client.SendUpdate(match.MatchUpdate{})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

// newTestServer runs a full gateway and returns its ws URL.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	repo := match.NewRepository()
	app := match.NewApp(repo)
	service := gateway.NewService(gateway.DefaultConfig(), app)

	ctx, cancel := context.WithCancel(context.Background())
	go service.Start(ctx)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestClientSubscribesAndReceivesSnapshots(t *testing.T) {
	_, wsURL := newTestServer(t)

	updates := make(chan match.MatchConfig, 16)
	client, err := New(Config{
		URL:         wsURL,
		MatchID:     "court-1",
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  50 * time.Millisecond,
		OnUpdate:    func(cfg match.MatchConfig) { updates <- cfg },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	// Subscribe handshake answers with the default snapshot.
	select {
	case cfg := <-updates:
		if cfg.MatchID != "court-1" || cfg.FontSize != 48 {
			t.Fatalf("unexpected snapshot: %+v", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe snapshot")
	}

	if got := client.Status(); got != StatusConnected {
		t.Fatalf("status = %v, want connected", got)
	}

	// A controller update comes back as the canonical echo.
	size := 64
	if err := client.SendUpdate(match.MatchUpdate{FontSize: &size}); err != nil {
		t.Fatalf("SendUpdate: %v", err)
	}
	select {
	case cfg := <-updates:
		if cfg.FontSize != 64 {
			t.Fatalf("echo snapshot fontSize = %d, want 64", cfg.FontSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update echo")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
}

func TestClientReconnectsAndResubscribes(t *testing.T) {
	srv, wsURL := newTestServer(t)

	updates := make(chan match.MatchConfig, 16)
	statuses := make(chan Status, 16)
	client, err := New(Config{
		URL:         wsURL,
		MatchID:     "court-1",
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  50 * time.Millisecond,
		OnUpdate:    func(cfg match.MatchConfig) { updates <- cfg },
		OnStatus:    func(s Status) { statuses <- s },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitUpdate := func() match.MatchConfig {
		select {
		case cfg := <-updates:
			return cfg
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
			return match.MatchConfig{}
		}
	}
	waitUpdate()

	// Kill the transport out from under the client.
	srv.CloseClientConnections()

	// The client backs off, redials and re-runs the subscribe handshake,
	// receiving the current state in a single snapshot.
	cfg := waitUpdate()
	if cfg.MatchID != "court-1" {
		t.Fatalf("resubscribe snapshot for wrong match: %+v", cfg)
	}

	// The status stream saw the outage.
	seen := map[Status]bool{}
	deadline := time.After(2 * time.Second)
	for !(seen[StatusDisconnected] && seen[StatusReconnecting] && seen[StatusConnected]) {
		select {
		case s := <-statuses:
			seen[s] = true
		case <-deadline:
			t.Fatalf("missing status transitions, saw %v", seen)
		}
	}
}

func TestClientBackoffWithFakeClock(t *testing.T) {
	fc := clockwork.NewFakeClock()

	statuses := make(chan Status, 16)
	client, err := New(Config{
		// Nothing listens here; every dial fails immediately.
		URL:      "ws://127.0.0.1:1/ws",
		MatchID:  "m",
		Clock:    fc,
		OnStatus: func(s Status) { statuses <- s },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	waitStatus := func(want Status) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case s := <-statuses:
				if s == want {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for status %v", want)
			}
		}
	}

	// First failed dial arms a 1s timer and reports reconnecting.
	waitStatus(StatusReconnecting)
	fc.BlockUntil(1)
	fc.Advance(1 * time.Second)

	// Second attempt fails too; backoff doubles to 2s.
	waitStatus(StatusDisconnected)
	waitStatus(StatusReconnecting)
	fc.BlockUntil(1)
	fc.Advance(2 * time.Second)

	waitStatus(StatusDisconnected)

	// Teardown during backoff cancels the pending retry timer.
	waitStatus(StatusReconnecting)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancellation during backoff")
	}
}
