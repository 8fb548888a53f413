package match

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestApp() *App {
	return NewApp(NewRepository())
}

func TestGetOrCreateMatchSynthesizesDefault(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	got, err := app.GetOrCreateMatch(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetOrCreateMatch: %v", err)
	}

	want := DefaultMatchConfig("fresh")
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("default match mismatch (-want +got):\n%s", diff)
	}

	// The synthesized record is persisted: a second read returns the
	// identical record, not a new default.
	again, err := app.GetOrCreateMatch(ctx, "fresh")
	if err != nil {
		t.Fatalf("second GetOrCreateMatch: %v", err)
	}
	if diff := cmp.Diff(*got, *again); diff != "" {
		t.Errorf("repeated read mismatch (-first +second):\n%s", diff)
	}
}

func TestApplyUpdateMergesExisting(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	app.GetOrCreateMatch(ctx, "m")

	size := 72
	family := "Roboto"
	got, err := app.ApplyUpdate(ctx, "m", MatchUpdate{FontSize: &size, FontFamily: &family})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	if got.FontSize != 72 || got.FontFamily != "Roboto" {
		t.Errorf("update not merged: %+v", got)
	}
	if got.Layout != LayoutSideBySide {
		t.Errorf("unrelated field changed: %v", got.Layout)
	}
}

func TestApplyUpdateCreatesUnknownMatch(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	layout := LayoutScoreboard
	got, err := app.ApplyUpdate(ctx, "unseen", MatchUpdate{Layout: &layout})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}

	// Record is seeded with defaults plus the update.
	want := DefaultMatchConfig("unseen")
	want.Layout = LayoutScoreboard
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("seeded match mismatch (-want +got):\n%s", diff)
	}

	stored, err := app.GetOrCreateMatch(ctx, "unseen")
	if err != nil {
		t.Fatalf("GetOrCreateMatch: %v", err)
	}
	if stored.Layout != LayoutScoreboard {
		t.Errorf("seeded update not persisted: %+v", stored)
	}
}

func TestApplyUpdateClampsNegativeScores(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	cfg, _ := app.GetOrCreateMatch(ctx, "m")
	if cfg.Team1.SetScore != 0 {
		t.Fatalf("default setScore should be 0, got %d", cfg.Team1.SetScore)
	}

	// A controller decrementing from zero sends -1; the merge floors it.
	team := cfg.Team1
	team.SetScore = -1
	team.MatchScore = -3

	got, err := app.ApplyUpdate(ctx, "m", MatchUpdate{Team1: &team})
	if err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	if got.Team1.SetScore != 0 || got.Team1.MatchScore != 0 {
		t.Errorf("scores not clamped to 0: %+v", got.Team1)
	}
}

func TestDeleteMatch(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	app.GetOrCreateMatch(ctx, "m")

	existed, err := app.DeleteMatch(ctx, "m")
	if err != nil || !existed {
		t.Fatalf("DeleteMatch = (%v, %v), want (true, nil)", existed, err)
	}

	existed, err = app.DeleteMatch(ctx, "m")
	if err != nil || existed {
		t.Fatalf("DeleteMatch after delete = (%v, %v), want (false, nil)", existed, err)
	}
}

func TestListMatches(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()

	app.GetOrCreateMatch(ctx, "a")
	app.GetOrCreateMatch(ctx, "b")

	matches, err := app.ListMatches(ctx)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(matches))
	}
}
