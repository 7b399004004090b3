package sessionaccess_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/scene"
	"lectern/internal/session"
	"lectern/internal/sessionaccess"
	"lectern/internal/testsupport"
)

func editSpeech(index int, speech string) []scene.Edit {
	return []scene.Edit{{Index: index, Speech: &speech}}
}

func TestStoreAccessRunsFullPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := sessionaccess.NewStoreAccess(cfg, store, nil)
	ctx := context.Background()

	deckPath := filepath.Join(testsupport.BaseDir(cfg), "error_handling.pdf")
	testsupport.WriteDeck(t, deckPath)

	added, err := access.AddDeck(ctx, deckPath)
	if err != nil {
		t.Fatalf("AddDeck: %v", err)
	}
	if added.Title != "error handling" {
		t.Fatalf("unexpected title %q", added.Title)
	}

	narrated, msg, err := access.RunStage(ctx, added.ID, "narrate")
	if err != nil {
		t.Fatalf("RunStage narrate: %v", err)
	}
	if narrated.Status != string(session.StatusNarrated) {
		t.Fatalf("expected synchronous narrate completion, got %s", narrated.Status)
	}
	if !strings.Contains(msg, "completed") {
		t.Fatalf("expected completion message, got %q", msg)
	}

	speech := "Errors are values."
	set, err := access.Edit(ctx, added.ID, editSpeech(1, speech))
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if set.Scenes[0].Speech != speech {
		t.Fatalf("expected edited speech, got %q", set.Scenes[0].Speech)
	}

	if _, err := access.Approve(ctx, added.ID); err != nil {
		t.Fatalf("Approve narration: %v", err)
	}
	if _, _, err := access.RunStage(ctx, added.ID, "annotate"); err != nil {
		t.Fatalf("RunStage annotate: %v", err)
	}
	if _, err := access.Approve(ctx, added.ID); err != nil {
		t.Fatalf("Approve annotation: %v", err)
	}

	outcome, err := access.Export(ctx, added.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if outcome.Session.Status != string(session.StatusExported) {
		t.Fatalf("expected exported status, got %s", outcome.Session.Status)
	}
	if !strings.HasSuffix(outcome.ScenesPath, "scenes.json") {
		t.Fatalf("unexpected scenes path %q", outcome.ScenesPath)
	}

	health, err := access.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 1 || health.Exported != 1 {
		t.Fatalf("unexpected health %+v", health)
	}

	scenes, err := access.Scenes(ctx, added.ID)
	if err != nil {
		t.Fatalf("Scenes: %v", err)
	}
	if scenes.SceneSet == nil || len(scenes.SceneSet.Scenes) != 3 {
		t.Fatalf("expected exported scene set, got %#v", scenes.SceneSet)
	}

	if _, _, err := access.RunStage(ctx, added.ID, "publish"); err == nil {
		t.Fatal("expected unknown stage rejection")
	}

	removed, err := access.Remove(ctx, []int64{added.ID, 9999})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
}

func TestStoreAccessListFiltersAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := sessionaccess.NewStoreAccess(cfg, store, nil)
	ctx := context.Background()

	testsupport.NewDeckSession(t, cfg, store, "First Deck")
	testsupport.NewDeckSession(t, cfg, store, "Second Deck")

	all, err := access.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	// Unknown status strings are dropped rather than failing the query.
	filtered, err := access.List(ctx, []string{"bogus"})
	if err != nil {
		t.Fatalf("List with bogus filter: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected filter to be ignored, got %d sessions", len(filtered))
	}

	stats, err := access.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(session.StatusEmpty)] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	missing, err := access.Describe(ctx, 404)
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing session, got %+v", missing)
	}
}
