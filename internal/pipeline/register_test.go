package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lectern/internal/pipeline"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/testsupport"
)

func TestRegisterDeckCreatesSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	deckPath := filepath.Join(testsupport.BaseDir(cfg), "closures_in_depth.pdf")
	testsupport.WriteDeck(t, deckPath)

	sess, err := pipeline.RegisterDeck(ctx, store, deckPath)
	if err != nil {
		t.Fatalf("RegisterDeck: %v", err)
	}
	if sess.Status != session.StatusEmpty {
		t.Fatalf("expected empty status, got %s", sess.Status)
	}
	if sess.Title != "closures in depth" {
		t.Fatalf("expected title derived from filename, got %q", sess.Title)
	}
	if sess.DeckSHA256 == "" {
		t.Fatal("expected deck hash recorded")
	}
}

func TestRegisterDeckRejectsDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	deckPath := filepath.Join(testsupport.BaseDir(cfg), "original.pdf")
	testsupport.WriteDeck(t, deckPath)

	if _, err := pipeline.RegisterDeck(ctx, store, deckPath); err != nil {
		t.Fatalf("first RegisterDeck: %v", err)
	}
	_, err := pipeline.RegisterDeck(ctx, store, deckPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for duplicate deck, got %v", err)
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected a single session, got %d", len(sessions))
	}
}

func TestRegisterDeckRejectsNonDeck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	notesPath := filepath.Join(testsupport.BaseDir(cfg), "notes.pdf")
	testsupport.WriteFile(t, notesPath, 64)

	if _, err := pipeline.RegisterDeck(context.Background(), store, notesPath); err == nil {
		t.Fatal("expected error for a file without a PDF header")
	}
}
