package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"lectern/internal/config"
	"lectern/internal/deck"
	"lectern/internal/session"
)

// MustOpenStore opens a session.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates a new pipeline session for tests using the provided store.
func NewSession(t testing.TB, store *session.Store, title, deckSHA string) *session.Session {
	t.Helper()

	sess, err := store.NewSession(context.Background(), title, "/decks/"+title+".pdf", "application/pdf", deckSHA)
	if err != nil {
		t.Fatalf("store.NewSession: %v", err)
	}
	return sess
}

// NewDeckSession writes a real deck fixture under the config's inbox dir and
// creates a session pointing at it, for tests that exercise stage handlers.
func NewDeckSession(t testing.TB, cfg *config.Config, store *session.Store, title string) *session.Session {
	t.Helper()

	path := filepath.Join(cfg.Paths.InboxDir, title+".pdf")
	WriteDeck(t, path)
	d, err := deck.Load(path)
	if err != nil {
		t.Fatalf("deck.Load: %v", err)
	}
	sess, err := store.NewSession(context.Background(), title, d.Path, d.MIMEType, d.SHA256)
	if err != nil {
		t.Fatalf("store.NewSession: %v", err)
	}
	return sess
}
