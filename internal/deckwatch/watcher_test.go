package deckwatch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lectern/internal/config"
	"lectern/internal/deck"
	"lectern/internal/deckwatch"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/session"
	"lectern/internal/testsupport"
)

var deckBytes = []byte("%PDF-1.4\nlectern watcher test deck\n")

type captureNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *captureNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureNotifier) TestNotification(context.Context) error { return nil }

func (c *captureNotifier) saw(event notifications.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, recorded := range c.events {
		if recorded == event {
			return true
		}
	}
	return false
}

type triggerStub struct {
	calls chan int64
}

func (s *triggerStub) RunNarrate(_ context.Context, sessionID int64) (*session.Session, error) {
	select {
	case s.calls <- sessionID:
	default:
	}
	return nil, nil
}

func newWatcherConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Enabled = true
	cfg.Watch.SettleSeconds = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func startWatcher(t *testing.T, cfg *config.Config, store *session.Store, notifier notifications.Service, trigger deckwatch.StageTrigger) *deckwatch.Watcher {
	t.Helper()
	watcher, err := deckwatch.New(cfg, store, notifier, trigger, logging.NewNop())
	if err != nil {
		t.Fatalf("deckwatch.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("watcher.Start: %v", err)
	}
	t.Cleanup(watcher.Stop)
	return watcher
}

func waitForSessions(t *testing.T, store *session.Store, want int) []*session.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		sessions, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(sessions) == want {
			return sessions
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sessions, have %d", want, len(sessions))
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWatcherRegistersSettledDeck(t *testing.T) {
	cfg := newWatcherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &captureNotifier{}

	deckPath := filepath.Join(cfg.Paths.InboxDir, "intro_to_go.pdf")
	if err := os.WriteFile(deckPath, deckBytes, 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}

	watcher := startWatcher(t, cfg, store, notifier, nil)
	if !watcher.Running() {
		t.Fatal("expected watcher to report running")
	}

	sessions := waitForSessions(t, store, 1)
	sess := sessions[0]
	if sess.Title != "intro to go" {
		t.Fatalf("unexpected title: %q", sess.Title)
	}
	if sess.Status != session.StatusEmpty {
		t.Fatalf("unexpected status: %s", sess.Status)
	}
	if sess.DeckPath != deckPath {
		t.Fatalf("unexpected deck path: %q", sess.DeckPath)
	}
	if sess.DeckSHA256 == "" {
		t.Fatal("expected deck hash to be recorded")
	}
	if !notifier.saw(notifications.EventDeckDetected) {
		t.Fatal("expected deck detected notification")
	}
}

func TestWatcherPicksUpDeckDroppedAfterStart(t *testing.T) {
	cfg := newWatcherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	startWatcher(t, cfg, store, &captureNotifier{}, nil)

	deckPath := filepath.Join(cfg.Paths.InboxDir, "late-arrival.pdf")
	if err := os.WriteFile(deckPath, deckBytes, 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}

	sessions := waitForSessions(t, store, 1)
	if sessions[0].Title != "late arrival" {
		t.Fatalf("unexpected title: %q", sessions[0].Title)
	}
}

func TestWatcherSkipsKnownDeck(t *testing.T) {
	cfg := newWatcherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	deckPath := filepath.Join(cfg.Paths.InboxDir, "repeat.pdf")
	if err := os.WriteFile(deckPath, deckBytes, 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	known, err := deck.Load(deckPath)
	if err != nil {
		t.Fatalf("deck.Load: %v", err)
	}
	if _, err := store.NewSession(context.Background(), known.Title, known.Path, known.MIMEType, known.SHA256); err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	startWatcher(t, cfg, store, &captureNotifier{}, nil)

	time.Sleep(1500 * time.Millisecond)
	sessions, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected deck to be deduplicated, have %d sessions", len(sessions))
	}
}

func TestWatcherAutoNarrateTriggersPipeline(t *testing.T) {
	cfg := newWatcherConfig(t)
	cfg.Watch.AutoNarrate = true
	store := testsupport.MustOpenStore(t, cfg)
	trigger := &triggerStub{calls: make(chan int64, 1)}

	deckPath := filepath.Join(cfg.Paths.InboxDir, "autoplay.pdf")
	if err := os.WriteFile(deckPath, deckBytes, 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}

	startWatcher(t, cfg, store, &captureNotifier{}, trigger)

	select {
	case id := <-trigger.calls:
		sessions := waitForSessions(t, store, 1)
		if sessions[0].ID != id {
			t.Fatalf("narrate triggered for session %d, expected %d", id, sessions[0].ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("auto narrate was not triggered")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	cfg := newWatcherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	for _, name := range []string{"notes.txt", ".hidden.pdf", "draft.pdf~"} {
		if err := os.WriteFile(filepath.Join(cfg.Paths.InboxDir, name), deckBytes, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	startWatcher(t, cfg, store, &captureNotifier{}, nil)

	time.Sleep(1500 * time.Millisecond)
	sessions, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, have %d", len(sessions))
	}
}
