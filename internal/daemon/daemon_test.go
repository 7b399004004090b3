package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/annotate"
	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/generator"
	"lectern/internal/logging"
	"lectern/internal/narrate"
	"lectern/internal/pipeline"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/testsupport"
)

func newTestDaemon(t *testing.T) (*daemon.Daemon, *session.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	gen := &generator.Mock{}
	runner := pipeline.NewWithComponents(cfg, store, logger, pipeline.Components{
		Narrator:  narrate.NewWithGenerator(cfg, store, logger, gen),
		Annotator: annotate.NewWithGenerator(cfg, store, logger, gen),
	})

	d, err := daemon.New(cfg, store, logger, runner, filepath.Join(cfg.Paths.LogDir, "lectern.log"), logging.NewStreamHub(128))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d, store, cfg
}

func waitForStatus(t *testing.T, store *session.Store, id int64, want session.Status) *session.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if sess != nil && sess.Status == want {
			return sess
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("session %d never reached %s", id, want)
	return nil
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected a pid, got %d", status.PID)
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected a start timestamp")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}

	// The lock must be free again for a fresh start.
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	d.Stop()
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	first, store, cfg := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	logger := logging.NewNop()
	runner := pipeline.New(cfg, store, logger)
	second, err := daemon.New(cfg, store, logger, runner, first.LogPath(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestDaemonRunStageDispatchesInBackground(t *testing.T) {
	d, store, cfg := newTestDaemon(t)
	sess := testsupport.NewDeckSession(t, cfg, store, "Async Narration")
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	accepted, err := d.RunStage(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if accepted.ID != sess.ID {
		t.Fatalf("expected session %d back from preflight, got %d", sess.ID, accepted.ID)
	}

	narrated := waitForStatus(t, store, sess.ID, session.StatusNarrated)
	if set, err := store.LatestSceneSet(ctx, narrated.ID, scene.StageNarrate); err != nil || set == nil {
		t.Fatalf("expected narrate scene set, got %+v err %v", set, err)
	}

	// Annotation is gated on the narration approval even for async dispatch.
	if _, err := d.RunStage(ctx, sess.ID, scene.StageAnnotate); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestDaemonRunStageRequiresRunningDaemon(t *testing.T) {
	d, store, cfg := newTestDaemon(t)
	sess := testsupport.NewDeckSession(t, cfg, store, "Stopped Daemon")

	if _, err := d.RunStage(context.Background(), sess.ID, scene.StageNarrate); err == nil {
		t.Fatal("expected stage dispatch to fail while stopped")
	}
}

func TestDaemonAddDeck(t *testing.T) {
	d, store, cfg := newTestDaemon(t)
	ctx := context.Background()

	deckPath := filepath.Join(testsupport.BaseDir(cfg), "manual-drop.pdf")
	testsupport.WriteDeck(t, deckPath)

	sess, err := d.AddDeck(ctx, deckPath)
	if err != nil {
		t.Fatalf("AddDeck: %v", err)
	}
	if sess.Title != "manual drop" {
		t.Fatalf("expected derived title, got %q", sess.Title)
	}

	if _, err := d.AddDeck(ctx, deckPath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate deck rejection, got %v", err)
	}
	if _, err := d.AddDeck(ctx, "   "); err == nil {
		t.Fatal("expected empty path rejection")
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("expected no notification without a configured topic")
	}
	if detail != "ntfy topic not configured" {
		t.Fatalf("unexpected detail: %q", detail)
	}
}

func TestDaemonStatusIncludesStats(t *testing.T) {
	d, store, cfg := newTestDaemon(t)
	testsupport.NewDeckSession(t, cfg, store, "Stats Deck")
	ctx := context.Background()

	status := d.Status(ctx)
	if status.Running {
		t.Fatal("expected stopped daemon")
	}
	if status.SessionStats[session.StatusEmpty] != 1 {
		t.Fatalf("expected one empty session in stats, got %+v", status.SessionStats)
	}
	if status.DBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths in status, got %+v", status)
	}
}
