package deckwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/config"
	"lectern/internal/deck"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/session"
)

// sweepInterval is how often pending decks are checked against their settle
// deadline.
const sweepInterval = 500 * time.Millisecond

// StageTrigger starts the narrate stage for a freshly registered session.
// The pipeline runner satisfies this interface.
type StageTrigger interface {
	RunNarrate(ctx context.Context, sessionID int64) (*session.Session, error)
}

// Watcher observes the inbox directory and turns settled PDF decks into
// sessions.
type Watcher struct {
	cfg      *config.Config
	store    *session.Store
	notifier notifications.Service
	trigger  StageTrigger
	logger   *slog.Logger

	inboxDir    string
	settle      time.Duration
	autoNarrate bool
	fs          *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a watcher for the configured inbox directory. The directory
// must exist before Start is called.
func New(cfg *config.Config, store *session.Store, notifier notifications.Service, trigger StageTrigger, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("deck watcher requires config and store")
	}
	inbox := strings.TrimSpace(cfg.Paths.InboxDir)
	if inbox == "" {
		return nil, errors.New("inbox directory is not configured")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	if settle < 0 {
		settle = 0
	}

	return &Watcher{
		cfg:         cfg,
		store:       store,
		notifier:    notifier,
		trigger:     trigger,
		logger:      logger.With(logging.String("component", "deck-watcher")),
		inboxDir:    inbox,
		settle:      settle,
		autoNarrate: cfg.Watch.AutoNarrate,
		pending:     make(map[string]time.Time),
	}, nil
}

// Start begins watching the inbox. Decks already present in the directory are
// scheduled immediately so drops made while the daemon was down are not lost.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return errors.New("deck watcher unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("deck watcher already running")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.inboxDir); err != nil {
		_ = fs.Close()
		return err
	}
	w.fs = fs
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.scanExistingLocked()

	w.wg.Add(1)
	go w.loop(fs)

	w.logger.Info("deck watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String("inbox_dir", w.inboxDir),
		logging.Duration("settle", w.settle),
		logging.Bool("auto_narrate", w.autoNarrate))
	return nil
}

// Stop halts the watcher and waits for in-flight deck handling to finish.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fs := w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fs != nil {
		_ = fs.Close()
	}
	w.wg.Wait()
	w.logger.Info("deck watcher stopped",
		logging.String(logging.FieldEventType, "watcher_stopped"))
}

// Running reports whether the watcher loop is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) scanExistingLocked() {
	entries, err := os.ReadDir(w.inboxDir)
	if err != nil {
		w.logger.Warn("inbox scan failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "inbox_scan_failed"),
			logging.String("inbox_dir", w.inboxDir))
		return
	}
	deadline := time.Now().Add(w.settle)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.inboxDir, entry.Name())
		if !isDeckFile(path) {
			continue
		}
		w.pending[path] = deadline
	}
}

func (w *Watcher) loop(fs *fsnotify.Watcher) {
	defer w.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isDeckFile(event.Name) {
				w.logger.Debug("ignoring non-deck file", logging.String("path", event.Name))
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watcher_error"))
		case <-ticker.C:
			w.sweep()
		}
	}
}

// schedule records or extends the settle deadline for a deck path. Every
// write event pushes the deadline out so copies in progress are left alone.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.pending[path] = time.Now().Add(w.settle)
}

func (w *Watcher) sweep() {
	now := time.Now()
	var due []string
	w.mu.Lock()
	for path, deadline := range w.pending {
		if !deadline.After(now) {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range due {
		w.wg.Add(1)
		go func(deckPath string) {
			defer w.wg.Done()
			w.handleDeck(w.ctx, deckPath)
		}(path)
	}
}

func (w *Watcher) handleDeck(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	d, err := deck.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.logger.Debug("deck removed before processing", logging.String("path", path))
			return
		}
		w.logger.Warn("deck rejected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "deck_rejected"),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "Only complete PDF documents are accepted from the inbox"))
		return
	}

	existing, err := w.store.FindByDeckSHA(ctx, d.SHA256)
	if err != nil {
		w.logger.Warn("deck lookup failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "deck_lookup_failed"),
			logging.String("path", path))
		return
	}
	if existing != nil {
		w.logger.Debug("deck already tracked",
			logging.Int64(logging.FieldSessionID, existing.ID),
			logging.String("status", string(existing.Status)),
			logging.String("path", path))
		if existing.Status == session.StatusEmpty {
			w.maybeNarrate(ctx, existing.ID)
		}
		return
	}

	sess, err := w.store.NewSession(ctx, d.Title, d.Path, d.MIMEType, d.SHA256)
	if err != nil {
		w.logger.Error("session create failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "session_create_failed"),
			logging.String("path", path))
		return
	}

	w.logger.Info("deck detected",
		logging.String(logging.FieldEventType, "deck_detected"),
		logging.Int64(logging.FieldSessionID, sess.ID),
		logging.String("session_title", sess.Title),
		logging.String("deck_path", d.Path),
		logging.Int64("deck_bytes", d.Size()))

	if err := w.notifier.Publish(ctx, notifications.EventDeckDetected, notifications.Payload{
		"title": sess.Title,
	}); err != nil {
		w.logger.Debug("deck notification failed", logging.Error(err))
	}

	w.maybeNarrate(ctx, sess.ID)
}

// maybeNarrate starts the narrate stage when auto narration is enabled. Stage
// failures are already logged and rolled back by the runner.
func (w *Watcher) maybeNarrate(ctx context.Context, sessionID int64) {
	if !w.autoNarrate || w.trigger == nil || ctx.Err() != nil {
		return
	}
	if _, err := w.trigger.RunNarrate(ctx, sessionID); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("auto narration failed",
			logging.Error(err),
			logging.Int64(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldEventType, "auto_narrate_failed"))
	}
}

func isDeckFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".pdf":
		return true
	default:
		return false
	}
}
