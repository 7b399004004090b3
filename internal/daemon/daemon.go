package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/deckwatch"
	"lectern/internal/export"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/pipeline"
	"lectern/internal/preflight"
	"lectern/internal/scene"
	"lectern/internal/session"
	"lectern/internal/stage"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	runner  *pipeline.Runner
	watcher *deckwatch.Watcher
	api     *apiServer
	hub     *logging.StreamHub
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	mu        sync.Mutex
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	DBPath       string
	LockFilePath string
	Watching     bool
	InboxDir     string
	ExportDir    string
	SessionStats map[session.Status]int
	StageHealth  []stage.Health
}

// New constructs a daemon with initialized dependencies. The hub carries the
// structured log stream served over the HTTP API and may be nil; logPath
// points at the file the process logs to so clients can tail it directly.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger, runner *pipeline.Runner, logPath string, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, logger, and pipeline runner")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "lectern.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		runner:   runner,
		hub:      hub,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	if cfg.Watch.Enabled {
		watcher, err := deckwatch.New(cfg, store, notifications.NewService(cfg), runner, logger)
		if err != nil {
			logger.Warn("inbox watcher unavailable", logging.Error(err))
		} else {
			d.watcher = watcher
		}
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the daemon lock and launches the background services: the
// HTTP API, the stale-session reclaim loop, and the inbox watcher when
// configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	for _, check := range preflight.RunAll(d.cfg) {
		if check.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "fix the directory in the [paths] config section"),
		)
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now().UTC()
	runCtx := d.ctx
	d.mu.Unlock()

	if err := d.api.start(runCtx); err != nil {
		d.teardownLocked()
		return err
	}

	d.wg.Add(1)
	go d.runner.StartReclaimLoop(runCtx, &d.wg)

	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			d.logger.Warn("inbox watcher failed to start", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("lectern daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("watching", d.Watching()),
	)
	return nil
}

func (d *Daemon) teardownLocked() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()
	_ = d.lock.Unlock()
}

// Stop halts background services, waits for in-flight stage runs, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.running.Store(false)

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Unlock()

	if d.watcher != nil {
		d.watcher.Stop()
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListSessions returns sessions filtered by optional statuses.
func (d *Daemon) ListSessions(ctx context.Context, statuses []session.Status) ([]*session.Session, error) {
	if d.store == nil {
		return nil, errors.New("session store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetSession fetches a single session by id.
func (d *Daemon) GetSession(ctx context.Context, id int64) (*session.Session, error) {
	if d.store == nil {
		return nil, errors.New("session store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// SessionService exposes the read-side session API backed by the daemon's
// store. IPC handlers use it for responses that need DTO shaping.
func (d *Daemon) SessionService() *api.SessionService {
	return api.NewSessionService(d.store)
}

// AddDeck registers a slide deck file as a new session without waiting for
// the inbox watcher to find it.
func (d *Daemon) AddDeck(ctx context.Context, sourcePath string) (*session.Session, error) {
	if d.store == nil {
		return nil, errors.New("session store unavailable")
	}
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("deck path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve deck path: %w", err)
	}
	sess, err := pipeline.RegisterDeck(ctx, d.store, absPath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("deck queued",
		logging.Int64(logging.FieldSessionID, sess.ID),
		logging.String("deck_path", absPath),
	)
	return sess, nil
}

// RunStage checks that the session can start the given stage and dispatches
// the run in the background. Generation can take minutes, so the call
// returns once the preflight passes; progress is observable through session
// status and the log stream.
func (d *Daemon) RunStage(ctx context.Context, id int64, st scene.Stage) (*session.Session, error) {
	if d.runner == nil {
		return nil, errors.New("pipeline runner unavailable")
	}
	sess, err := d.runner.StagePrecondition(ctx, id, st)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if !d.running.Load() || d.ctx == nil {
		d.mu.Unlock()
		return nil, errors.New("daemon is not running")
	}
	runCtx := d.ctx
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		var runErr error
		switch st {
		case scene.StageAnnotate:
			_, runErr = d.runner.RunAnnotate(runCtx, id)
		default:
			_, runErr = d.runner.RunNarrate(runCtx, id)
		}
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			d.logger.Warn("background stage run failed",
				logging.Int64(logging.FieldSessionID, id),
				logging.String(logging.FieldStage, string(st)),
				logging.Error(runErr),
			)
		}
	}()
	return sess, nil
}

// Approve records the human sign-off for the checkpoint the session sits at.
func (d *Daemon) Approve(ctx context.Context, id int64) (*session.Session, error) {
	if d.runner == nil {
		return nil, errors.New("pipeline runner unavailable")
	}
	return d.runner.Approve(ctx, id)
}

// ApplyEdits overlays partial scene edits onto the session's current
// checkpoint scene set.
func (d *Daemon) ApplyEdits(ctx context.Context, id int64, edits []scene.Edit) (*scene.Set, error) {
	if d.runner == nil {
		return nil, errors.New("pipeline runner unavailable")
	}
	return d.runner.ApplyEdits(ctx, id, edits)
}

// Export writes the approved annotated scenes to disk. Export is local file
// work, so unlike stage runs it completes synchronously.
func (d *Daemon) Export(ctx context.Context, id int64) (*session.Session, export.Result, error) {
	if d.runner == nil {
		return nil, export.Result{}, errors.New("pipeline runner unavailable")
	}
	return d.runner.Export(ctx, id)
}

// Regenerate reopens a stage so it can run again.
func (d *Daemon) Regenerate(ctx context.Context, id int64, st scene.Stage) (*session.Session, error) {
	if d.runner == nil {
		return nil, errors.New("pipeline runner unavailable")
	}
	return d.runner.Regenerate(ctx, id, st)
}

// ResetSession returns a session to empty, discarding generated content.
func (d *Daemon) ResetSession(ctx context.Context, id int64) (*session.Session, error) {
	if d.runner == nil {
		return nil, errors.New("pipeline runner unavailable")
	}
	return d.runner.Reset(ctx, id)
}

// RemoveSession deletes a session and its scene sets.
func (d *Daemon) RemoveSession(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("session store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// ClearSessions removes all sessions.
func (d *Daemon) ClearSessions(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("session store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearExported removes only exported sessions.
func (d *Daemon) ClearExported(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("session store unavailable")
	}
	return d.store.ClearExported(ctx)
}

// ResetStuck rolls sessions abandoned mid-generation back to their source
// checkpoints.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("session store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// SessionHealth returns aggregate session diagnostics.
func (d *Daemon) SessionHealth(ctx context.Context) (session.HealthSummary, error) {
	if d.store == nil {
		return session.HealthSummary{}, errors.New("session store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (session.DatabaseHealth, error) {
	if d.store == nil {
		return session.DatabaseHealth{}, errors.New("session store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// LogStream returns the in-memory structured log stream, if one is attached.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// Watching reports whether the inbox watcher is active.
func (d *Daemon) Watching() bool {
	return d.watcher != nil && d.watcher.Running()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Watching:     d.Watching(),
		InboxDir:     strings.TrimSpace(d.cfg.Paths.InboxDir),
		ExportDir:    strings.TrimSpace(d.cfg.Paths.ExportDir),
	}
	if status.Running {
		status.StartedAt = startedAt
	}
	if d.store != nil {
		if stats, err := d.store.Stats(ctx); err == nil {
			status.SessionStats = stats
		}
	}
	if d.runner != nil {
		status.StageHealth = d.runner.Health(ctx)
	}
	return status
}
