package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/annotate"
	"lectern/internal/config"
	"lectern/internal/export"
	"lectern/internal/generator"
	"lectern/internal/logging"
	"lectern/internal/narrate"
	"lectern/internal/notifications"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/stage"
)

// Runner coordinates pipeline stages and checkpoint operations for sessions.
type Runner struct {
	cfg       *config.Config
	store     *session.Store
	logger    *slog.Logger
	narrator  stage.Handler
	annotator stage.Handler
	exporter  *export.Exporter
	notifier  notifications.Service

	heartbeatInterval time.Duration
	generationTimeout time.Duration
}

// Components carries the collaborators a Runner drives. Tests substitute
// their own; zero-value fields fall back to the defaults.
type Components struct {
	Narrator  stage.Handler
	Annotator stage.Handler
	Exporter  *export.Exporter
	Notifier  notifications.Service
}

// New constructs a runner with the default stage handlers and an ntfy-backed
// notifier. The scene generator is built once from configuration and shared
// by the narrate and annotate handlers.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger) *Runner {
	gen, err := generator.FromConfig(cfg)
	if err != nil {
		logging.NewComponentLogger(logger, "pipeline").Warn("scene generator unavailable", logging.Error(err))
		gen = nil
	}
	return NewWithComponents(cfg, store, logger, Components{
		Narrator:  narrate.NewWithGenerator(cfg, store, logger, gen),
		Annotator: annotate.NewWithGenerator(cfg, store, logger, gen),
	})
}

// NewWithComponents constructs a runner around explicit collaborators.
func NewWithComponents(cfg *config.Config, store *session.Store, logger *slog.Logger, comps Components) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	exporter := comps.Exporter
	if exporter == nil {
		exporter = export.New(cfg, logger)
	}
	notifier := comps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	heartbeat := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Runner{
		cfg:               cfg,
		store:             store,
		logger:            logger,
		narrator:          comps.Narrator,
		annotator:         comps.Annotator,
		exporter:          exporter,
		notifier:          notifier,
		heartbeatInterval: heartbeat,
		generationTimeout: time.Duration(cfg.Workflow.GenerationTimeoutSeconds) * time.Second,
	}
}

// Store exposes the backing session store for read-side callers.
func (r *Runner) Store() *session.Store {
	return r.store
}

// RunNarrate executes the narrate stage for a session sitting at empty. On
// success the session lands at narrated with a fresh scene set awaiting
// review; on failure it rolls back to empty with the error recorded.
func (r *Runner) RunNarrate(ctx context.Context, sessionID int64) (*session.Session, error) {
	return r.runStage(ctx, sessionID, scene.StageNarrate, r.narrator)
}

// RunAnnotate executes the annotate stage for a narrated session whose
// narration checkpoint has been approved. On success the session lands at
// annotated; on failure it rolls back to narrated with the error recorded.
func (r *Runner) RunAnnotate(ctx context.Context, sessionID int64) (*session.Session, error) {
	return r.runStage(ctx, sessionID, scene.StageAnnotate, r.annotator)
}

// StagePrecondition checks whether a session is ready to start the given
// stage without mutating it. Callers that dispatch stage runs asynchronously
// use it to reject bad requests up front; the actual transition stays
// compare-and-set, so a concurrent trigger that slips past the preflight
// still loses cleanly.
func (r *Runner) StagePrecondition(ctx context.Context, sessionID int64, st scene.Stage) (*session.Session, error) {
	if !st.Valid() {
		return nil, services.Wrap(services.ErrValidation, string(st), "resolve stage", fmt.Sprintf("Unknown stage %q", st), nil)
	}
	sess, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, string(st), "load session", fmt.Sprintf("Session %d not found", sessionID), nil)
	}
	if st == scene.StageAnnotate && sess.Status == session.StatusNarrated && !sess.NarrationApproved {
		return nil, services.Wrap(services.ErrPrecondition, string(st), "check approval", "Approve the narration checkpoint before annotating", nil)
	}
	if _, _, source := session.StageStatuses(st); sess.Status != source {
		return nil, services.Wrap(services.ErrState, string(st), "check status", fmt.Sprintf("Session %d is %s, expected %s", sessionID, sess.Status, source), nil)
	}
	return sess, nil
}

func (r *Runner) runStage(ctx context.Context, sessionID int64, st scene.Stage, handler stage.Handler) (*session.Session, error) {
	sess, err := r.StagePrecondition(ctx, sessionID, st)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(st), "resolve handler", "No handler configured for stage", nil)
	}

	running, ready, rollback := session.StageStatuses(st)
	labels := labelsFor(st)

	ctx = services.WithSessionID(ctx, sess.ID)
	ctx = services.WithStage(ctx, string(st))
	ctx = services.WithRequestID(ctx, uuid.NewString())

	stageLogger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "pipeline")).With(
		logging.String("session_title", strings.TrimSpace(sess.Title)),
	)
	if aware, ok := handler.(stage.LoggerAware); ok {
		aware.SetLogger(logging.WithContext(ctx, r.logger))
	}

	sess, err = r.store.TransitionStatus(ctx, sess.ID, rollback, running, session.StatusUpdate{
		ProgressStage:   labels.progress,
		ProgressMessage: labels.started,
		SetHeartbeat:    true,
	})
	if err != nil {
		return nil, err
	}

	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(running)),
		logging.String("deck_path", strings.TrimSpace(sess.DeckPath)),
	)

	if err := handler.Prepare(ctx, sess); err != nil {
		return nil, r.failStage(ctx, stageLogger, sess, st, err)
	}
	if err := r.store.Update(ctx, sess); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		return nil, r.failStage(ctx, stageLogger, sess, st, wrapped)
	}

	execErr := r.executeWithHeartbeat(ctx, handler, sess)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return nil, execErr
		}
		return nil, r.failStage(ctx, stageLogger, sess, st, execErr)
	}

	final, err := r.store.TransitionStatus(ctx, sess.ID, running, ready, session.StatusUpdate{
		ProgressStage:   sess.ProgressStage,
		ProgressMessage: sess.ProgressMessage,
	})
	if err != nil {
		stageLogger.Error("failed to land stage result", logging.Error(err))
		return nil, err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(final.Status)),
		logging.String("progress_message", strings.TrimSpace(final.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	r.notifyStageComplete(ctx, st, final)
	return final, nil
}

// failStage rolls a processing session back to its source checkpoint and
// records the failure on the row. The original stage error is always
// returned; rollback problems are logged and left to the reclaimer.
func (r *Runner) failStage(ctx context.Context, stageLogger *slog.Logger, sess *session.Session, st scene.Stage, stageErr error) error {
	running, _, rollback := session.StageStatuses(st)
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = fmt.Sprintf("%s failed", st)
	}

	attrs := []logging.Attr{
		logging.String("rollback_status", string(rollback)),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	stageLogger.Error("stage failed", logging.Args(attrs...)...)

	if _, err := r.store.TransitionStatus(ctx, sess.ID, running, rollback, session.StatusUpdate{
		ProgressStage: labelsFor(st).failed,
		ErrorMessage:  message,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("shutdown before failure rollback; reclaimer will recover the session")
		} else {
			stageLogger.Error("failed to roll back session after stage failure", logging.Error(err))
		}
	}

	r.notifyStageError(ctx, st, sess, message)
	return stageErr
}

// executeWithHeartbeat runs the handler's Execute while a background goroutine
// keeps the session heartbeat fresh. The handler context carries the
// generation timeout; the heartbeat runs on the parent context so a timed-out
// stage still reports failure itself rather than waiting for the reclaimer.
func (r *Runner) executeWithHeartbeat(ctx context.Context, handler stage.Handler, sess *session.Session) error {
	execCtx := ctx
	cancelTimeout := func() {}
	if r.generationTimeout > 0 {
		execCtx, cancelTimeout = context.WithTimeout(ctx, r.generationTimeout)
	}
	defer cancelTimeout()

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go r.heartbeatLoop(hbCtx, &hbWG, sess.ID)

	execErr := handler.Execute(execCtx, sess)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (r *Runner) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, sessionID int64) {
	defer wg.Done()
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "pipeline-heartbeat"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.store.UpdateHeartbeat(ctx, sessionID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("shutdown during heartbeat update")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}

// Health reports the readiness of the runner's stage handlers.
func (r *Runner) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, 2)
	if r.narrator != nil {
		checks = append(checks, r.narrator.HealthCheck(ctx))
	} else {
		checks = append(checks, stage.Unhealthy("narrator", "handler not configured"))
	}
	if r.annotator != nil {
		checks = append(checks, r.annotator.HealthCheck(ctx))
	} else {
		checks = append(checks, stage.Unhealthy("annotator", "handler not configured"))
	}
	return checks
}

type stageLabels struct {
	progress string
	started  string
	failed   string
	done     string
}

func labelsFor(st scene.Stage) stageLabels {
	switch st {
	case scene.StageNarrate:
		return stageLabels{
			progress: "Narrating",
			started:  "Narration started",
			failed:   "Narration failed",
			done:     "Narrated",
		}
	case scene.StageAnnotate:
		return stageLabels{
			progress: "Annotating",
			started:  "Annotation started",
			failed:   "Annotation failed",
			done:     "Annotated",
		}
	default:
		return stageLabels{
			progress: string(st),
			started:  fmt.Sprintf("%s started", st),
			failed:   fmt.Sprintf("%s failed", st),
			done:     string(st),
		}
	}
}

func (r *Runner) opLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "pipeline"))
}
