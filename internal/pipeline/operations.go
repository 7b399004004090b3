package pipeline

import (
	"context"
	"fmt"

	"lectern/internal/export"
	"lectern/internal/logging"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
)

// ApplyEdits overlays partial scene edits onto the session's current
// checkpoint scene set and stores the result as a new version at the same
// stage. Any edit addressing an index outside the set fails the whole call
// with a validation error; nothing is stored in that case.
func (r *Runner) ApplyEdits(ctx context.Context, sessionID int64, edits []scene.Edit) (*scene.Set, error) {
	sess, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "edit", "load session", fmt.Sprintf("Session %d not found", sessionID), nil)
	}

	var st scene.Stage
	switch sess.Status {
	case session.StatusNarrated:
		st = scene.StageNarrate
	case session.StatusAnnotated:
		st = scene.StageAnnotate
	default:
		return nil, services.Wrap(services.ErrState, "edit", "check status",
			fmt.Sprintf("Session %d is %s; edits require a checkpoint status", sessionID, sess.Status), nil)
	}

	set, err := r.store.LatestSceneSet(ctx, sessionID, st)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, services.Wrap(services.ErrPrecondition, "edit", "load scenes", "No scene set to edit; run the stage first", nil)
	}

	edited, err := scene.ApplyEdits(set.Scenes, edits)
	if err != nil {
		return nil, err
	}

	newSet, err := r.store.SaveSceneSet(ctx, sessionID, st, edited)
	if err != nil {
		return nil, err
	}

	logger := r.opLogger(ctx)
	if err := r.store.TouchProgress(ctx, sessionID, labelsFor(st).done,
		fmt.Sprintf("Applied %d edits; scenes at v%d", len(edits), newSet.Version)); err != nil {
		logger.Warn("failed to record edit progress", logging.Error(err))
	}
	logger.Info(
		"checkpoint edits applied",
		logging.Int64(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldStage, string(st)),
		logging.Int("edit_count", len(edits)),
		logging.Int("set_version", newSet.Version),
	)
	return newSet, nil
}

// Approve records the human sign-off for the checkpoint the session sits at.
// Approving an already approved checkpoint is a no-op; approval never
// advances the pipeline by itself.
func (r *Runner) Approve(ctx context.Context, sessionID int64) (*session.Session, error) {
	sess, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "approve", "load session", fmt.Sprintf("Session %d not found", sessionID), nil)
	}

	var st scene.Stage
	switch sess.Status {
	case session.StatusNarrated:
		st = scene.StageNarrate
	case session.StatusAnnotated:
		st = scene.StageAnnotate
	default:
		return nil, services.Wrap(services.ErrState, "approve", "check status",
			fmt.Sprintf("Session %d is %s; approval requires a checkpoint status", sessionID, sess.Status), nil)
	}

	if err := r.store.SetApproval(ctx, sessionID, st, true); err != nil {
		return nil, err
	}
	r.opLogger(ctx).Info(
		"checkpoint approved",
		logging.Int64(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldStage, string(st)),
	)
	return r.store.GetByID(ctx, sessionID)
}

// Regenerate reopens a stage for re-running. Scene sets for the stage and
// every later stage are discarded along with the affected approvals, and the
// session moves back to the status the stage runs from. Regenerating also
// reopens exported sessions.
func (r *Runner) Regenerate(ctx context.Context, sessionID int64, st scene.Stage) (*session.Session, error) {
	if !st.Valid() {
		return nil, services.Wrap(services.ErrValidation, "regenerate", "parse stage", fmt.Sprintf("Unknown stage %q", st), nil)
	}
	sess, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "regenerate", "load session", fmt.Sprintf("Session %d not found", sessionID), nil)
	}

	allowed := false
	switch st {
	case scene.StageNarrate:
		allowed = sess.Status == session.StatusNarrated ||
			sess.Status == session.StatusAnnotated ||
			sess.Status == session.StatusExported
	case scene.StageAnnotate:
		allowed = sess.Status == session.StatusAnnotated ||
			sess.Status == session.StatusExported
	}
	if !allowed {
		return nil, services.Wrap(services.ErrState, "regenerate", "check status",
			fmt.Sprintf("Session %d is %s; nothing to regenerate for the %s stage", sessionID, sess.Status, st), nil)
	}

	updated, err := r.store.Regenerate(ctx, sessionID, sess.Status, st)
	if err != nil {
		return nil, err
	}
	r.opLogger(ctx).Info(
		"stage reopened for regeneration",
		logging.Int64(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldStage, string(st)),
		logging.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Reset returns a session to empty, discarding every scene set, approval,
// and export record. The deck reference is kept so narration can rerun.
func (r *Runner) Reset(ctx context.Context, sessionID int64) (*session.Session, error) {
	updated, err := r.store.Reset(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r.opLogger(ctx).Info("session reset", logging.Int64(logging.FieldSessionID, sessionID))
	return updated, nil
}

// Export writes the approved annotated scenes to the export directory and
// moves the session to its terminal status. Exporting an already exported
// session fails with a state error; regenerate or reset reopens it.
func (r *Runner) Export(ctx context.Context, sessionID int64) (*session.Session, export.Result, error) {
	sess, err := r.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, export.Result{}, err
	}
	if sess == nil {
		return nil, export.Result{}, services.Wrap(services.ErrNotFound, "export", "load session", fmt.Sprintf("Session %d not found", sessionID), nil)
	}
	if sess.Status == session.StatusAnnotated && !sess.AnnotationApproved {
		return nil, export.Result{}, services.Wrap(services.ErrPrecondition, "export", "check approval", "Approve the annotation checkpoint before exporting", nil)
	}
	if sess.Status != session.StatusAnnotated {
		return nil, export.Result{}, services.Wrap(services.ErrState, "export", "check status",
			fmt.Sprintf("Session %d is %s, expected %s", sessionID, sess.Status, session.StatusAnnotated), nil)
	}

	set, err := r.store.LatestSceneSet(ctx, sessionID, scene.StageAnnotate)
	if err != nil {
		return nil, export.Result{}, err
	}
	if set == nil {
		return nil, export.Result{}, services.Wrap(services.ErrPrecondition, "export", "load scenes", "No annotated scenes to export; run the annotate stage first", nil)
	}

	result, err := r.exporter.Write(sess, set.Scenes)
	if err != nil {
		return nil, export.Result{}, err
	}

	final, err := r.store.TransitionStatus(ctx, sessionID, session.StatusAnnotated, session.StatusExported, session.StatusUpdate{
		ProgressStage:   "Exported",
		ProgressMessage: fmt.Sprintf("Wrote %d scenes to %s", len(set.Scenes), result.Dir),
		ExportDir:       result.Dir,
	})
	if err != nil {
		return nil, export.Result{}, err
	}

	r.opLogger(ctx).Info(
		"session exported",
		logging.Int64(logging.FieldSessionID, sessionID),
		logging.Int("scene_count", len(set.Scenes)),
		logging.String("export_dir", result.Dir),
	)
	r.notifyExportComplete(ctx, final, result.Dir)
	return final, result, nil
}
