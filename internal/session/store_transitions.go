package session

import (
	"context"
	"fmt"
	"time"

	"lectern/internal/scene"
	"lectern/internal/services"
)

// StatusUpdate carries the presentation fields written alongside a status
// transition. Zero-value fields clear the corresponding columns, so every
// transition fully states the session's progress/error/export surface.
type StatusUpdate struct {
	ProgressStage   string
	ProgressMessage string
	ErrorMessage    string
	ExportDir       string
	SetHeartbeat    bool
}

// TransitionStatus atomically moves a session from one status to another.
// The move is compare-and-set on the current status: a session no longer in
// `from` (for example after a concurrent invocation or a reset) fails with a
// state error, and a missing session fails with a not-found error.
func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to Status, update StatusUpdate) (*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var heartbeat any
	if update.SetHeartbeat {
		heartbeat = now
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions
         SET status = ?, progress_stage = ?, progress_message = ?, error_message = ?,
             export_dir = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		to,
		nullableString(update.ProgressStage),
		nullableString(update.ProgressMessage),
		nullableString(update.ErrorMessage),
		nullableString(update.ExportDir),
		heartbeat,
		now,
		id,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("transition session %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("session %d not found: %w", id, services.ErrNotFound)
		}
		return nil, fmt.Errorf("session %d is %s, expected %s: %w", id, current.Status, from, services.ErrState)
	}
	return s.GetByID(ctx, id)
}

// SetApproval records a checkpoint approval flag. The session must sit at the
// matching checkpoint status; anything else fails with a state error.
func (s *Store) SetApproval(ctx context.Context, id int64, stage scene.Stage, approved bool) error {
	var column string
	var required Status
	switch stage {
	case scene.StageNarrate:
		column = "narration_approved"
		required = StatusNarrated
	case scene.StageAnnotate:
		column = "annotation_approved"
		required = StatusAnnotated
	default:
		return fmt.Errorf("unknown stage %q: %w", stage, services.ErrValidation)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET `+column+` = ?, updated_at = ? WHERE id = ? AND status = ?`,
		boolToInt(approved),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		required,
	)
	if err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if current == nil {
			return fmt.Errorf("session %d not found: %w", id, services.ErrNotFound)
		}
		return fmt.Errorf("session %d is %s, approval requires %s: %w", id, current.Status, required, services.ErrState)
	}
	return nil
}

// Reset returns a session to the empty state from any status, discarding all
// scene sets, approvals, and progress.
func (s *Store) Reset(ctx context.Context, id int64) (*Session, error) {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE sessions
         SET status = ?, narration_approved = 0, annotation_approved = 0,
             error_message = NULL, progress_stage = NULL, progress_message = NULL,
             export_dir = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ?`,
		StatusEmpty,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("session %d not found: %w", id, services.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_sets WHERE session_id = ?`, id); err != nil {
		return nil, fmt.Errorf("discard scene sets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reset: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Regenerate reopens a stage for re-running: it discards the stage's scene
// sets and every later stage's, clears the affected approvals, and moves the
// session back to the status from which the stage can run. The move is
// compare-and-set on `from` so concurrent transitions lose cleanly.
func (s *Store) Regenerate(ctx context.Context, id int64, from Status, stage scene.Stage) (*Session, error) {
	var (
		target    Status
		setClause string
		stages    []scene.Stage
	)
	switch stage {
	case scene.StageNarrate:
		target = StatusEmpty
		setClause = "narration_approved = 0, annotation_approved = 0"
		stages = []scene.Stage{scene.StageNarrate, scene.StageAnnotate}
	case scene.StageAnnotate:
		target = StatusNarrated
		setClause = "annotation_approved = 0"
		stages = []scene.Stage{scene.StageAnnotate}
	default:
		return nil, fmt.Errorf("unknown stage %q: %w", stage, services.ErrValidation)
	}

	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin regenerate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE sessions
         SET status = ?, `+setClause+`,
             error_message = NULL, progress_stage = NULL, progress_message = NULL,
             export_dir = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		target,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("regenerate session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("session %d not found: %w", id, services.ErrNotFound)
		}
		return nil, fmt.Errorf("session %d is %s, expected %s: %w", id, current.Status, from, services.ErrState)
	}

	placeholders := makePlaceholders(len(stages))
	args := make([]any, 0, len(stages)+1)
	args = append(args, id)
	for _, st := range stages {
		args = append(args, string(st))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_sets WHERE session_id = ? AND stage IN (`+placeholders+`)`, args...); err != nil {
		return nil, fmt.Errorf("discard stage scene sets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit regenerate: %w", err)
	}
	return s.GetByID(ctx, id)
}

// TouchProgress updates the presentation progress fields without changing
// status, used for checkpoint edits and mid-stage notes.
func (s *Store) TouchProgress(ctx context.Context, id int64, stage, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE sessions SET progress_stage = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("touch progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight session.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE sessions SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing rolls sessions stuck in a processing status back to
// the prior checkpoint when their heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            progress_stage = 'Reclaimed from stale processing',
            progress_message = NULL,
            error_message = 'stage heartbeat expired',
            last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusNarrating, StatusEmpty,
		StatusAnnotating, StatusNarrated,
		now.Format(time.RFC3339Nano),
		StatusNarrating,
		StatusAnnotating,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale sessions: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing rolls every processing session back to the prior
// checkpoint regardless of heartbeat age, for manual rescue after a crash.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusNarrating, StatusEmpty,
		StatusAnnotating, StatusNarrated,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusNarrating,
		StatusAnnotating,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck sessions: %w", err)
	}
	return res.RowsAffected()
}
