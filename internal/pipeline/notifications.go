package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/scene"
	"lectern/internal/session"
)

func (r *Runner) notifyStageComplete(ctx context.Context, st scene.Stage, sess *session.Session) {
	if r.notifier == nil || sess == nil {
		return
	}
	payload := notifications.Payload{"title": sess.Title}
	var event notifications.Event
	switch st {
	case scene.StageNarrate:
		event = notifications.EventNarrationComplete
		if set, err := r.store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate); err == nil && set != nil {
			payload["sceneCount"] = strconv.Itoa(len(set.Scenes))
		}
	case scene.StageAnnotate:
		event = notifications.EventAnnotationComplete
	default:
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		r.opLogger(ctx).Debug("stage completion notification failed", logging.Error(err))
	}
}

func (r *Runner) notifyStageError(ctx context.Context, st scene.Stage, sess *session.Session, message string) {
	if r.notifier == nil {
		return
	}
	stageLabel := string(st)
	payload := notifications.Payload{"error": message}
	if sess != nil {
		stageLabel = fmt.Sprintf("%s (session #%d)", st, sess.ID)
		payload["title"] = sess.Title
	}
	payload["stage"] = stageLabel
	if err := r.notifier.Publish(ctx, notifications.EventError, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			r.opLogger(ctx).Debug("shutdown before error notification could be sent")
		} else {
			r.opLogger(ctx).Debug("stage error notification failed", logging.Error(err))
		}
	}
}

func (r *Runner) notifyExportComplete(ctx context.Context, sess *session.Session, exportDir string) {
	if r.notifier == nil || sess == nil {
		return
	}
	if err := r.notifier.Publish(ctx, notifications.EventExportComplete, notifications.Payload{
		"title":     sess.Title,
		"exportDir": exportDir,
	}); err != nil {
		r.opLogger(ctx).Debug("export notification failed", logging.Error(err))
	}
}
