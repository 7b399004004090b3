package api

import (
	"context"

	"lectern/internal/scene"
	"lectern/internal/session"
)

// SessionReader abstracts session persistence interactions needed for API
// queries.
type SessionReader interface {
	List(ctx context.Context, statuses ...session.Status) ([]*session.Session, error)
	Stats(ctx context.Context) (map[session.Status]int, error)
	GetByID(ctx context.Context, id int64) (*session.Session, error)
	LatestSceneSet(ctx context.Context, sessionID int64, stage scene.Stage) (*scene.Set, error)
	ListSceneSets(ctx context.Context, sessionID int64) ([]session.SceneSetInfo, error)
}

// SessionService exposes read-only session operations returning API DTOs.
type SessionService struct {
	store SessionReader
}

// NewSessionService constructs a SessionService around the provided reader.
func NewSessionService(store SessionReader) *SessionService {
	if store == nil {
		return nil
	}
	return &SessionService{store: store}
}

// List returns sessions filtered by status.
func (s *SessionService) List(ctx context.Context, statuses ...session.Status) ([]Session, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	sessions, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromSessions(sessions), nil
}

// Stats returns session summary counts keyed by status string.
func (s *SessionService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeSessionStats(stats), nil
}

// Describe fetches a single session.
func (s *SessionService) Describe(ctx context.Context, id int64) (*Session, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	sess, err := s.store.GetByID(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	dto := FromSession(sess)
	return &dto, nil
}

// Scenes returns the scene set the session currently exposes for review,
// along with the stored version history. Checkpoint and exported sessions
// expose their own stage's latest set; a session annotating right now falls
// back to the narrated scenes feeding that run. Sessions with nothing to
// review return an empty response.
func (s *SessionService) Scenes(ctx context.Context, id int64) (SceneSetResponse, error) {
	if s == nil || s.store == nil {
		return SceneSetResponse{}, nil
	}
	sess, err := s.store.GetByID(ctx, id)
	if err != nil || sess == nil {
		return SceneSetResponse{}, err
	}

	st, ok := session.CheckpointStage(sess.Status)
	if !ok && sess.Status == session.StatusAnnotating {
		st, ok = scene.StageNarrate, true
	}

	resp := SceneSetResponse{}
	if infos, err := s.store.ListSceneSets(ctx, id); err == nil {
		resp.Versions = FromSceneSetInfos(infos)
	}
	if !ok {
		return resp, nil
	}

	set, err := s.store.LatestSceneSet(ctx, id, st)
	if err != nil {
		return SceneSetResponse{}, err
	}
	resp.SceneSet = FromSceneSet(set)
	return resp, nil
}
