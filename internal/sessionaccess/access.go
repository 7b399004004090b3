package sessionaccess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"log/slog"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/ipc"
	"lectern/internal/pipeline"
	"lectern/internal/scene"
	"lectern/internal/session"
)

// Access provides session operations regardless of IPC or direct store
// backing. Over IPC, stage runs dispatch in the daemon and return
// immediately; in direct mode they run synchronously in-process.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Session, error)
	Describe(ctx context.Context, id int64) (*api.Session, error)
	Scenes(ctx context.Context, id int64) (api.SceneSetResponse, error)
	AddDeck(ctx context.Context, path string) (api.Session, error)
	RunStage(ctx context.Context, id int64, stage string) (api.Session, string, error)
	Approve(ctx context.Context, id int64) (api.Session, error)
	Edit(ctx context.Context, id int64, edits []scene.Edit) (api.SceneSet, error)
	Export(ctx context.Context, id int64) (ExportOutcome, error)
	Regenerate(ctx context.Context, id int64, stage string) (api.Session, error)
	Reset(ctx context.Context, id int64) (api.Session, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearExported(ctx context.Context) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	Health(ctx context.Context) (session.HealthSummary, error)
}

// ExportOutcome describes the files written by an export.
type ExportOutcome struct {
	Session    api.Session
	Dir        string
	ScenesPath string
	ScriptPath string
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct database access and an
// in-process pipeline runner.
func NewStoreAccess(cfg *config.Config, store *session.Store, logger *slog.Logger) Access {
	return &storeAccess{
		store:   store,
		service: api.NewSessionService(store),
		runner:  pipeline.New(cfg, store, logger),
	}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.SessionStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.Session, error) {
	resp, err := a.client.SessionList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.Session, error) {
	resp, err := a.client.SessionDescribe(id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Session, nil
}

func (a *ipcAccess) Scenes(_ context.Context, id int64) (api.SceneSetResponse, error) {
	resp, err := a.client.SceneList(id)
	if err != nil {
		return api.SceneSetResponse{}, err
	}
	return api.SceneSetResponse{SceneSet: resp.SceneSet, Versions: resp.Versions}, nil
}

func (a *ipcAccess) AddDeck(_ context.Context, path string) (api.Session, error) {
	resp, err := a.client.DeckAdd(path)
	if err != nil {
		return api.Session{}, err
	}
	return resp.Session, nil
}

func (a *ipcAccess) RunStage(_ context.Context, id int64, stage string) (api.Session, string, error) {
	resp, err := a.client.StageRun(id, stage)
	if err != nil {
		return api.Session{}, "", err
	}
	return resp.Session, resp.Message, nil
}

func (a *ipcAccess) Approve(_ context.Context, id int64) (api.Session, error) {
	resp, err := a.client.Approve(id)
	if err != nil {
		return api.Session{}, err
	}
	return resp.Session, nil
}

func (a *ipcAccess) Edit(_ context.Context, id int64, edits []scene.Edit) (api.SceneSet, error) {
	resp, err := a.client.Edit(id, edits)
	if err != nil {
		return api.SceneSet{}, err
	}
	return resp.SceneSet, nil
}

func (a *ipcAccess) Export(_ context.Context, id int64) (ExportOutcome, error) {
	resp, err := a.client.Export(id)
	if err != nil {
		return ExportOutcome{}, err
	}
	return ExportOutcome{
		Session:    resp.Session,
		Dir:        resp.Dir,
		ScenesPath: resp.ScenesPath,
		ScriptPath: resp.ScriptPath,
	}, nil
}

func (a *ipcAccess) Regenerate(_ context.Context, id int64, stage string) (api.Session, error) {
	resp, err := a.client.Regenerate(id, stage)
	if err != nil {
		return api.Session{}, err
	}
	return resp.Session, nil
}

func (a *ipcAccess) Reset(_ context.Context, id int64) (api.Session, error) {
	resp, err := a.client.SessionReset(id)
	if err != nil {
		return api.Session{}, err
	}
	return resp.Session, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		resp, err := a.client.SessionRemove(id)
		if err != nil {
			return count, err
		}
		if resp.Removed {
			count++
		}
	}
	return count, nil
}

func (a *ipcAccess) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.SessionsClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ClearExported(_ context.Context) (int64, error) {
	resp, err := a.client.SessionsClearExported()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) ResetStuck(_ context.Context) (int64, error) {
	resp, err := a.client.SessionsResetStuck()
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *ipcAccess) Health(_ context.Context) (session.HealthSummary, error) {
	resp, err := a.client.SessionHealth()
	if err != nil {
		return session.HealthSummary{}, err
	}
	return session.HealthSummary{
		Total:      resp.Total,
		Draft:      resp.Draft,
		Processing: resp.Processing,
		Review:     resp.Review,
		Exported:   resp.Exported,
	}, nil
}

type storeAccess struct {
	store   *session.Store
	service *api.SessionService
	runner  *pipeline.Runner
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Session, error) {
	var filters []session.Status
	for _, s := range statuses {
		if parsed, ok := session.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Session, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Scenes(ctx context.Context, id int64) (api.SceneSetResponse, error) {
	return a.service.Scenes(ctx, id)
}

func (a *storeAccess) AddDeck(ctx context.Context, path string) (api.Session, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return api.Session{}, fmt.Errorf("deck path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return api.Session{}, fmt.Errorf("resolve deck path: %w", err)
	}
	sess, err := pipeline.RegisterDeck(ctx, a.store, absPath)
	if err != nil {
		return api.Session{}, err
	}
	return api.FromSession(sess), nil
}

func (a *storeAccess) RunStage(ctx context.Context, id int64, stage string) (api.Session, string, error) {
	st, err := scene.ParseStage(stage)
	if err != nil {
		return api.Session{}, "", err
	}
	var sess *session.Session
	switch st {
	case scene.StageNarrate:
		sess, err = a.runner.RunNarrate(ctx, id)
	case scene.StageAnnotate:
		sess, err = a.runner.RunAnnotate(ctx, id)
	default:
		return api.Session{}, "", fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return api.Session{}, "", err
	}
	return api.FromSession(sess), fmt.Sprintf("%s stage completed for session %d", st, id), nil
}

func (a *storeAccess) Approve(ctx context.Context, id int64) (api.Session, error) {
	sess, err := a.runner.Approve(ctx, id)
	if err != nil {
		return api.Session{}, err
	}
	return api.FromSession(sess), nil
}

func (a *storeAccess) Edit(ctx context.Context, id int64, edits []scene.Edit) (api.SceneSet, error) {
	set, err := a.runner.ApplyEdits(ctx, id, edits)
	if err != nil {
		return api.SceneSet{}, err
	}
	if dto := api.FromSceneSet(set); dto != nil {
		return *dto, nil
	}
	return api.SceneSet{}, nil
}

func (a *storeAccess) Export(ctx context.Context, id int64) (ExportOutcome, error) {
	sess, result, err := a.runner.Export(ctx, id)
	if err != nil {
		return ExportOutcome{}, err
	}
	return ExportOutcome{
		Session:    api.FromSession(sess),
		Dir:        result.Dir,
		ScenesPath: result.ScenesPath,
		ScriptPath: result.ScriptPath,
	}, nil
}

func (a *storeAccess) Regenerate(ctx context.Context, id int64, stage string) (api.Session, error) {
	st, err := scene.ParseStage(stage)
	if err != nil {
		return api.Session{}, err
	}
	sess, err := a.runner.Regenerate(ctx, id, st)
	if err != nil {
		return api.Session{}, err
	}
	return api.FromSession(sess), nil
}

func (a *storeAccess) Reset(ctx context.Context, id int64) (api.Session, error) {
	sess, err := a.runner.Reset(ctx, id)
	if err != nil {
		return api.Session{}, err
	}
	return api.FromSession(sess), nil
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearExported(ctx context.Context) (int64, error) {
	return a.store.ClearExported(ctx)
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) Health(ctx context.Context) (session.HealthSummary, error) {
	return a.store.Health(ctx)
}
