package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lectern/internal/scene"
)

// SceneSetInfo summarizes one stored scene set version without its payload.
type SceneSetInfo struct {
	Stage      scene.Stage
	Version    int
	SceneCount int
	CreatedAt  time.Time
}

// SaveSceneSet stores a new immutable scene set version for a stage. Earlier
// versions are never modified; each save appends version MAX+1.
func (s *Store) SaveSceneSet(ctx context.Context, sessionID int64, stage scene.Stage, scenes []scene.Scene) (*scene.Set, error) {
	if err := scene.Validate(scenes); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(scenes)
	if err != nil {
		return nil, fmt.Errorf("encode scenes: %w", err)
	}

	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin scene set tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latest int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(version), 0) FROM scene_sets WHERE session_id = ? AND stage = ?`,
		sessionID, string(stage),
	).Scan(&latest); err != nil {
		return nil, fmt.Errorf("read latest version: %w", err)
	}

	now := time.Now().UTC()
	version := latest + 1
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO scene_sets (session_id, stage, version, scenes_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(stage), version, string(payload), now.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("insert scene set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scene set: %w", err)
	}

	set := &scene.Set{Stage: stage, Version: version, Scenes: scenes, CreatedAt: now}
	return set.Clone(), nil
}

// LatestSceneSet returns the newest scene set version for a stage, or nil
// when the stage has produced nothing yet.
func (s *Store) LatestSceneSet(ctx context.Context, sessionID int64, stage scene.Stage) (*scene.Set, error) {
	return s.sceneSetWhere(
		ctx,
		`SELECT stage, version, scenes_json, created_at FROM scene_sets
         WHERE session_id = ? AND stage = ?
         ORDER BY version DESC LIMIT 1`,
		sessionID, string(stage),
	)
}

// SceneSetVersion returns one specific stored version, or nil when absent.
func (s *Store) SceneSetVersion(ctx context.Context, sessionID int64, stage scene.Stage, version int) (*scene.Set, error) {
	return s.sceneSetWhere(
		ctx,
		`SELECT stage, version, scenes_json, created_at FROM scene_sets
         WHERE session_id = ? AND stage = ? AND version = ?`,
		sessionID, string(stage), version,
	)
}

func (s *Store) sceneSetWhere(ctx context.Context, query string, args ...any) (*scene.Set, error) {
	ctx = ensureContext(ctx)
	var (
		stageRaw  string
		version   int
		payload   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&stageRaw, &version, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query scene set: %w", err)
	}

	scenes, err := scene.UnmarshalDocument([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode stored scenes: %w", err)
	}
	set := &scene.Set{Stage: scene.Stage(stageRaw), Version: version, Scenes: scenes}
	if created, err := parseTimeString(createdAt); err == nil {
		set.CreatedAt = created
	}
	return set, nil
}

// ListSceneSets reports every stored version for a session, oldest first
// within each stage.
func (s *Store) ListSceneSets(ctx context.Context, sessionID int64) ([]SceneSetInfo, error) {
	ctx = ensureContext(ctx)
	// "narrate" sorts after "annotate", so stage DESC is pipeline order.
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT stage, version, scenes_json, created_at FROM scene_sets
         WHERE session_id = ?
         ORDER BY stage DESC, version ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scene sets: %w", err)
	}
	defer rows.Close()

	var infos []SceneSetInfo
	for rows.Next() {
		var (
			stageRaw  string
			version   int
			payload   string
			createdAt string
		)
		if err := rows.Scan(&stageRaw, &version, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan scene set: %w", err)
		}
		scenes, err := scene.UnmarshalDocument([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode stored scenes: %w", err)
		}
		info := SceneSetInfo{
			Stage:      scene.Stage(stageRaw),
			Version:    version,
			SceneCount: len(scenes),
		}
		if created, err := parseTimeString(createdAt); err == nil {
			info.CreatedAt = created
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scene sets: %w", err)
	}
	return infos, nil
}

// DeleteSceneSets removes all stored versions for the given stages.
func (s *Store) DeleteSceneSets(ctx context.Context, sessionID int64, stages ...scene.Stage) (int64, error) {
	if len(stages) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(stages)+1)
	args = append(args, sessionID)
	for _, st := range stages {
		args = append(args, string(st))
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM scene_sets WHERE session_id = ? AND stage IN (`+makePlaceholders(len(stages))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete scene sets: %w", err)
	}
	return res.RowsAffected()
}
