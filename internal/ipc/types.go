package ipc

import (
	"lectern/internal/api"
	"lectern/internal/scene"
)

// Session mirrors the HTTP API session DTO for internal IPC callers.
type Session = api.Session

// SceneSet mirrors the HTTP API scene set DTO.
type SceneSet = api.SceneSet

// SceneSetInfo mirrors the HTTP API scene set version DTO.
type SceneSetInfo = api.SceneSetInfo

// StageHealth describes readiness of a pipeline stage.
type StageHealth = api.StageHealth

// SceneEdit carries one partial scene override; nil fields keep the stored
// value.
type SceneEdit = scene.Edit

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and pipeline status information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StartedAt    string         `json:"started_at"`
	LockPath     string         `json:"lock_path"`
	DBPath       string         `json:"db_path"`
	Watching     bool           `json:"watching"`
	InboxDir     string         `json:"inbox_dir"`
	ExportDir    string         `json:"export_dir"`
	SessionStats map[string]int `json:"session_stats"`
	StageHealth  []StageHealth  `json:"stage_health"`
}

// DeckAddRequest registers a slide deck by path.
type DeckAddRequest struct {
	Path string `json:"path"`
}

// DeckAddResponse contains the created session.
type DeckAddResponse struct {
	Session Session `json:"session"`
}

// SessionListRequest filters session listing by status.
type SessionListRequest struct {
	Statuses []string `json:"statuses"`
}

// SessionListResponse contains session entries.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionDescribeRequest fetches a single session by id.
type SessionDescribeRequest struct {
	ID int64 `json:"id"`
}

// SessionDescribeResponse contains a single session.
type SessionDescribeResponse struct {
	Session Session `json:"session"`
}

// SceneListRequest fetches the reviewable scene set for a session.
type SceneListRequest struct {
	ID int64 `json:"id"`
}

// SceneListResponse contains the scene set exposed for review, if any, and
// the stored version history.
type SceneListResponse struct {
	SceneSet *SceneSet      `json:"scene_set"`
	Versions []SceneSetInfo `json:"versions"`
}

// StageRunRequest dispatches a generation stage for a session.
type StageRunRequest struct {
	ID    int64  `json:"id"`
	Stage string `json:"stage"`
}

// StageRunResponse reports the accepted session and a progress hint.
type StageRunResponse struct {
	Session Session `json:"session"`
	Message string  `json:"message"`
}

// ApproveRequest records the checkpoint sign-off for a session.
type ApproveRequest struct {
	ID int64 `json:"id"`
}

// ApproveResponse contains the updated session.
type ApproveResponse struct {
	Session Session `json:"session"`
}

// EditRequest applies partial scene edits at the current checkpoint.
type EditRequest struct {
	ID    int64       `json:"id"`
	Edits []SceneEdit `json:"edits"`
}

// EditResponse contains the scene set version the edits produced.
type EditResponse struct {
	SceneSet SceneSet `json:"scene_set"`
}

// ExportRequest writes the approved scene document to disk.
type ExportRequest struct {
	ID int64 `json:"id"`
}

// ExportResponse reports the exported files.
type ExportResponse struct {
	Session    Session `json:"session"`
	Dir        string  `json:"dir"`
	ScenesPath string  `json:"scenes_path"`
	ScriptPath string  `json:"script_path"`
}

// RegenerateRequest reopens a stage for re-running.
type RegenerateRequest struct {
	ID    int64  `json:"id"`
	Stage string `json:"stage"`
}

// RegenerateResponse contains the reopened session.
type RegenerateResponse struct {
	Session Session `json:"session"`
}

// SessionResetRequest returns a session to empty.
type SessionResetRequest struct {
	ID int64 `json:"id"`
}

// SessionResetResponse contains the reset session.
type SessionResetResponse struct {
	Session Session `json:"session"`
}

// SessionRemoveRequest deletes a session.
type SessionRemoveRequest struct {
	ID int64 `json:"id"`
}

// SessionRemoveResponse reports whether a session was deleted.
type SessionRemoveResponse struct {
	Removed bool `json:"removed"`
}

// SessionsClearRequest removes all sessions.
type SessionsClearRequest struct{}

// SessionsClearResponse reports number of removed sessions.
type SessionsClearResponse struct {
	Removed int64 `json:"removed"`
}

// SessionsClearExportedRequest removes exported sessions.
type SessionsClearExportedRequest struct{}

// SessionsClearExportedResponse reports number of removed sessions.
type SessionsClearExportedResponse struct {
	Removed int64 `json:"removed"`
}

// SessionsResetStuckRequest rolls abandoned in-flight sessions back to their
// checkpoints.
type SessionsResetStuckRequest struct{}

// SessionsResetStuckResponse reports number of sessions rolled back.
type SessionsResetStuckResponse struct {
	Updated int64 `json:"updated"`
}

// SessionHealthRequest fetches aggregate diagnostics.
type SessionHealthRequest struct{}

// SessionHealthResponse reports session health information.
type SessionHealthResponse struct {
	Total      int `json:"total"`
	Draft      int `json:"draft"`
	Processing int `json:"processing"`
	Review     int `json:"review"`
	Exported   int `json:"exported"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalSessions    int      `json:"total_sessions"`
	Error            string   `json:"error"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
