package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session describes a pipeline session in a transport-friendly format.
type Session struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	DeckPath           string          `json:"deckPath"`
	DeckMIME           string          `json:"deckMime,omitempty"`
	DeckSHA256         string          `json:"deckSha256,omitempty"`
	Status             string          `json:"status"`
	NarrationApproved  bool            `json:"narrationApproved"`
	AnnotationApproved bool            `json:"annotationApproved"`
	Progress           SessionProgress `json:"progress"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	ExportDir          string          `json:"exportDir,omitempty"`
	CreatedAt          string          `json:"createdAt,omitempty"`
	UpdatedAt          string          `json:"updatedAt,omitempty"`
	LastHeartbeat      string          `json:"lastHeartbeat,omitempty"`
}

// SessionProgress captures stage progress information for a session.
type SessionProgress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Scene is the transport form of one generated scene.
type Scene struct {
	Index   int    `json:"index"`
	Comment string `json:"comment"`
	Speech  string `json:"speech"`
	Markup  string `json:"markup,omitempty"`
}

// SceneSet carries one stored scene set version with its payload.
type SceneSet struct {
	Stage     string  `json:"stage"`
	Version   int     `json:"version"`
	Scenes    []Scene `json:"scenes"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// SceneSetInfo summarizes a stored version without its scenes.
type SceneSetInfo struct {
	Stage      string `json:"stage"`
	Version    int    `json:"version"`
	SceneCount int    `json:"sceneCount"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	DBPath        string         `json:"dbPath"`
	LockFilePath  string         `json:"lockFilePath"`
	Watching      bool           `json:"watching"`
	SessionStats  map[string]int `json:"sessionStats"`
	StageHealth   []StageHealth  `json:"stageHealth"`
	StartedAt     string         `json:"startedAt,omitempty"`
	InboxDir      string         `json:"inboxDir,omitempty"`
	ExportBaseDir string         `json:"exportBaseDir,omitempty"`
}

// SessionStatsResponse provides a normalized session stats payload.
type SessionStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// SessionListResponse wraps a collection of sessions for API responses.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session Session `json:"session"`
}

// SceneSetResponse wraps the scene set a session currently exposes for
// review, together with its version history.
type SceneSetResponse struct {
	SceneSet *SceneSet      `json:"sceneSet,omitempty"`
	Versions []SceneSetInfo `json:"versions,omitempty"`
}

// LogEvent is the transport form of one structured log record.
type LogEvent struct {
	Sequence      uint64        `json:"sequence"`
	Timestamp     string        `json:"timestamp"`
	Level         string        `json:"level"`
	Message       string        `json:"message"`
	Component     string        `json:"component,omitempty"`
	SessionID     int64         `json:"sessionId,omitempty"`
	Stage         string        `json:"stage,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Details       []DetailField `json:"details,omitempty"`
}

// DetailField carries one extra attribute on a log event.
type DetailField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogStreamResponse returns buffered log events and the cursor for the next
// fetch.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
