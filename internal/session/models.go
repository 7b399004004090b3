package session

import (
	"strings"
	"time"

	"lectern/internal/scene"
)

// Status represents the lifecycle of a pipeline session.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusNarrating  Status = "narrating"
	StatusNarrated   Status = "narrated"
	StatusAnnotating Status = "annotating"
	StatusAnnotated  Status = "annotated"
	StatusExported   Status = "exported"
)

var allStatuses = []Status{
	StatusEmpty,
	StatusNarrating,
	StatusNarrated,
	StatusAnnotating,
	StatusAnnotated,
	StatusExported,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusNarrating:  {},
	StatusAnnotating: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// StageStatuses maps a stage to its processing status, the checkpoint status
// reached on success, and the status a failed or stale run rolls back to.
func StageStatuses(stage scene.Stage) (running, ready, rollback Status) {
	switch stage {
	case scene.StageNarrate:
		return StatusNarrating, StatusNarrated, StatusEmpty
	case scene.StageAnnotate:
		return StatusAnnotating, StatusAnnotated, StatusNarrated
	default:
		return "", "", ""
	}
}

// CheckpointStage returns the stage whose output the given checkpoint status
// exposes for review, if any.
func CheckpointStage(status Status) (scene.Stage, bool) {
	switch status {
	case StatusNarrated:
		return scene.StageNarrate, true
	case StatusAnnotated, StatusExported:
		return scene.StageAnnotate, true
	default:
		return "", false
	}
}

// Session represents one pipeline run persisted in SQLite.
type Session struct {
	ID                 int64
	Title              string
	DeckPath           string
	DeckMIME           string
	DeckSHA256         string
	Status             Status
	NarrationApproved  bool
	AnnotationApproved bool
	ErrorMessage       string
	ProgressStage      string
	ProgressMessage    string
	ExportDir          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastHeartbeat      *time.Time
}

// IsProcessing returns true when the session has a stage in flight.
func (s Session) IsProcessing() bool {
	return IsProcessingStatus(s.Status)
}

// Approved reports the approval flag for the given stage's checkpoint.
func (s Session) Approved(stage scene.Stage) bool {
	switch stage {
	case scene.StageNarrate:
		return s.NarrationApproved
	case scene.StageAnnotate:
		return s.AnnotationApproved
	default:
		return false
	}
}

// HealthSummary describes aggregated session counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Draft      int
	Processing int
	Review     int
	Exported   int
}

// DatabaseHealth captures diagnostic information about the session database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalSessions    int
	Error            string
}
