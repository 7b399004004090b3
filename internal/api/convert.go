package api

import (
	"sort"
	"time"

	"lectern/internal/logging"
	"lectern/internal/scene"
	"lectern/internal/session"
	"lectern/internal/stage"
)

// FromSession converts a session record to its API representation.
func FromSession(sess *session.Session) Session {
	if sess == nil {
		return Session{}
	}

	dto := Session{
		ID:                 sess.ID,
		Title:              sess.Title,
		DeckPath:           sess.DeckPath,
		DeckMIME:           sess.DeckMIME,
		DeckSHA256:         sess.DeckSHA256,
		Status:             string(sess.Status),
		NarrationApproved:  sess.NarrationApproved,
		AnnotationApproved: sess.AnnotationApproved,
		Progress: SessionProgress{
			Stage:   sess.ProgressStage,
			Message: sess.ProgressMessage,
		},
		ErrorMessage: sess.ErrorMessage,
		ExportDir:    sess.ExportDir,
	}
	if !sess.CreatedAt.IsZero() {
		dto.CreatedAt = sess.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !sess.UpdatedAt.IsZero() {
		dto.UpdatedAt = sess.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if sess.LastHeartbeat != nil && !sess.LastHeartbeat.IsZero() {
		dto.LastHeartbeat = sess.LastHeartbeat.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromSessions converts a slice of session records into API DTOs.
func FromSessions(sessions []*session.Session) []Session {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, FromSession(sess))
	}
	return out
}

// FromScene converts one scene to its API representation.
func FromScene(sc scene.Scene) Scene {
	return Scene{
		Index:   sc.Index,
		Comment: sc.Comment,
		Speech:  sc.Speech,
		Markup:  sc.Markup,
	}
}

// FromScenes converts a scene slice into API DTOs.
func FromScenes(scenes []scene.Scene) []Scene {
	if len(scenes) == 0 {
		return nil
	}
	out := make([]Scene, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, FromScene(sc))
	}
	return out
}

// FromSceneSet converts a stored scene set version to its API representation.
func FromSceneSet(set *scene.Set) *SceneSet {
	if set == nil {
		return nil
	}
	dto := &SceneSet{
		Stage:   string(set.Stage),
		Version: set.Version,
		Scenes:  FromScenes(set.Scenes),
	}
	if !set.CreatedAt.IsZero() {
		dto.CreatedAt = set.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromSceneSetInfos converts version summaries into API DTOs.
func FromSceneSetInfos(infos []session.SceneSetInfo) []SceneSetInfo {
	if len(infos) == 0 {
		return nil
	}
	out := make([]SceneSetInfo, 0, len(infos))
	for _, info := range infos {
		dto := SceneSetInfo{
			Stage:      string(info.Stage),
			Version:    info.Version,
			SceneCount: info.SceneCount,
		}
		if !info.CreatedAt.IsZero() {
			dto.CreatedAt = info.CreatedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}

// MergeSessionStats produces a string-keyed representation of session stats.
func MergeSessionStats(stats map[session.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime renders a timestamp the way API payloads expect; zero times
// become empty strings.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromLogEvents converts stream hub records into API DTOs.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		dto := LogEvent{
			Sequence:      evt.Sequence,
			Level:         evt.Level,
			Message:       evt.Message,
			Component:     evt.Component,
			SessionID:     evt.SessionID,
			Stage:         evt.Stage,
			CorrelationID: evt.CorrelationID,
		}
		if !evt.Timestamp.IsZero() {
			dto.Timestamp = evt.Timestamp.UTC().Format(dateTimeFormat)
		}
		for _, detail := range evt.Details {
			dto.Details = append(dto.Details, DetailField{Key: detail.Key, Value: detail.Value})
		}
		out = append(out, dto)
	}
	return out
}

// StageHealthSlice converts stage health reports into a deterministic slice.
func StageHealthSlice(health []stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
