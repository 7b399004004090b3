package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lectern/internal/api"
	"lectern/internal/logging"
	"lectern/internal/scene"
	"lectern/internal/session"
)

type sessionReaderStub struct {
	sessions []*session.Session
	set      *scene.Set
}

func (s *sessionReaderStub) List(context.Context, ...session.Status) ([]*session.Session, error) {
	return s.sessions, nil
}

func (s *sessionReaderStub) Stats(context.Context) (map[session.Status]int, error) {
	return map[session.Status]int{session.StatusNarrated: len(s.sessions)}, nil
}

func (s *sessionReaderStub) GetByID(context.Context, int64) (*session.Session, error) {
	if len(s.sessions) == 0 {
		return nil, nil
	}
	return s.sessions[0], nil
}

func (s *sessionReaderStub) LatestSceneSet(context.Context, int64, scene.Stage) (*scene.Set, error) {
	return s.set, nil
}

func (s *sessionReaderStub) ListSceneSets(context.Context, int64) ([]session.SceneSetInfo, error) {
	return nil, nil
}

func narratedStub() *sessionReaderStub {
	return &sessionReaderStub{
		sessions: []*session.Session{{
			ID:     1,
			Title:  "Example Deck",
			Status: session.StatusNarrated,
		}},
		set: &scene.Set{
			Stage:     scene.StageNarrate,
			Version:   2,
			Scenes:    []scene.Scene{{Index: 0, Comment: "Title slide", Speech: "Welcome."}},
			CreatedAt: time.Now().UTC(),
		},
	}
}

func TestAPIServerHandleSessions(t *testing.T) {
	srv := &apiServer{sessionSvc: api.NewSessionService(narratedStub())}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.handleSessions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.SessionListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(resp.Sessions))
	}
	if resp.Sessions[0].Title != "Example Deck" {
		t.Fatalf("unexpected title: %q", resp.Sessions[0].Title)
	}
}

func TestAPIServerHandleSessionScenes(t *testing.T) {
	srv := &apiServer{sessionSvc: api.NewSessionService(narratedStub())}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/1/scenes", nil)
	w := httptest.NewRecorder()
	srv.handleSessionItem(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.SceneSetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SceneSet == nil || resp.SceneSet.Version != 2 {
		t.Fatalf("expected scene set v2, got %+v", resp.SceneSet)
	}
	if len(resp.SceneSet.Scenes) != 1 || resp.SceneSet.Scenes[0].Speech != "Welcome." {
		t.Fatalf("unexpected scenes: %+v", resp.SceneSet.Scenes)
	}
}

func TestAPIServerHandleSessionItemRejectsBadPath(t *testing.T) {
	srv := &apiServer{sessionSvc: api.NewSessionService(narratedStub())}

	for path, want := range map[string]int{
		"/api/sessions/1":        http.StatusOK,
		"/api/sessions/abc":      http.StatusBadRequest,
		"/api/sessions/1/decks":  http.StatusNotFound,
		"/api/sessions/1/scenes": http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.handleSessionItem(w, req)
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestAPIServerHandleLogs(t *testing.T) {
	hub := logging.NewStreamHub(16)
	hub.Publish(logging.LogEvent{Level: "info", Message: "narration started", Component: "pipeline", SessionID: 4})
	hub.Publish(logging.LogEvent{Level: "warn", Message: "watcher hiccup", Component: "deck-watcher"})

	srv := &apiServer{daemon: &Daemon{hub: hub}}

	req := httptest.NewRequest(http.MethodGet, "/api/logs?tail=1", nil)
	w := httptest.NewRecorder()
	srv.handleLogs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.LogStreamResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(resp.Events))
	}
	if resp.Next != resp.Events[1].Sequence {
		t.Fatalf("expected cursor %d, got %d", resp.Events[1].Sequence, resp.Next)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/logs?component=deck-watcher", nil)
	w = httptest.NewRecorder()
	srv.handleLogs(w, req)
	resp = api.LogStreamResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode filtered response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Message != "watcher hiccup" {
		t.Fatalf("unexpected filtered events: %+v", resp.Events)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/logs?session=4", nil)
	w = httptest.NewRecorder()
	srv.handleLogs(w, req)
	resp = api.LogStreamResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].SessionID != 4 {
		t.Fatalf("unexpected session events: %+v", resp.Events)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with valid token, got %d", w.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	open(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through with empty token, got %d", w.Code)
	}
}
