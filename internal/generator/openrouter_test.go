package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lectern/internal/deck"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func testDeck() *deck.Deck {
	return &deck.Deck{
		Title:    "Demo Deck",
		MIMEType: "application/pdf",
		Data:     []byte("%PDF-1.7 demo"),
	}
}

func TestOpenRouterNarrate(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		payload := chatResponse(`{"scenes":[{"comment":"Title","speech":" Welcome. "},{"comment":"Agenda","speech":"Three topics."}]}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewOpenRouter(Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	scenes, err := client.Narrate(context.Background(), testDeck())
	if err != nil {
		t.Fatalf("Narrate returned error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].Speech != "Welcome." {
		t.Fatalf("expected trimmed speech, got %q", scenes[0].Speech)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(captured.Messages))
	}
	system, ok := captured.Messages[0].Content.(string)
	if !ok || !strings.Contains(system, "presentation narrator") {
		t.Fatalf("unexpected system prompt: %#v", captured.Messages[0].Content)
	}
	parts, ok := captured.Messages[1].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected two content parts, got %#v", captured.Messages[1].Content)
	}
	filePart, ok := parts[1].(map[string]any)
	if !ok || filePart["type"] != "file" {
		t.Fatalf("expected file part, got %#v", parts[1])
	}
	fileData := filePart["file"].(map[string]any)["file_data"].(string)
	if !strings.HasPrefix(fileData, "data:application/pdf;base64,") {
		t.Fatalf("expected base64 data url, got %q", fileData)
	}
}

func TestOpenRouterNarrateRequiresDeck(t *testing.T) {
	client := NewOpenRouter(Settings{APIKey: "test", Model: "demo"})
	if _, err := client.Narrate(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing deck")
	}
}

func TestOpenRouterAnnotate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := chatResponse(`{"scenes":[{"markup":"<speak>One.</speak>"},{"markup":"<speak>Two.</speak>"}]}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewOpenRouter(Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	markup, err := client.Annotate(context.Background(), []string{"One.", "Two."})
	if err != nil {
		t.Fatalf("Annotate returned error: %v", err)
	}
	if len(markup) != 2 || markup[1] != "<speak>Two.</speak>" {
		t.Fatalf("unexpected markup: %#v", markup)
	}
}

func TestOpenRouterAnnotateCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := chatResponse(`{"scenes":[{"markup":"only one"}]}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewOpenRouter(Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	_, err := client.Annotate(context.Background(), []string{"One.", "Two."})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
	if !strings.Contains(err.Error(), "1 markup entries for 2 scenes") {
		t.Fatalf("expected count detail in error, got %v", err)
	}
}

func TestOpenRouterHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := chatResponse("```json\n{\"ok\":true}\n```")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewOpenRouter(Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestOpenRouterHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewOpenRouter(Settings{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestOpenRouterRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse(`{"scenes":[{"markup":"done"}]}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewOpenRouter(
		Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	markup, err := client.Annotate(context.Background(), []string{"One."})
	if err != nil {
		t.Fatalf("Annotate returned error: %v", err)
	}
	if markup[0] != "done" {
		t.Fatalf("unexpected markup: %#v", markup)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestOpenRouterEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content": "",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewOpenRouter(
		Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Annotate(context.Background(), []string{"One."})
	if err == nil {
		t.Fatal("expected annotate to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestOpenRouterDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
	}))
	defer server.Close()

	client := NewOpenRouter(
		Settings{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Annotate(context.Background(), []string{"One."}); err == nil {
		t.Fatal("expected annotate to fail")
	}
	if calls != 1 {
		t.Fatalf("expected single call for 400 response, got %d", calls)
	}
}
