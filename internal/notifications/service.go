package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
)

const userAgent = "Lectern/0.1.0"

// Event identifies a pipeline milestone worth telling a human about.
type Event string

const (
	// EventDeckDetected fires when the inbox watcher picks up a new slide deck.
	EventDeckDetected Event = "deck-detected"
	// EventNarrationComplete fires when a narration pass finishes and awaits review.
	EventNarrationComplete Event = "narration-complete"
	// EventAnnotationComplete fires when an annotation pass finishes and awaits review.
	EventAnnotationComplete Event = "annotation-complete"
	// EventExportComplete fires when the final scene document lands on disk.
	EventExportComplete Event = "export-complete"
	// EventError fires when a pipeline stage fails and rolls back.
	EventError Event = "error"
)

// Payload carries the event-specific fields used to render a message.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventDeckDetected:       cfg.Notifications.Narration,
			EventNarrationComplete:  cfg.Notifications.Narration,
			EventAnnotationComplete: cfg.Notifications.Annotation,
			EventExportComplete:     cfg.Notifications.Export,
			EventError:              cfg.Notifications.Errors,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

// Publish renders the event into an ntfy message and posts it. Events muted
// by configuration and events with no known rendering are dropped silently.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "Lectern - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"lectern", "test"},
		priority: "low",
	})
}

func render(event Event, payload Payload) (message, bool) {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}

	switch event {
	case EventDeckDetected:
		body := fmt.Sprintf("📚 Deck detected: %s", get("title"))
		if pages := get("pages"); pages != "" {
			body = fmt.Sprintf("%s (%s pages)", body, pages)
		}
		return message{
			title: "Lectern - Deck Detected",
			body:  body,
			tags:  []string{"lectern", "deck", "detected"},
		}, true
	case EventNarrationComplete:
		body := fmt.Sprintf("🗣️ Narration ready for review: %s", get("title"))
		if count := get("sceneCount"); count != "" {
			body = fmt.Sprintf("%s (%s scenes)", body, count)
		}
		return message{
			title: "Lectern - Narrated",
			body:  body,
			tags:  []string{"lectern", "narrate", "completed"},
		}, true
	case EventAnnotationComplete:
		return message{
			title: "Lectern - Annotated",
			body:  fmt.Sprintf("🏷️ Annotation ready for review: %s", get("title")),
			tags:  []string{"lectern", "annotate", "completed"},
		}, true
	case EventExportComplete:
		body := fmt.Sprintf("✅ Export complete: %s", get("title"))
		if dir := get("exportDir"); dir != "" {
			body = fmt.Sprintf("%s\nDir: %s", body, dir)
		}
		return message{
			title:    "Lectern - Exported",
			body:     body,
			tags:     []string{"lectern", "export", "completed"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if stage := get("stage"); stage != "" {
			builder.WriteString(" with ")
			builder.WriteString(stage)
		}
		builder.WriteString(": ")
		if detail := get("error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Lectern - Error",
			body:     builder.String(),
			tags:     []string{"lectern", "error", "alert"},
			priority: "high",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
