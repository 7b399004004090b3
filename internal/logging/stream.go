package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is a structured record published to the in-memory stream.
type LogEvent struct {
	Sequence      uint64        `json:"sequence"`
	Timestamp     time.Time     `json:"timestamp"`
	Level         string        `json:"level"`
	Message       string        `json:"message"`
	Component     string        `json:"component,omitempty"`
	SessionID     int64         `json:"sessionId,omitempty"`
	Stage         string        `json:"stage,omitempty"`
	CorrelationID string        `json:"correlationId,omitempty"`
	Details       []DetailField `json:"details,omitempty"`
}

// DetailField carries one extra attribute on a LogEvent.
type DetailField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogEventSink receives every published event, used for fanout beyond the
// ring buffer (for example notifications or test capture).
type LogEventSink func(LogEvent)

// StreamHub retains recent log events in a bounded ring buffer and lets
// clients poll for new entries.
type StreamHub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	events   []LogEvent
	capacity int
	nextSeq  uint64
	sinks    []LogEventSink
}

// NewStreamHub builds a hub retaining up to capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	hub := &StreamHub{
		events:   make([]LogEvent, 0, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
	hub.cond = sync.NewCond(&hub.mu)
	return hub
}

// AddSink registers a fanout callback invoked on every publish.
func (h *StreamHub) AddSink(sink LogEventSink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish appends an event to the buffer, assigning its sequence number.
func (h *StreamHub) Publish(event LogEvent) LogEvent {
	if h == nil {
		return event
	}
	h.mu.Lock()
	event.Sequence = h.nextSeq
	h.nextSeq++
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(h.events) >= h.capacity {
		copy(h.events, h.events[1:])
		h.events[len(h.events)-1] = event
	} else {
		h.events = append(h.events, event)
	}
	sinks := make([]LogEventSink, len(h.sinks))
	copy(sinks, h.sinks)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink(event)
	}
	return event
}

// Fetch returns events with sequence greater than since, up to limit. When
// wait is true it blocks until new events arrive or ctx is done.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, error) {
	if h == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		snapshot := h.snapshotLocked(since, limit)
		if len(snapshot) > 0 || !wait {
			return snapshot, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-done:
			}
		}()
		h.cond.Wait()
		close(done)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Tail returns the most recent limit events.
func (h *StreamHub) Tail(limit int) []LogEvent {
	if h == nil {
		return nil
	}
	if limit <= 0 {
		limit = 100
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return nil
	}
	start := len(h.events) - limit
	if start < 0 {
		start = 0
	}
	out := make([]LogEvent, len(h.events)-start)
	copy(out, h.events[start:])
	return out
}

// FirstSequence reports the oldest retained sequence, or zero when empty.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return 0
	}
	return h.events[0].Sequence
}

func (h *StreamHub) snapshotLocked(since uint64, limit int) []LogEvent {
	if len(h.events) == 0 {
		return nil
	}
	var out []LogEvent
	for _, event := range h.events {
		if event.Sequence <= since {
			continue
		}
		out = append(out, event)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// streamHandler mirrors records into a StreamHub while delegating to the
// wrapped handler.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	attrs []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.hub != nil {
		h.hub.Publish(eventFromRecordWithAttrs(record, h.attrs))
	}
	return h.next.Handle(ctx, record)
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	combined = append(combined, attrs...)
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: combined}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

func eventFromRecordWithAttrs(record slog.Record, accumulated []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time.UTC(),
		Level:     strings.ToLower(levelLabel(record.Level)),
		Message:   record.Message,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	consume := func(attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		switch attr.Key {
		case FieldComponent:
			event.Component = attrString(attr.Value)
		case FieldSessionID:
			if attr.Value.Kind() == slog.KindInt64 {
				event.SessionID = attr.Value.Int64()
			}
		case FieldStage:
			event.Stage = attrString(attr.Value)
		case FieldCorrelationID:
			event.CorrelationID = attrString(attr.Value)
		default:
			if attr.Key == "" {
				return
			}
			event.Details = append(event.Details, DetailField{Key: attr.Key, Value: attrString(attr.Value)})
		}
	}

	for _, attr := range accumulated {
		consume(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		consume(attr)
		return true
	})
	return event
}
