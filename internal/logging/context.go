package logging

import (
	"context"
	"log/slog"

	"lectern/internal/services"
)

// Shared structured-field names used across the daemon and CLI.
const (
	FieldComponent     = "component"
	FieldSessionID     = "session_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldErrorKind     = "error_kind"
	FieldAlert         = "alert"
	FieldDuration      = "duration"
	FieldProgress      = "progress"
)

// ContextFields extracts structured log fields from request context.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if id, ok := services.SessionIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldSessionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, requestID))
	}
	return attrs
}

// WithContext returns a child logger carrying the context's structured fields.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
