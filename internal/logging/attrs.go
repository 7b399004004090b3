package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr mirrors slog.Attr so call sites can stay on this package.
type Attr = slog.Attr

// Value mirrors slog.Value.
type Value = slog.Value

// Any builds an attribute with an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Bool builds a boolean attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration builds a duration attribute.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 builds a float attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Uint64 builds a uint64 attribute.
func Uint64(key string, value uint64) Attr { return slog.Uint64(key, value) }

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Group builds a grouped attribute.
func Group(key string, args ...any) Attr { return slog.Group(key, args...) }

// Error builds the conventional error attribute.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Alert marks a record as operator-facing with the given category.
func Alert(category string) Attr { return slog.String(FieldAlert, category) }

// attrsToArgs converts typed attrs into variadic slog args.
func attrsToArgs(attrs []Attr) []any {
	if len(attrs) == 0 {
		return nil
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		args = append(args, attr)
	}
	return args
}

// Args exposes attr conversion for callers building slog calls directly.
func Args(attrs ...Attr) []any { return attrsToArgs(attrs) }

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger returns a child logger tagged with a component name.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}

// HasAttrKey reports whether the attrs include the given key.
func HasAttrKey(attrs []Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// WarnWithContext logs a warning enriched with context fields, ensuring an
// event type is always present.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	combined := append(ContextFields(ctx), attrs...)
	if !HasAttrKey(combined, FieldEventType) {
		combined = append(combined, String(FieldEventType, "warning"))
	}
	logger.WarnContext(ctx, msg, attrsToArgs(combined)...)
}

// ErrorWithContext logs an error enriched with context fields, ensuring an
// event type and error hint are always present.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	combined := append(ContextFields(ctx), attrs...)
	if !HasAttrKey(combined, FieldEventType) {
		combined = append(combined, String(FieldEventType, "error"))
	}
	if !HasAttrKey(combined, FieldErrorHint) {
		combined = append(combined, String(FieldErrorHint, "check logs for details"))
	}
	logger.ErrorContext(ctx, msg, attrsToArgs(combined)...)
}

// NoopHandler drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }
