package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lectern/internal/services"
)

func newTestLogger(t *testing.T, format string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(&buf, levelVar, false)
	default:
		handler = newPrettyHandler(&buf, levelVar, false)
	}
	return slog.New(handler), &buf
}

func TestPrettyHandlerIncludesComponentAndAttrs(t *testing.T) {
	logger, buf := newTestLogger(t, "console")

	child := NewComponentLogger(logger, "pipeline")
	child.Info("stage started", String(FieldStage, "narrate"), Int64(FieldSessionID, 42))

	out := buf.String()
	if !strings.Contains(out, "pipeline: stage started") {
		t.Fatalf("expected component prefix in output, got %q", out)
	}
	if !strings.Contains(out, "stage=narrate") {
		t.Fatalf("expected stage attr in output, got %q", out)
	}
	if !strings.Contains(out, "session_id=42") {
		t.Fatalf("expected session attr in output, got %q", out)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newTestLogger(t, "console")

	logger.Info("export complete", String("path", "/tmp/out dir/scenes.json"))

	if !strings.Contains(buf.String(), `path="/tmp/out dir/scenes.json"`) {
		t.Fatalf("expected quoted path, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesCoreKeys(t *testing.T) {
	logger, buf := newTestLogger(t, "json")

	logger.Info("hello")

	out := buf.String()
	for _, want := range []string{`"ts":"`, `"level":"info"`, `"msg":"hello"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in json output, got %q", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "lectern.log")

	logger, err := New(Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("file sink works")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file sink works") {
		t.Fatalf("expected message in log file, got %q", string(data))
	}
}

func TestParseLevelDefaults(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFieldsExtraction(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), 7)
	ctx = services.WithStage(ctx, "annotate")
	ctx = services.WithRequestID(ctx, "req-123")

	attrs := ContextFields(ctx)
	if len(attrs) != 3 {
		t.Fatalf("expected 3 context fields, got %d", len(attrs))
	}
	if !HasAttrKey(attrs, FieldSessionID) || !HasAttrKey(attrs, FieldStage) || !HasAttrKey(attrs, FieldCorrelationID) {
		t.Fatalf("missing expected field keys: %+v", attrs)
	}
}

func TestErrorWithContextAddsDefaults(t *testing.T) {
	logger, buf := newTestLogger(t, "console")
	ctx := services.WithSessionID(context.Background(), 9)

	ErrorWithContext(ctx, logger, "generation failed", String(FieldErrorKind, "generation"))

	out := buf.String()
	if !strings.Contains(out, "session_id=9") {
		t.Fatalf("expected context session id, got %q", out)
	}
	if !strings.Contains(out, "event_type=error") {
		t.Fatalf("expected default event type, got %q", out)
	}
	if !strings.Contains(out, "error_hint=") {
		t.Fatalf("expected default error hint, got %q", out)
	}
}

func TestCleanupOldLogsRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.log")
	newFile := filepath.Join(dir, "new.log")
	keepFile := filepath.Join(dir, "lectern.log")

	for _, path := range []string{oldFile, newFile, keepFile} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{oldFile, keepFile} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	removed, err := CleanupOldLogs([]RetentionTarget{{
		Dir:     dir,
		Pattern: "*.log",
		Exclude: []string{"lectern.log"},
	}}, 7, time.Now())
	if err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatal("expected old.log removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Fatal("expected new.log kept")
	}
	if _, err := os.Stat(keepFile); err != nil {
		t.Fatal("expected excluded lectern.log kept")
	}
}
