package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer lets the follow test read command output while the command is
// still writing from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogsPrintsRecentLines(t *testing.T) {
	env := setupCLITestEnv(t)

	for i := 1; i <= 12; i++ {
		if err := appendLine(env.logPath, fmt.Sprintf("log line %02d", i)); err != nil {
			t.Fatalf("append log line: %v", err)
		}
	}

	stdout, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if strings.Contains(stdout, "log line 02") {
		t.Fatalf("default tail included lines beyond the limit: %q", stdout)
	}
	requireContains(t, stdout, "log line 03")
	requireContains(t, stdout, "log line 12")

	stdout, _, err = runCLI(t, []string{"logs", "--lines", "5"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines failed: %v", err)
	}
	if strings.Contains(stdout, "log line 07") {
		t.Fatalf("--lines 5 included lines beyond the limit: %q", stdout)
	}
	requireContains(t, stdout, "log line 08")
}

func TestLogsReportsEmptyFile(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	requireContains(t, stdout, "No log entries available")
}

func TestLogsFallsBackToFileWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := appendLine(env.logPath, "read straight from disk"); err != nil {
		t.Fatalf("append log line: %v", err)
	}

	deadSocket := filepath.Join(env.baseDir, "missing.sock")
	stdout, _, err := runCLI(t, []string{"logs"}, deadSocket, env.configPath)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	requireContains(t, stdout, "read straight from disk")
}

func TestLogsFollowStreamsAppends(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := appendLine(env.logPath, "first entry recorded"); err != nil {
		t.Fatalf("append log line: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--socket", env.socketPath, "--config", env.configPath, "logs", "--follow"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(out.String(), "first entry recorded")
	})

	if err := appendLine(env.logPath, "second entry recorded"); err != nil {
		t.Fatalf("append log line: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(out.String(), "second entry recorded")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}
