package main

import (
	"testing"
)

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	registerDeck(t, env, "alpha_intro.pdf")

	stdout, _, err := runCLI(t, []string{"health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	requireContains(t, stdout, "Database path:")
	requireContains(t, stdout, "lectern.db")
	requireContains(t, stdout, "Database exists: yes")
	requireContains(t, stdout, "Readable: yes")
	requireContains(t, stdout, "sessions table present: yes")
	requireContains(t, stdout, "Missing columns: none")
	requireContains(t, stdout, "Integrity check: yes")
	requireContains(t, stdout, "Total sessions: 1")
}

func TestHealthCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"health", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("health --json failed: %v", err)
	}
	requireContains(t, stdout, `"database_exists": true`)
	requireContains(t, stdout, `"integrity_check": true`)
}

func TestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify failed: %v", err)
	}
	requireContains(t, stdout, "ntfy topic not configured")
}
