// Package logs provides file tailing and log stream access shared by the CLI
// and daemon diagnostics.
//
// It reads log files with bounded memory, supports negative offsets for
// "last N lines" requests, and powers follow-mode updates for
// `lectern logs --follow`. The StreamClient fetches structured events from
// the daemon HTTP API when it is reachable; file tailing is the fallback when
// only the log file is left to read.
package logs
