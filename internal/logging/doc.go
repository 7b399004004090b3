// Package logging provides slog-based structured logging for the daemon and
// CLI, including a console handler for interactive use, a JSON handler for
// file output, and an in-memory stream hub backing the log tail API.
package logging
