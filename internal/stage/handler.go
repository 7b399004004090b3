package stage

import (
	"context"
	"log/slog"

	"lectern/internal/session"
)

// Handler describes the contract the pipeline runner needs from each stage.
type Handler interface {
	Prepare(context.Context, *session.Session) error
	Execute(context.Context, *session.Session) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets a handler receive the run-scoped logger before execution.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
