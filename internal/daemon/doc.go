// Package daemon coordinates the long-running lectern process.
//
// It wires configuration, session storage, the pipeline runner, and the
// inbox watcher into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes the session maintenance surface the
// IPC layer serves to the CLI, dispatches generation stages in the
// background, and hosts the read-only HTTP API.
//
// Keep orchestration logic here: stage semantics live in the pipeline
// package while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
