// Package main hosts the Lectern CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon, session and scene review operations, log tailing, deck
// registration, and configuration scaffolding. It centralizes configuration
// resolution, socket discovery, and session-store fallback so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives in
// reusable pipeline components.
package main
