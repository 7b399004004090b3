// Package session persists pipeline runs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stale-run recovery, and the compare-and-set
// status transitions that back the pipeline state machine. Sessions capture
// the source deck, checkpoint approvals, progress, and error details; scene
// sets are stored as immutable per-stage versions so edits and regeneration
// never rewrite history.
//
// The database is the durable record of every run. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for session semantics;
// when you add new statuses or columns, update schema.sql and bump
// schemaVersion.
package session
