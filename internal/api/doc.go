// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal session models into transport-friendly
// DTOs that dashboards and other consumers can render without coupling to
// internal types.
//
// # Key Types
//
// Session: transport representation of a pipeline session with approvals,
// progress, and export location.
//
// SceneSet/Scene: the reviewable generator output for a session, plus
// SceneSetInfo for version history without payloads.
//
// DaemonStatus: aggregated runtime information including stage health.
//
// # Converters
//
// FromSession: session.Session -> Session with RFC3339 timestamps.
//
// FromSceneSet: scene.Set -> SceneSet.
//
// StageHealthSlice: deterministic ordering of stage health reports.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (session.Status, scene.Stage) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
