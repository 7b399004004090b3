// Package pipeline drives sessions through the narrate, annotate, and export
// stages.
//
// The Runner owns every status transition. A stage run moves the session into
// its processing status with a compare-and-set update (so concurrent callers
// lose cleanly), executes the stage handler under a heartbeat, and lands the
// session on the next checkpoint. A failed run rolls the session back to the
// checkpoint it started from with the failure recorded on the row, so the
// stage can always be retriggered. Checkpoint operations live here too:
// scene edits, approvals, regeneration, reset, and the final export.
package pipeline
