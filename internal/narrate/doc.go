// Package narrate runs the first generation pass for a session.
//
// It loads the session's slide deck, asks the configured generation backend
// for one scene per slide, validates that every scene carries speech, and
// stores the result as the next narrate scene-set version. Progress updates
// and error wrapping follow the same conventions as the annotate stage so
// the pipeline runner can react uniformly.
package narrate
