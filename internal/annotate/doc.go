// Package annotate runs the second generation pass for a session.
//
// It loads the latest narrated scene set, asks the configured generation
// backend for one delivery-markup rendition per speech, merges the markup
// onto the scenes positionally, and stores the result as the next annotate
// scene-set version. The narrated set itself is never modified; reruns and
// edits supersede rather than mutate.
package annotate
