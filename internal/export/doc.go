// Package export writes the final artifacts for an approved session: the
// structured scenes.json record and the plain-text script.txt narration
// script (markup in index order, speech as fallback). Each session exports
// into its own folder under the configured export directory.
package export
