// Package deckwatch monitors the inbox directory for new slide decks and
// registers them as pipeline sessions. Files are processed after a settle
// window so partially copied decks are never picked up, and decks already
// known by content hash are skipped. When auto narration is enabled the
// watcher kicks off the narrate stage as soon as a deck is registered.
package deckwatch
