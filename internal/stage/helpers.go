package stage

import (
	"lectern/internal/deck"
	"lectern/internal/services"
	"lectern/internal/session"
)

// LoadDeck loads a session's slide deck and verifies it still matches the
// checksum captured when the session was created. On failure it returns a
// services.ErrPrecondition suitable for stage Execute methods.
func LoadDeck(sess *session.Session) (*deck.Deck, error) {
	d, err := deck.Load(sess.DeckPath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrPrecondition, "stage", "load deck",
			"Slide deck missing or unreadable; restore the file or create a new session", err)
	}
	if sess.DeckSHA256 != "" && d.SHA256 != sess.DeckSHA256 {
		return nil, services.Wrap(
			services.ErrPrecondition, "stage", "verify deck",
			"Slide deck changed since the session was created; create a new session for the revised deck", nil)
	}
	return d, nil
}
