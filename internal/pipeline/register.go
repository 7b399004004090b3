package pipeline

import (
	"context"
	"fmt"

	"lectern/internal/deck"
	"lectern/internal/services"
	"lectern/internal/session"
)

// RegisterDeck loads a slide deck from disk and creates a session for it. A
// deck whose content hash is already tracked is rejected, naming the session
// that owns it, so repeated registrations cannot fork duplicates.
func RegisterDeck(ctx context.Context, store *session.Store, path string) (*session.Session, error) {
	d, err := deck.Load(path)
	if err != nil {
		return nil, err
	}

	existing, err := store.FindByDeckSHA(ctx, d.SHA256)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, services.Wrap(services.ErrValidation, "register", "dedupe deck",
			fmt.Sprintf("Deck already tracked by session %d (%s)", existing.ID, existing.Status), nil)
	}

	return store.NewSession(ctx, d.Title, d.Path, d.MIMEType, d.SHA256)
}
