package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lectern/internal/deck"
)

// Mock is a deterministic in-process backend for tests and offline runs. The
// error fields, when set, are returned verbatim so callers can exercise
// failure handling; Drafts and Markups, when set, replace the fabricated
// output without any count check, letting tests simulate a misbehaving
// backend.
type Mock struct {
	SceneCount  int
	Drafts      []DraftScene
	Markups     []string
	NarrateErr  error
	AnnotateErr error
	HealthErr   error
}

// NewMock returns a mock generator producing three scenes per deck.
func NewMock() *Mock { return &Mock{} }

// Narrate fabricates one scene per synthetic slide.
func (m *Mock) Narrate(ctx context.Context, d *deck.Deck) ([]DraftScene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.NarrateErr != nil {
		return nil, m.NarrateErr
	}
	if len(m.Drafts) > 0 {
		out := make([]DraftScene, len(m.Drafts))
		copy(out, m.Drafts)
		return out, nil
	}
	count := m.SceneCount
	if count <= 0 {
		count = 3
	}
	title := "the deck"
	if d != nil && strings.TrimSpace(d.Title) != "" {
		title = d.Title
	}
	scenes := make([]DraftScene, count)
	for i := range scenes {
		scenes[i] = DraftScene{
			Comment: fmt.Sprintf("Slide %d of %s", i+1, title),
			Speech:  fmt.Sprintf("This is the narration for slide %d of %s.", i+1, title),
		}
	}
	return scenes, nil
}

// Annotate wraps every speech in a speak tag, preserving order and count.
func (m *Mock) Annotate(ctx context.Context, speeches []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.AnnotateErr != nil {
		return nil, m.AnnotateErr
	}
	if len(m.Markups) > 0 {
		out := make([]string, len(m.Markups))
		copy(out, m.Markups)
		return out, nil
	}
	if len(speeches) == 0 {
		return nil, errors.New("no speeches to annotate")
	}
	out := make([]string, len(speeches))
	for i, speech := range speeches {
		out[i] = "<speak>" + strings.TrimSpace(speech) + "</speak>"
	}
	return out, nil
}

// HealthCheck reports the configured health error, if any.
func (m *Mock) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.HealthErr
}
