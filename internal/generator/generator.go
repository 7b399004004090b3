package generator

import (
	"context"
	"fmt"
	"strings"

	"lectern/internal/config"
	"lectern/internal/deck"
	"lectern/internal/services"
)

// Backend identifiers accepted in configuration.
const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendMock       = "mock"
)

// DraftScene is one generated scene before it is indexed and persisted:
// a director comment describing the slide and the narration speech for it.
type DraftScene struct {
	Comment string `json:"comment"`
	Speech  string `json:"speech"`
}

// Settings captures the runtime configuration required to talk to a
// generation backend, plus the narration knobs baked into prompts.
type Settings struct {
	Backend        string
	Model          string
	APIKey         string
	BaseURL        string
	Referer        string
	Title          string
	TimeoutSeconds int
	MaxRetries     int

	Language       string
	MaxSpeechWords int
	Instructions   string
}

// Generator defines a pluggable scene generation backend.
//
// Narrate reads a whole slide deck and produces one draft scene per slide in
// deck order. Annotate takes the ordered speech values of an existing scene
// set and returns delivery markup for each; implementations must return
// exactly one markup string per input speech.
type Generator interface {
	Narrate(ctx context.Context, d *deck.Deck) ([]DraftScene, error)
	Annotate(ctx context.Context, speeches []string) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// New selects a backend from settings.
func New(settings Settings) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendGemini:
		return NewGemini(settings), nil
	case BackendOpenRouter:
		return NewOpenRouter(settings), nil
	case BackendMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q: %w", settings.Backend, services.ErrConfiguration)
	}
}

// FromConfig builds the configured backend with the narration knobs applied.
func FromConfig(cfg *config.Config) (Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration unavailable: %w", services.ErrConfiguration)
	}
	gc := cfg.GetGenerator()
	return New(Settings{
		Backend:        gc.Backend,
		Model:          gc.Model,
		APIKey:         gc.APIKey,
		BaseURL:        gc.BaseURL,
		Referer:        gc.Referer,
		Title:          gc.Title,
		TimeoutSeconds: gc.TimeoutSeconds,
		MaxRetries:     gc.MaxRetries,
		Language:       cfg.Narration.Language,
		MaxSpeechWords: cfg.Narration.MaxSpeechWords,
		Instructions:   cfg.Narration.Instructions,
	})
}

// narrationResponse is the wire shape every backend asks the model for when
// narrating: an object wrapper keeps json_object response modes happy.
type narrationResponse struct {
	Scenes []DraftScene `json:"scenes"`
}

// annotationResponse is the wire shape for annotation output: one markup
// entry per input scene, matched positionally.
type annotationResponse struct {
	Scenes []annotatedScene `json:"scenes"`
}

type annotatedScene struct {
	Markup string `json:"markup"`
}

func (r annotationResponse) markupValues() []string {
	out := make([]string, len(r.Scenes))
	for i, sc := range r.Scenes {
		out[i] = sc.Markup
	}
	return out
}

func validateDraftScenes(scenes []DraftScene) ([]DraftScene, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("model returned no scenes")
	}
	out := make([]DraftScene, len(scenes))
	for i, sc := range scenes {
		out[i] = DraftScene{
			Comment: strings.TrimSpace(sc.Comment),
			Speech:  strings.TrimSpace(sc.Speech),
		}
	}
	return out, nil
}

func validateMarkup(markup []string, want int) ([]string, error) {
	if len(markup) != want {
		return nil, fmt.Errorf("model returned %d markup entries for %d scenes", len(markup), want)
	}
	out := make([]string, len(markup))
	for i, m := range markup {
		out[i] = strings.TrimSpace(m)
	}
	return out, nil
}
