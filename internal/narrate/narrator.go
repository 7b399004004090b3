package narrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"lectern/internal/config"
	"lectern/internal/generator"
	"lectern/internal/logging"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/stage"
)

// Narrator runs the first generation pass: it reads the session's slide deck
// and produces one scene per slide, each with a reviewer comment and the
// speech to read aloud.
type Narrator struct {
	store  *session.Store
	cfg    *config.Config
	logger *slog.Logger
	gen    generator.Generator
}

// New constructs the narration handler with the configured backend.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger) *Narrator {
	gen, err := generator.FromConfig(cfg)
	if err != nil {
		logging.NewComponentLogger(logger, "narrator").Warn("generator initialization failed", logging.Error(err))
		gen = nil
	}
	return NewWithGenerator(cfg, store, logger, gen)
}

// NewWithGenerator allows injecting the generation backend (used for tests).
func NewWithGenerator(cfg *config.Config, store *session.Store, logger *slog.Logger, gen generator.Generator) *Narrator {
	n := &Narrator{
		store: store,
		cfg:   cfg,
		gen:   gen,
	}
	n.SetLogger(logger)
	return n
}

// SetLogger updates the handler's logging destination while preserving
// component labeling.
func (n *Narrator) SetLogger(logger *slog.Logger) {
	n.logger = logging.NewComponentLogger(logger, "narrator")
}

// Prepare verifies the slide deck is still readable and primes progress
// messaging prior to Execute.
func (n *Narrator) Prepare(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, n.logger)
	if _, err := stage.LoadDeck(sess); err != nil {
		return err
	}
	sess.ProgressStage = "Narrating"
	sess.ProgressMessage = "Reading slide deck"
	logger.Debug("starting narration preparation", logging.String("deck", strings.TrimSpace(sess.DeckPath)))
	return nil
}

// Execute generates the narration scene set and stores it as the next
// narrate version.
func (n *Narrator) Execute(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, n.logger)
	if n.gen == nil {
		return services.Wrap(
			services.ErrConfiguration, "narrate", "generator",
			"Generation backend unavailable; check the [generator] configuration", nil)
	}

	d, err := stage.LoadDeck(sess)
	if err != nil {
		return err
	}

	if err := n.store.TouchProgress(ctx, sess.ID, "Narrating", fmt.Sprintf("Generating narration for %q", d.Title)); err != nil {
		logger.Warn("failed to persist narration progress", logging.Error(err))
	}

	started := time.Now()
	drafts, err := n.gen.Narrate(ctx, d)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "narrate", "generate scenes",
			"Narration generation failed; retry once the backend recovers", err)
	}

	scenes, err := draftsToScenes(drafts)
	if err != nil {
		return err
	}

	set, err := n.store.SaveSceneSet(ctx, sess.ID, scene.StageNarrate, scenes)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "narrate", "save scenes",
			"Failed to store generated scenes; check the data directory", err)
	}

	sess.ProgressStage = "Narrated"
	sess.ProgressMessage = fmt.Sprintf("Generated %d scenes awaiting review", len(set.Scenes))
	logger.Info(
		"narration generated",
		logging.Int("scene_count", len(set.Scenes)),
		logging.Int("set_version", set.Version),
		logging.Duration("generation_time", time.Since(started)),
	)
	return nil
}

// HealthCheck verifies the generation backend is reachable.
func (n *Narrator) HealthCheck(ctx context.Context) stage.Health {
	const name = "narrator"
	if n.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if n.gen == nil {
		return stage.Unhealthy(name, "generation backend unavailable")
	}
	if err := n.gen.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// draftsToScenes indexes generator output in deck order. A draft without
// speech fails the run: the reviewer checkpoint needs something to read for
// every slide.
func draftsToScenes(drafts []generator.DraftScene) ([]scene.Scene, error) {
	scenes := make([]scene.Scene, len(drafts))
	for i, draft := range drafts {
		if strings.TrimSpace(draft.Speech) == "" {
			return nil, services.Wrap(
				services.ErrGeneration, "narrate", "validate scenes",
				fmt.Sprintf("Scene %d has no speech; rerun narration", i), nil)
		}
		scenes[i] = scene.Scene{
			Index:   i,
			Comment: strings.TrimSpace(draft.Comment),
			Speech:  strings.TrimSpace(draft.Speech),
		}
	}
	return scenes, nil
}
