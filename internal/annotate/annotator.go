package annotate

import (
	"context"
	"fmt"
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

// Annotator runs the second generation pass: it takes the latest narrated
// scene set and adds delivery markup to every speech, positionally.
type Annotator struct {
	store  *session.Store
	cfg    *config.Config
	logger *slog.Logger
	gen    generator.Generator
}

// New constructs the annotation handler with the configured backend.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger) *Annotator {
	gen, err := generator.FromConfig(cfg)
	if err != nil {
		logging.NewComponentLogger(logger, "annotator").Warn("generator initialization failed", logging.Error(err))
		gen = nil
	}
	return NewWithGenerator(cfg, store, logger, gen)
}

// NewWithGenerator allows injecting the generation backend (used for tests).
func NewWithGenerator(cfg *config.Config, store *session.Store, logger *slog.Logger, gen generator.Generator) *Annotator {
	a := &Annotator{
		store: store,
		cfg:   cfg,
		gen:   gen,
	}
	a.SetLogger(logger)
	return a
}

// SetLogger updates the handler's logging destination while preserving
// component labeling.
func (a *Annotator) SetLogger(logger *slog.Logger) {
	a.logger = logging.NewComponentLogger(logger, "annotator")
}

// Prepare verifies there is a narrated scene set to annotate and primes
// progress messaging prior to Execute.
func (a *Annotator) Prepare(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, a.logger)
	set, err := a.store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "annotate", "load narration",
			"Failed to read the narrated scenes; check the data directory", err)
	}
	if set == nil {
		return services.Wrap(
			services.ErrPrecondition, "annotate", "load narration",
			"No narrated scenes to annotate; run the narrate stage first", nil)
	}
	sess.ProgressStage = "Annotating"
	sess.ProgressMessage = fmt.Sprintf("Annotating %d scenes", len(set.Scenes))
	logger.Debug("starting annotation preparation", logging.Int("scene_count", len(set.Scenes)))
	return nil
}

// Execute generates markup for the latest narrated scenes and stores the
// merged result as the next annotate version.
func (a *Annotator) Execute(ctx context.Context, sess *session.Session) error {
	logger := logging.WithContext(ctx, a.logger)
	if a.gen == nil {
		return services.Wrap(
			services.ErrConfiguration, "annotate", "generator",
			"Generation backend unavailable; check the [generator] configuration", nil)
	}

	set, err := a.store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "annotate", "load narration",
			"Failed to read the narrated scenes; check the data directory", err)
	}
	if set == nil {
		return services.Wrap(
			services.ErrPrecondition, "annotate", "load narration",
			"No narrated scenes to annotate; run the narrate stage first", nil)
	}

	if err := a.store.TouchProgress(ctx, sess.ID, "Annotating", fmt.Sprintf("Generating markup for %d scenes", len(set.Scenes))); err != nil {
		logger.Warn("failed to persist annotation progress", logging.Error(err))
	}

	started := time.Now()
	markup, err := a.gen.Annotate(ctx, scene.Speeches(set.Scenes))
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "annotate", "generate markup",
			"Markup generation failed; retry once the backend recovers", err)
	}

	annotated, err := scene.ApplyMarkup(set.Scenes, markup)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "annotate", "merge markup",
			"Backend returned a mismatched markup count; rerun annotation", err)
	}

	saved, err := a.store.SaveSceneSet(ctx, sess.ID, scene.StageAnnotate, annotated)
	if err != nil {
		return services.Wrap(
			services.ErrGeneration, "annotate", "save scenes",
			"Failed to store annotated scenes; check the data directory", err)
	}

	sess.ProgressStage = "Annotated"
	sess.ProgressMessage = fmt.Sprintf("Annotated %d scenes awaiting review", len(saved.Scenes))
	logger.Info(
		"annotation generated",
		logging.Int("scene_count", len(saved.Scenes)),
		logging.Int("set_version", saved.Version),
		logging.Duration("generation_time", time.Since(started)),
	)
	return nil
}

// HealthCheck verifies the generation backend is reachable.
func (a *Annotator) HealthCheck(ctx context.Context) stage.Health {
	const name = "annotator"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if a.gen == nil {
		return stage.Unhealthy(name, "generation backend unavailable")
	}
	if err := a.gen.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}
