package export

import (
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/textutil"
)

const (
	scenesFileName = "scenes.json"
	scriptFileName = "script.txt"
)

// Result records where a session's export artifacts were written.
type Result struct {
	Dir        string
	ScenesPath string
	ScriptPath string
}

// Exporter renders approved scene sets into the export directory. Two
// representations are produced per session: the structured JSON record and
// the plain-text narration script.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an Exporter.
func New(cfg *config.Config, logger *slog.Logger) *Exporter {
	return &Exporter{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "exporter"),
	}
}

// SessionDir returns the per-session export folder: a sanitized title slug
// suffixed with the session ID so independent sessions never collide.
func (e *Exporter) SessionDir(sess *session.Session) string {
	slug := textutil.SanitizeToken(sess.Title)
	return filepath.Join(e.cfg.Paths.ExportDir, fmt.Sprintf("%s-%d", slug, sess.ID))
}

// Write renders both export representations for the given scenes.
func (e *Exporter) Write(sess *session.Session, scenes []scene.Scene) (Result, error) {
	if len(scenes) == 0 {
		return Result{}, services.Wrap(
			services.ErrPrecondition, "export", "validate scenes",
			"Nothing to export; the session has no annotated scenes", nil)
	}

	dir := e.SessionDir(sess)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(
			services.ErrConfiguration, "export", "ensure export dir",
			"Failed to create the export directory; set paths.export_dir to a writable path", err)
	}

	doc, err := scene.MarshalDocument(scenes)
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrValidation, "export", "encode scenes",
			"Failed to encode the scene record", err)
	}

	scenesPath := filepath.Join(dir, scenesFileName)
	if err := os.WriteFile(scenesPath, doc, 0o644); err != nil {
		return Result{}, services.Wrap(
			services.ErrConfiguration, "export", "write scenes record",
			"Failed to write scenes.json; check export directory permissions", err)
	}

	scriptPath := filepath.Join(dir, scriptFileName)
	script := scene.Script(scenes) + "\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return Result{}, services.Wrap(
			services.ErrConfiguration, "export", "write script",
			"Failed to write script.txt; check export directory permissions", err)
	}

	e.logger.Info(
		"session exported",
		logging.Int64(logging.FieldSessionID, sess.ID),
		logging.Int("scene_count", len(scenes)),
		logging.String("export_dir", dir),
	)
	return Result{Dir: dir, ScenesPath: scenesPath, ScriptPath: scriptPath}, nil
}
