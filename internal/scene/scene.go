package scene

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lectern/internal/services"
)

// Scene is one narrated unit corresponding to one slide. Index defines
// narration order and is never changed after the scene is created; the
// remaining fields are replaced by stage output or checkpoint edits.
type Scene struct {
	Index   int    `json:"index"`
	Comment string `json:"comment"`
	Speech  string `json:"speech"`
	Markup  string `json:"markup,omitempty"`
}

// Stage identifies which generation pass produced a scene set.
type Stage string

const (
	StageNarrate  Stage = "narrate"
	StageAnnotate Stage = "annotate"
)

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageNarrate, StageAnnotate}
}

// Valid reports whether the stage is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageNarrate, StageAnnotate:
		return true
	default:
		return false
	}
}

// Ordinal returns the 1-based position of the stage in the pipeline.
func (s Stage) Ordinal() int {
	switch s {
	case StageNarrate:
		return 1
	case StageAnnotate:
		return 2
	default:
		return 0
	}
}

// ParseStage converts user input into a Stage.
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q (expected narrate or annotate): %w", value, services.ErrValidation)
	}
	return stage, nil
}

// Set is an ordered, versioned scene collection produced by one stage run.
// Sets are superseded rather than mutated: edits and reruns store a new
// version and leave prior versions intact.
type Set struct {
	Stage     Stage     `json:"stage"`
	Version   int       `json:"version"`
	Scenes    []Scene   `json:"scenes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the scene slice.
func Clone(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	return out
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	out := *s
	out.Scenes = Clone(s.Scenes)
	return &out
}

// Validate checks the structural invariants of a stage output: at least one
// scene, indices exactly 0..n-1 in order.
func Validate(scenes []Scene) error {
	if len(scenes) == 0 {
		return fmt.Errorf("scene set is empty: %w", services.ErrValidation)
	}
	for i, sc := range scenes {
		if sc.Index != i {
			return fmt.Errorf("scene at position %d has index %d, want %d: %w", i, sc.Index, i, services.ErrValidation)
		}
	}
	return nil
}

// Speeches returns the ordered speech values, the input to the annotate stage.
func Speeches(scenes []Scene) []string {
	out := make([]string, len(scenes))
	for i, sc := range scenes {
		out[i] = sc.Speech
	}
	return out
}

// ApplyMarkup returns a new slice with markup merged onto the input scenes.
// The markup values are positional and must match the scene count exactly.
func ApplyMarkup(scenes []Scene, markup []string) ([]Scene, error) {
	if len(markup) != len(scenes) {
		return nil, fmt.Errorf("markup count %d does not match scene count %d", len(markup), len(scenes))
	}
	out := Clone(scenes)
	for i := range out {
		out[i].Markup = markup[i]
	}
	return out, nil
}

// Script assembles the plain-text narration script: markup values joined by
// newlines in index order. Scenes without markup fall back to speech so a
// narrated-only set still renders a usable script.
func Script(scenes []Scene) string {
	lines := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		line := sc.Markup
		if line == "" {
			line = sc.Speech
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// MarshalDocument renders the full structured record for export.
func MarshalDocument(scenes []Scene) ([]byte, error) {
	data, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scenes: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalDocument parses a previously exported structured record.
func UnmarshalDocument(data []byte) ([]Scene, error) {
	var scenes []Scene
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("parse scenes: %w", err)
	}
	return scenes, nil
}
