package scene

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"lectern/internal/services"
)

// Edit is a partial override of one scene's editable fields. Nil fields are
// left untouched. Index selects the target scene and is itself never
// editable.
type Edit struct {
	Index   int     `json:"index" yaml:"index"`
	Comment *string `json:"comment,omitempty" yaml:"comment"`
	Speech  *string `json:"speech,omitempty" yaml:"speech"`
	Markup  *string `json:"markup,omitempty" yaml:"markup"`
}

// Empty reports whether the edit overrides nothing.
func (e Edit) Empty() bool {
	return e.Comment == nil && e.Speech == nil && e.Markup == nil
}

// ApplyEdits returns a new scene slice with the edits applied. Every edit
// must reference an existing index; otherwise the call fails and the input
// is untouched. Applying the same edits twice yields the same result.
func ApplyEdits(scenes []Scene, edits []Edit) ([]Scene, error) {
	byIndex := make(map[int]int, len(scenes))
	for pos, sc := range scenes {
		byIndex[sc.Index] = pos
	}

	var unknown []int
	for _, edit := range edits {
		if _, ok := byIndex[edit.Index]; !ok {
			unknown = append(unknown, edit.Index)
		}
	}
	if len(unknown) > 0 {
		sort.Ints(unknown)
		parts := make([]string, len(unknown))
		for i, idx := range unknown {
			parts[i] = fmt.Sprintf("%d", idx)
		}
		return nil, fmt.Errorf("edits reference unknown scene indices %s: %w", strings.Join(parts, ", "), services.ErrValidation)
	}

	out := Clone(scenes)
	for _, edit := range edits {
		pos := byIndex[edit.Index]
		if edit.Comment != nil {
			out[pos].Comment = *edit.Comment
		}
		if edit.Speech != nil {
			out[pos].Speech = *edit.Speech
		}
		if edit.Markup != nil {
			out[pos].Markup = *edit.Markup
		}
	}
	return out, nil
}

// DecodeEdits parses an edit list from JSON or YAML. JSON input is detected
// by its leading bracket; everything else is treated as YAML.
func DecodeEdits(data []byte) ([]Edit, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("edit payload is empty: %w", services.ErrValidation)
	}

	var edits []Edit
	var err error
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal([]byte(trimmed), &edits)
	} else {
		err = yaml.Unmarshal(data, &edits)
	}
	if err != nil {
		return nil, fmt.Errorf("parse edits: %v: %w", err, services.ErrValidation)
	}
	if len(edits) == 0 {
		return nil, fmt.Errorf("edit payload contains no edits: %w", services.ErrValidation)
	}
	for _, edit := range edits {
		if edit.Empty() {
			return nil, fmt.Errorf("edit for scene %d overrides no fields: %w", edit.Index, services.ErrValidation)
		}
	}
	return edits, nil
}
