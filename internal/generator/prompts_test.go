package generator

import (
	"strings"
	"testing"
)

func TestNarrationSystemPromptIncludesKnobs(t *testing.T) {
	prompt := narrationSystemPrompt(Settings{Language: "de-DE", MaxSpeechWords: 80})
	if !strings.Contains(prompt, "de-DE") {
		t.Fatalf("expected language in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "under 80 words") {
		t.Fatalf("expected word cap in prompt, got %q", prompt)
	}

	bare := narrationSystemPrompt(Settings{})
	if strings.Contains(bare, "under") || strings.Contains(bare, "Write all speech in") {
		t.Fatalf("expected knob sentences omitted when unset, got %q", bare)
	}
}

func TestNarrationUserPrompt(t *testing.T) {
	prompt := narrationUserPrompt(Settings{Instructions: "Skip the appendix."}, "Launch Plan")
	if !strings.Contains(prompt, `"Launch Plan"`) {
		t.Fatalf("expected deck title quoted, got %q", prompt)
	}
	if !strings.Contains(prompt, "Skip the appendix.") {
		t.Fatalf("expected extra instructions, got %q", prompt)
	}

	untitled := narrationUserPrompt(Settings{}, "  ")
	if !strings.Contains(untitled, "Narrate the attached slide deck.") {
		t.Fatalf("expected untitled variant, got %q", untitled)
	}
}

func TestAnnotationUserPromptEncodesSpeeches(t *testing.T) {
	prompt, err := annotationUserPrompt([]string{"First.", `Say "hi".`})
	if err != nil {
		t.Fatalf("annotationUserPrompt returned error: %v", err)
	}
	if !strings.Contains(prompt, `"speeches":["First.","Say \"hi\"."]`) {
		t.Fatalf("expected JSON-encoded speeches, got %q", prompt)
	}
}
