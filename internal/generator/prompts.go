package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// narrationPrompt captures the instructions sent to the configured model when
// narrating a slide deck. Update this text centrally so every backend stays
// in sync.
const narrationPrompt = `You are a presentation narrator that converts slide decks into spoken scenes.

For every slide in the attached document, in order, produce exactly one scene with:

- "comment": a short human-readable description of what the slide shows, used as a label during review.

- "speech": the narration to read aloud for that slide. Write complete spoken sentences. No stage directions, no slide numbers, no markup.

Rules:

- Cover every slide exactly once, first slide first. Never merge or skip slides, even when a slide only shows an image.

- Make the narration flow from slide to slide as one continuous talk.

You must respond ONLY with a JSON object like: {"scenes": [{"comment": "Title slide", "speech": "Welcome to the session."}]}`

// annotationPrompt captures the instructions sent to the configured model
// when enriching narration with delivery markup.
const annotationPrompt = `You are a speech-synthesis director that annotates narration for expressive delivery.

You will receive an ordered list of narration speeches. For each speech, produce a "markup" rendition of the same speech annotated for speech synthesis: add emphasis, pauses, and pacing tags where they improve delivery, and keep the words otherwise unchanged.

Rules:

- Return exactly one markup entry per input speech, in the same order. Never drop, merge, or reorder entries.

- Keep the language of each speech unchanged.

You must respond ONLY with a JSON object like: {"scenes": [{"markup": "<emphasis>Welcome</emphasis> to the session. <break time=\"300ms\"/>"}]}`

func narrationSystemPrompt(s Settings) string {
	var b strings.Builder
	b.WriteString(narrationPrompt)
	if lang := strings.TrimSpace(s.Language); lang != "" {
		fmt.Fprintf(&b, "\n\nWrite all speech in %s.", lang)
	}
	if s.MaxSpeechWords > 0 {
		fmt.Fprintf(&b, "\n\nKeep each speech under %d words.", s.MaxSpeechWords)
	}
	return b.String()
}

func narrationUserPrompt(s Settings, deckTitle string) string {
	var b strings.Builder
	title := strings.TrimSpace(deckTitle)
	if title == "" {
		b.WriteString("Narrate the attached slide deck.")
	} else {
		fmt.Fprintf(&b, "Narrate the attached slide deck titled %q.", title)
	}
	if extra := strings.TrimSpace(s.Instructions); extra != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(extra)
	}
	return b.String()
}

func annotationSystemPrompt(s Settings) string {
	return annotationPrompt
}

func annotationUserPrompt(speeches []string) (string, error) {
	encoded, err := json.Marshal(map[string][]string{"speeches": speeches})
	if err != nil {
		return "", fmt.Errorf("encode speeches: %w", err)
	}
	return "Annotate every speech in this input:\n" + string(encoded), nil
}
