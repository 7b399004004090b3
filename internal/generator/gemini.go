package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"lectern/internal/deck"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates scenes with the Gemini API. The deck rides along as an
// inline blob so the model reads the slides directly. A client is created
// per call; construction is cheap and a rotated key takes effect without a
// restart.
type Gemini struct {
	settings Settings
}

// NewGemini constructs a Gemini-backed generator.
func NewGemini(settings Settings) *Gemini {
	return &Gemini{settings: trimSettings(settings)}
}

var narrationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"scenes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"comment": {Type: genai.TypeString, Description: "short label describing what the slide shows"},
					"speech":  {Type: genai.TypeString, Description: "narration to read aloud for the slide"},
				},
				Required: []string{"comment", "speech"},
			},
		},
	},
	Required: []string{"scenes"},
}

var annotationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"scenes": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"markup": {Type: genai.TypeString, Description: "the speech annotated for expressive delivery"},
				},
				Required: []string{"markup"},
			},
		},
	},
	Required: []string{"scenes"},
}

func (g *Gemini) client(ctx context.Context) (*genai.Client, error) {
	if g.settings.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.settings.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

func (g *Gemini) model() string {
	if g.settings.Model != "" {
		return g.settings.Model
	}
	return defaultGeminiModel
}

// Narrate sends the deck inline and returns one draft scene per slide.
func (g *Gemini) Narrate(ctx context.Context, d *deck.Deck) ([]DraftScene, error) {
	if d == nil || len(d.Data) == 0 {
		return nil, errors.New("narrate: deck required")
	}
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(d.Data, d.MIMEType),
		genai.NewPartFromText(narrationUserPrompt(g.settings, d.Title)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(narrationSystemPrompt(g.settings), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    narrationSchema,
		Temperature:       genai.Ptr[float32](0),
	}

	result, err := client.Models.GenerateContent(ctx, g.model(), contents, config)
	if err != nil {
		return nil, fmt.Errorf("narrate: generate content: %w", err)
	}
	content, err := geminiResponseText(result)
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}
	var parsed narrationResponse
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("narrate: parse payload: %w", err)
	}
	return validateDraftScenes(parsed.Scenes)
}

// Annotate sends the ordered speeches and returns one markup value each.
func (g *Gemini) Annotate(ctx context.Context, speeches []string) ([]string, error) {
	if len(speeches) == 0 {
		return nil, errors.New("annotate: speeches required")
	}
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	userPrompt, err := annotationUserPrompt(speeches)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(annotationSystemPrompt(g.settings), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    annotationSchema,
		Temperature:       genai.Ptr[float32](0),
	}

	result, err := client.Models.GenerateContent(ctx, g.model(), genai.Text(userPrompt), config)
	if err != nil {
		return nil, fmt.Errorf("annotate: generate content: %w", err)
	}
	content, err := geminiResponseText(result)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	var parsed annotationResponse
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("annotate: parse payload: %w", err)
	}
	return validateMarkup(parsed.markupValues(), len(speeches))
}

// HealthCheck issues a minimal generation to verify the key and model.
func (g *Gemini) HealthCheck(ctx context.Context) error {
	client, err := g.client(ctx)
	if err != nil {
		return err
	}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	result, err := client.Models.GenerateContent(ctx, g.model(), genai.Text("Respond with {\"ok\":true}"), config)
	if err != nil {
		return fmt.Errorf("generator health: %w", err)
	}
	content, err := geminiResponseText(result)
	if err != nil {
		return fmt.Errorf("generator health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return fmt.Errorf("generator health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("generator health: unexpected response")
	}
	return nil
}

func geminiResponseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("empty response")
	}
	return text.String(), nil
}
