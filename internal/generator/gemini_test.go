package generator

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiResponseText(t *testing.T) {
	result := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: `{"scenes":[`},
						{Text: `{"comment":"Title","speech":"Welcome."}]}`},
					},
				},
			},
		},
	}
	text, err := geminiResponseText(result)
	if err != nil {
		t.Fatalf("geminiResponseText returned error: %v", err)
	}
	if !strings.Contains(text, `"speech":"Welcome."`) {
		t.Fatalf("expected concatenated parts, got %q", text)
	}
}

func TestGeminiResponseTextEmpty(t *testing.T) {
	cases := []struct {
		name   string
		result *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{"no text parts", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{}}}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := geminiResponseText(tc.result); err == nil {
				t.Fatal("expected error for empty response")
			}
		})
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	client := NewGemini(Settings{})
	ctx := context.Background()

	if _, err := client.Narrate(ctx, testDeck()); err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error from Narrate, got %v", err)
	}
	if _, err := client.Annotate(ctx, []string{"One."}); err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error from Annotate, got %v", err)
	}
	if err := client.HealthCheck(ctx); err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error from HealthCheck, got %v", err)
	}
}

func TestGeminiModelFallback(t *testing.T) {
	if got := NewGemini(Settings{}).model(); got != defaultGeminiModel {
		t.Fatalf("expected default model, got %q", got)
	}
	if got := NewGemini(Settings{Model: "gemini-2.5-pro"}).model(); got != "gemini-2.5-pro" {
		t.Fatalf("expected configured model, got %q", got)
	}
}
