package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Go Concurrency", "go_concurrency"},
		{"keeps digits and separators", "week-3_intro", "week-3_intro"},
		{"replaces punctuation", "What's New? (2026)", "what_s_new___2026"},
		{"trims separator runs", "--draft--", "draft"},
		{"empty input", "", "unknown"},
		{"whitespace only", "   ", "unknown"},
		{"all punctuation", "!!!", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
