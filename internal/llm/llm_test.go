package llm

import (
	"strings"
	"testing"
)

func TestBuildGenerationPrompt(t *testing.T) {
	prompt := buildGenerationPrompt("working at height", 5)

	if !strings.Contains(prompt, "working at height") {
		t.Error("prompt should contain the topic")
	}
	if !strings.Contains(prompt, "NUMBER OF QUESTIONS: 5") {
		t.Error("prompt should contain the requested count")
	}
	if !strings.Contains(prompt, `"questions"`) {
		t.Error("prompt should describe the expected JSON shape")
	}
}

func TestParseGenerationResult(t *testing.T) {
	raw := `{"questions": [
		{"text": "Harness inspected?", "response_type": "sim_nao", "is_required": true, "weight": 8},
		{"text": "Anchor point type", "response_type": "multiple_choice", "options": ["beam", "lifeline"], "weight": 0},
		{"text": "Notes", "response_type": "paragraph", "options": ["stray"], "weight": 1}
	]}`

	drafts, err := parseGenerationResult(raw)
	if err != nil {
		t.Fatalf("parseGenerationResult: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}

	// Legacy response-type spellings are normalized.
	if drafts[0].ResponseType != "yes_no" {
		t.Errorf("draft 0 response type = %q, want yes_no", drafts[0].ResponseType)
	}
	// Non-positive weights are corrected so drafts stay insertable.
	if drafts[1].Weight != 1 {
		t.Errorf("draft 1 weight = %f, want 1", drafts[1].Weight)
	}
	if len(drafts[1].Options) != 2 {
		t.Errorf("draft 1 options = %v", drafts[1].Options)
	}
	// Options are dropped for types that do not carry them.
	if drafts[2].Options != nil {
		t.Errorf("draft 2 options = %v, want nil", drafts[2].Options)
	}
}

func TestParseGenerationResultErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON", "here are your questions:"},
		{"empty list", `{"questions": []}`},
		{"wrong shape", `{"items": [{"text": "q"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseGenerationResult(tt.raw); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
