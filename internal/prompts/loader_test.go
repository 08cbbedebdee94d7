package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmbeddedPrompts(t *testing.T) {
	tests := []struct {
		file string
		key  string
	}{
		{"identify.json", "identify_company"},
		{"identify.json", "no_company_fallback"},
		{"knowledge.json", "query_reformulation"},
		{"research.json", "gap_assessment"},
		{"synthesis.json", "final_answer"},
	}

	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.key, func(t *testing.T) {
			prompt, err := Render(tt.file, tt.key, nil)
			require.NoError(t, err)
			assert.NotEmpty(t, prompt)
		})
	}
}

func TestRenderMissing(t *testing.T) {
	_, err := Render("identify.json", "nonexistent_key", nil)
	assert.Error(t, err)

	_, err = Render("nonexistent.json", "any", nil)
	assert.Error(t, err)
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	prompt, err := Render("knowledge.json", "query_reformulation", map[string]string{
		"Query": "acme ai",
		"Count": "2",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "acme ai")
	assert.NotContains(t, prompt, "{{.Query}}")
	assert.NotContains(t, prompt, "{{.Count}}")
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	// A value the template does not reference is ignored; a placeholder with
	// no value stays visible.
	prompt, err := Render("identify.json", "no_company_fallback", map[string]string{
		"Unrelated": "unused-value",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Query}}")
	assert.NotContains(t, prompt, "unused-value")
}

func TestPromptPlaceholders(t *testing.T) {
	// Every placeholder used by callers must exist in the stored templates.
	tests := []struct {
		file         string
		key          string
		placeholders []string
	}{
		{"identify.json", "identify_company", []string{"{{.Query}}", "{{.Companies}}"}},
		{"identify.json", "no_company_fallback", []string{"{{.Query}}"}},
		{"knowledge.json", "query_reformulation", []string{"{{.Query}}", "{{.Count}}"}},
		{"research.json", "gap_assessment", []string{"{{.Query}}", "{{.Evidence}}", "{{.MaxQueries}}"}},
		{"synthesis.json", "final_answer", []string{"{{.Query}}", "{{.Evidence}}"}},
	}

	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.key, func(t *testing.T) {
			prompt, err := Render(tt.file, tt.key, nil)
			require.NoError(t, err)
			for _, p := range tt.placeholders {
				assert.Contains(t, prompt, p)
			}
		})
	}
}
