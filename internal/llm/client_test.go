package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain JSON", `{"a": 1}`, `{"a": 1}`},
		{"JSON fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
		{"Fence with inner whitespace", "```json\n  {\"a\": 1}  \n```", `{"a": 1}`},
		{"Payload on opening fence line", "```{\"a\":\n1}\n```", "{\"a\":\n1}"},
		{"Single line fence", "```{\"a\": 1}```", `{"a": 1}`},
		{"Array payload", "```json\n[1, 2]\n```", `[1, 2]`},
		{"Empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripFences(tt.input))
		})
	}
}
