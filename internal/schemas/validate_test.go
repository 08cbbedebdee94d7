package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["company_id"],
	"properties": {
		"company_id": {"type": "string", "minLength": 1}
	}
}`

func TestValidateJSONString(t *testing.T) {
	assert.NoError(t, ValidateJSONString(testSchema, `{"company_id": "acme-corp"}`))
}

func TestValidateJSONStringFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Missing field", `{}`},
		{"Wrong type", `{"company_id": 42}`},
		{"Empty string", `{"company_id": ""}`},
		{"Array instead of object", `["acme-corp"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONString(testSchema, tt.content)
			require.Error(t, err)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Errors)
		})
	}
}

func TestValidateJSONStringMalformedDocument(t *testing.T) {
	err := ValidateJSONString(testSchema, `not json at all`)
	require.Error(t, err)
	var le *SchemaLoadError
	assert.ErrorAs(t, err, &le)
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateJSONString(testSchema, `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "company_id")
}
