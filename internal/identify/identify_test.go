package identify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/portfolio"
)

type fakeClient struct {
	jsonResponse    string
	jsonErr         error
	contentResponse string
	contentErr      error
}

func (f *fakeClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return f.contentResponse, f.contentErr
}

func (f *fakeClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return f.jsonResponse, f.jsonErr
}

func (f *fakeClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                  { return nil }

func testCatalog(t *testing.T) *portfolio.Catalog {
	t.Helper()
	catalog, err := portfolio.Parse([]byte(`[
		{"id": "acme-corp", "name": "Acme Corp", "aliases": ["Acme"], "sector": "Industrial software"},
		{"id": "borealis-health", "name": "Borealis Health", "sector": "Healthcare"}
	]`))
	require.NoError(t, err)
	return catalog
}

func TestCompanyIdentified(t *testing.T) {
	client := &fakeClient{jsonResponse: `{"company_id": "acme-corp"}`}
	identifier := New(client, testCatalog(t))

	company := identifier.Company(context.Background(), "Tell me about Acme Corp's AI strategy")
	require.NotNil(t, company)
	assert.Equal(t, "Acme Corp", company.Name)
}

func TestCompanyIDIsNormalized(t *testing.T) {
	client := &fakeClient{jsonResponse: `{"company_id": " Acme-Corp "}`}
	identifier := New(client, testCatalog(t))

	company := identifier.Company(context.Background(), "query")
	require.NotNil(t, company)
	assert.Equal(t, "acme-corp", company.ID)
}

func TestCompanyNoMatch(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"Explicit none", `{"company_id": "none"}`, nil},
		{"Out-of-catalog id rejected", `{"company_id": "evil-corp"}`, nil},
		{"Model failure degrades", "", llm.ErrUnavailable},
		{"Malformed response degrades", "the company is acme", nil},
		{"Wrong shape degrades", `{"company": "acme-corp"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{jsonResponse: tt.response, jsonErr: tt.err}
			identifier := New(client, testCatalog(t))
			assert.Nil(t, identifier.Company(context.Background(), "What is machine learning?"))
		})
	}
}

func TestFallbackAnswer(t *testing.T) {
	client := &fakeClient{contentResponse: "  I can only help with portfolio company questions.  "}
	identifier := New(client, testCatalog(t))

	answer, err := identifier.FallbackAnswer(context.Background(), "What is machine learning?")
	require.NoError(t, err)
	assert.Equal(t, "I can only help with portfolio company questions.", answer)
}

func TestFallbackAnswerError(t *testing.T) {
	client := &fakeClient{contentErr: llm.ErrTimeout}
	identifier := New(client, testCatalog(t))

	_, err := identifier.FallbackAnswer(context.Background(), "query")
	assert.Error(t, err)
}
