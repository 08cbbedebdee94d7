package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/llm"
)

type fakeClient struct {
	answer     string
	err        error
	lastPrompt string
	lastTier   llm.ModelTier
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastPrompt = prompt
	f.lastTier = tier
	return f.answer, f.err
}

func (f *fakeClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}
func (f *fakeClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not used")
}
func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                  { return nil }

func TestAnswerUsesLargeTierWithEvidence(t *testing.T) {
	client := &fakeClient{answer: "# Acme Corp\n\nAnswer text."}
	s := New(client)

	bundle := evidence.New("Tell me about Acme Corp")
	bundle.Passages = []evidence.Passage{{Source: "report.pdf", Content: "Acme invested in ML."}}

	answer, err := s.Answer(context.Background(), bundle)
	require.NoError(t, err)
	assert.Equal(t, "# Acme Corp\n\nAnswer text.", answer)

	assert.Equal(t, llm.TierLarge, client.lastTier)
	assert.Contains(t, client.lastPrompt, "Tell me about Acme Corp")
	assert.Contains(t, client.lastPrompt, "Acme invested in ML.")
}

func TestAnswerTrimsWhitespace(t *testing.T) {
	client := &fakeClient{answer: "\n\n  answer  \n"}
	s := New(client)

	answer, err := s.Answer(context.Background(), evidence.New("q"))
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
}

func TestAnswerFailsOnModelError(t *testing.T) {
	client := &fakeClient{err: llm.ErrUnavailable}
	s := New(client)

	_, err := s.Answer(context.Background(), evidence.New("q"))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestAnswerFailsOnEmptyResponse(t *testing.T) {
	client := &fakeClient{answer: "   \n  "}
	s := New(client)

	_, err := s.Answer(context.Background(), evidence.New("q"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}
