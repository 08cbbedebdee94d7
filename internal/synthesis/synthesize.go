// Package synthesis turns a gathered evidence bundle into the final answer.
package synthesis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/prompts"
)

// Synthesizer composes final answers on the most capable model tier.
type Synthesizer struct {
	client llm.Client
}

// New creates a synthesizer.
func New(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Answer generates the final markdown answer from the evidence bundle.
// Synthesis is the one stage with no degraded fallback: if the large model
// cannot produce an answer the whole job fails.
func (s *Synthesizer) Answer(ctx context.Context, bundle *evidence.Bundle) (string, error) {
	prompt, err := prompts.Render("synthesis.json", "final_answer", map[string]string{
		"Query":    bundle.Query,
		"Evidence": bundle.Render(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render synthesis prompt: %w", err)
	}

	answer, err := s.client.GenerateContent(ctx, prompt, llm.TierLarge)
	if err != nil {
		return "", fmt.Errorf("answer synthesis failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("answer synthesis returned empty content")
	}

	log.Printf("[Synthesis] Generated answer (%d chars) from: %s",
		len(answer), strings.Join(bundle.Categories(), ", "))
	return answer, nil
}
