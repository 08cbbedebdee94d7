package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/prompts"
	"github.com/jonathan/portfolio-research/internal/schemas"
)

const (
	// MaxReformulatedQueries caps how many search strings one user query can
	// fan out into, regardless of what the model returns.
	MaxReformulatedQueries = 5
	// requestedQueries is how many reformulations the prompt asks for.
	requestedQueries = 2
)

// reformulationSchema validates the model's reformulation response before
// any field is read.
const reformulationSchema = `{
	"type": "object",
	"required": ["reformulated_queries"],
	"properties": {
		"reformulated_queries": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

type reformulationResponse struct {
	ReformulatedQueries []string `json:"reformulated_queries"`
}

// Reformulate turns the user query into several diverse knowledge-base
// search strings to widen recall against the vector index. On any failure it
// falls back to the original query so retrieval still happens.
func Reformulate(ctx context.Context, client llm.Client, query string) []string {
	fallback := []string{query}

	prompt, err := prompts.Render("knowledge.json", "query_reformulation", map[string]string{
		"Query": query,
		"Count": strconv.Itoa(requestedQueries),
	})
	if err != nil {
		log.Printf("[Knowledge] Failed to render reformulation prompt: %v", err)
		return fallback
	}

	raw, err := client.GenerateJSON(ctx, prompt, llm.TierMedium)
	if err != nil {
		log.Printf("[Knowledge] Query reformulation failed, using original query: %v", err)
		return fallback
	}

	queries, err := parseReformulation(raw)
	if err != nil {
		log.Printf("[Knowledge] Unusable reformulation response, using original query: %v", err)
		return fallback
	}
	if len(queries) == 0 {
		return fallback
	}

	log.Printf("[Knowledge] Reformulated query into %d search queries", len(queries))
	return queries
}

func parseReformulation(raw string) ([]string, error) {
	if err := schemas.ValidateJSONString(reformulationSchema, raw); err != nil {
		return nil, err
	}

	var resp reformulationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse reformulation response: %w", err)
	}

	// Deduplicate and cap.
	seen := make(map[string]bool)
	var queries []string
	for _, q := range resp.ReformulatedQueries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
		if len(queries) == MaxReformulatedQueries {
			break
		}
	}
	return queries, nil
}
