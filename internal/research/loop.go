// Package research implements the bounded deep-research loop: assess gaps in
// the evidence gathered so far, search the web to fill them, and repeat until
// the evidence is sufficient or the round cap is reached.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/prompts"
	"github.com/jonathan/portfolio-research/internal/schemas"
	"github.com/jonathan/portfolio-research/internal/websearch"
)

// MaxSearchQueriesPerRound caps the searches one round can issue, regardless
// of how many queries the gap assessment returns.
const MaxSearchQueriesPerRound = 4

// ErrGapAssessment indicates the gap assessment could not produce a usable
// decision. The loop stops early; evidence collected so far is kept.
var ErrGapAssessment = errors.New("gap assessment failed")

const gapSchema = `{
	"type": "object",
	"required": ["sufficient", "search_queries"],
	"properties": {
		"sufficient": {"type": "boolean"},
		"search_queries": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

type gapResponse struct {
	Sufficient    bool     `json:"sufficient"`
	SearchQueries []string `json:"search_queries"`
}

// Progress is called at the start of each round with the 1-based round number
// and the round cap.
type Progress func(round, total int)

// Looper runs deep-research rounds against a search backend.
type Looper struct {
	client llm.Client
	search websearch.Client
	rounds int
}

// New creates a looper with a hard cap of rounds iterations.
func New(client llm.Client, search websearch.Client, rounds int) *Looper {
	return &Looper{client: client, search: search, rounds: rounds}
}

// Rounds returns the configured round cap.
func (l *Looper) Rounds() int { return l.rounds }

// Run executes up to the configured number of rounds, appending each round's
// findings to the bundle. Rounds are cumulative and never re-fetch earlier
// evidence. A failed gap assessment stops the loop with ErrGapAssessment; the
// bundle keeps everything gathered before the failure.
func (l *Looper) Run(ctx context.Context, bundle *evidence.Bundle, progress Progress) error {
	if l.search == nil || l.rounds <= 0 {
		return nil
	}

	for round := 1; round <= l.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil {
			progress(round, l.rounds)
		}

		assessment, err := l.assessGaps(ctx, bundle)
		if err != nil {
			log.Printf("[Research] Round %d gap assessment failed: %v", round, err)
			bundle.AddNote("Deep research stopped early in round %d: gap assessment failed.", round)
			return fmt.Errorf("%w: %v", ErrGapAssessment, err)
		}
		if assessment.Sufficient {
			log.Printf("[Research] Evidence judged sufficient after %d round(s)", round-1)
			return nil
		}

		queries := capQueries(assessment.SearchQueries)
		if len(queries) == 0 {
			log.Printf("[Research] Round %d produced no search queries, stopping", round)
			return nil
		}

		bundle.AddRound(l.searchRound(ctx, queries))
	}

	log.Printf("[Research] Round cap of %d reached", l.rounds)
	return nil
}

// assessGaps asks the model whether current evidence answers the query and,
// when it does not, which searches would fill the gaps.
func (l *Looper) assessGaps(ctx context.Context, bundle *evidence.Bundle) (*gapResponse, error) {
	prompt, err := prompts.Render("research.json", "gap_assessment", map[string]string{
		"Query":      bundle.Query,
		"Evidence":   bundle.Render(),
		"MaxQueries": strconv.Itoa(MaxSearchQueriesPerRound),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render gap assessment prompt: %w", err)
	}

	raw, err := l.client.GenerateJSON(ctx, prompt, llm.TierMedium)
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateJSONString(gapSchema, raw); err != nil {
		return nil, err
	}
	var resp gapResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse gap assessment response: %w", err)
	}
	return &resp, nil
}

// searchRound runs all queries concurrently. Findings keep query order so the
// rendered evidence is deterministic. A failed search contributes an empty
// finding instead of aborting the round.
func (l *Looper) searchRound(ctx context.Context, queries []string) evidence.Round {
	findings := make([]evidence.Finding, len(queries))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, query := range queries {
		group.Go(func() error {
			results, err := l.search.Search(groupCtx, query)
			if err != nil {
				log.Printf("[Research] Search failed for %q: %v", query, err)
				findings[i] = evidence.Finding{Query: query}
				return nil
			}
			hits := make([]evidence.SearchResult, 0, len(results))
			for _, r := range results {
				hits = append(hits, evidence.SearchResult{
					Title:   r.Title,
					URL:     r.URL,
					Snippet: r.Snippet,
				})
			}
			findings[i] = evidence.Finding{Query: query, Results: hits}
			return nil
		})
	}
	_ = group.Wait()

	return evidence.Round{Findings: findings}
}

func capQueries(queries []string) []string {
	seen := make(map[string]bool)
	var capped []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		capped = append(capped, q)
		if len(capped) == MaxSearchQueriesPerRound {
			break
		}
	}
	return capped
}
