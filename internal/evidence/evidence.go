// Package evidence defines the transient bundle of gathered information used
// to answer one research job. A bundle is owned by a single orchestrator run
// and is never shared or persisted.
package evidence

import (
	"fmt"
	"strings"

	"github.com/jonathan/portfolio-research/internal/portfolio"
)

// Passage is a ranked knowledge-base excerpt.
type Passage struct {
	Source  string `json:"source"`
	Content string `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Finding holds the results of one search query within a round, kept in the
// order the queries were issued so rendering stays deterministic.
type Finding struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// Round is one deep-research iteration's worth of web findings.
type Round struct {
	Findings []Finding `json:"findings"`
}

// Bundle accumulates everything gathered for a job. Sources are rendered in
// a fixed trust order regardless of which fetch finished first: static
// portfolio metadata, then knowledge-base passages, then the company
// website, then web research rounds.
type Bundle struct {
	Query    string
	Company  *portfolio.Company
	Passages []Passage
	SiteURL  string
	SiteText string
	Rounds   []Round

	// notes records degraded sources for progress messages and prompt
	// transparency.
	notes []string
}

// New creates an empty bundle for a query.
func New(query string) *Bundle {
	return &Bundle{Query: query}
}

// AddNote records a degraded-source notice.
func (b *Bundle) AddNote(format string, args ...any) {
	b.notes = append(b.notes, fmt.Sprintf(format, args...))
}

// Notes returns the degraded-source notices in the order they were recorded.
func (b *Bundle) Notes() []string {
	return b.notes
}

// AddRound appends one deep-research round's findings. Rounds are cumulative:
// earlier rounds are never replaced.
func (b *Bundle) AddRound(round Round) {
	b.Rounds = append(b.Rounds, round)
}

// HasExternalEvidence reports whether anything beyond static metadata was
// gathered successfully.
func (b *Bundle) HasExternalEvidence() bool {
	if len(b.Passages) > 0 || strings.TrimSpace(b.SiteText) != "" {
		return true
	}
	for _, round := range b.Rounds {
		for _, finding := range round.Findings {
			if len(finding.Results) > 0 {
				return true
			}
		}
	}
	return false
}

// Categories lists the evidence categories present, in render order.
func (b *Bundle) Categories() []string {
	var cats []string
	if b.Company != nil {
		cats = append(cats, "portfolio metadata")
	}
	if len(b.Passages) > 0 {
		cats = append(cats, "internal knowledge base")
	}
	if strings.TrimSpace(b.SiteText) != "" {
		cats = append(cats, "company website")
	}
	if len(b.Rounds) > 0 {
		cats = append(cats, "web research")
	}
	return cats
}

// Render produces the evidence block for the synthesis prompt. The order is
// deterministic given the same inputs: it depends only on bundle contents,
// never on fetch completion order.
func (b *Bundle) Render() string {
	var sb strings.Builder

	if b.Company != nil {
		sb.WriteString("## PORTFOLIO METADATA\n")
		sb.WriteString(b.Company.Metadata())
		sb.WriteString("\n")
	} else {
		sb.WriteString("## PORTFOLIO METADATA\nNo specific portfolio company was identified for this query.\n\n")
	}

	sb.WriteString("## INTERNAL KNOWLEDGE BASE\n")
	if len(b.Passages) == 0 {
		sb.WriteString("No knowledge base passages available.\n\n")
	} else {
		for i, passage := range b.Passages {
			sb.WriteString(fmt.Sprintf("### Passage %d: %s\n%s\n\n", i+1, passage.Source, passage.Content))
		}
	}

	sb.WriteString("## COMPANY WEBSITE\n")
	if strings.TrimSpace(b.SiteText) == "" {
		sb.WriteString("No company website content available.\n\n")
	} else {
		if b.SiteURL != "" {
			sb.WriteString("Source: " + b.SiteURL + "\n\n")
		}
		sb.WriteString(b.SiteText)
		sb.WriteString("\n\n")
	}

	if len(b.Rounds) > 0 {
		sb.WriteString("## WEB RESEARCH\n")
		for i, round := range b.Rounds {
			sb.WriteString(fmt.Sprintf("### Round %d\n", i+1))
			for _, finding := range round.Findings {
				sb.WriteString(fmt.Sprintf("Search: %s\n", finding.Query))
				for j, result := range finding.Results {
					sb.WriteString(fmt.Sprintf("%d. [%s](%s): %s\n", j+1, result.Title, result.URL, result.Snippet))
				}
				sb.WriteString("\n")
			}
		}
	}

	if len(b.notes) > 0 {
		sb.WriteString("## GATHERING NOTES\n")
		for _, note := range b.notes {
			sb.WriteString("- " + note + "\n")
		}
	}

	return sb.String()
}
