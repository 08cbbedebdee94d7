package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-research/internal/portfolio"
)

func testCompany() *portfolio.Company {
	return &portfolio.Company{
		ID:     "acme-corp",
		Name:   "Acme Corp",
		Sector: "Industrial software",
	}
}

func fullBundle() *Bundle {
	b := New("Tell me about Acme Corp's AI strategy")
	b.Company = testCompany()
	b.Passages = []Passage{
		{Source: "report-2025.pdf", Content: "Acme invested heavily in ML tooling.", Score: 0.91},
		{Source: "memo-q3.md", Content: "AI roadmap approved by the board.", Score: 0.84},
	}
	b.SiteURL = "https://acme.example"
	b.SiteText = "Acme Corp builds industrial automation software."
	b.AddRound(Round{Findings: []Finding{
		{Query: "Acme Corp AI strategy 2025", Results: []SearchResult{
			{Title: "Acme doubles down on AI", URL: "https://news.example/acme", Snippet: "..."},
		}},
	}})
	return b
}

func TestRenderOrderIsDeterministic(t *testing.T) {
	rendered := fullBundle().Render()

	metadata := strings.Index(rendered, "## PORTFOLIO METADATA")
	kb := strings.Index(rendered, "## INTERNAL KNOWLEDGE BASE")
	site := strings.Index(rendered, "## COMPANY WEBSITE")
	web := strings.Index(rendered, "## WEB RESEARCH")

	require.NotEqual(t, -1, metadata)
	require.NotEqual(t, -1, kb)
	require.NotEqual(t, -1, site)
	require.NotEqual(t, -1, web)

	assert.Less(t, metadata, kb)
	assert.Less(t, kb, site)
	assert.Less(t, site, web)
}

func TestRenderIsStableAcrossCalls(t *testing.T) {
	b := fullBundle()
	assert.Equal(t, b.Render(), b.Render())
}

func TestRenderPassageOrder(t *testing.T) {
	rendered := fullBundle().Render()
	first := strings.Index(rendered, "report-2025.pdf")
	second := strings.Index(rendered, "memo-q3.md")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestRenderEmptyBundle(t *testing.T) {
	b := New("What is machine learning?")
	rendered := b.Render()

	assert.Contains(t, rendered, "No specific portfolio company was identified")
	assert.Contains(t, rendered, "No knowledge base passages available")
	assert.Contains(t, rendered, "No company website content available")
	assert.NotContains(t, rendered, "## WEB RESEARCH")
}

func TestRenderIncludesNotes(t *testing.T) {
	b := New("q")
	b.AddNote("Company website could not be fetched; website content is missing.")
	rendered := b.Render()

	assert.Contains(t, rendered, "## GATHERING NOTES")
	assert.Contains(t, rendered, "website content is missing")
}

func TestHasExternalEvidence(t *testing.T) {
	empty := New("q")
	assert.False(t, empty.HasExternalEvidence())

	// Metadata alone is not external evidence
	metadataOnly := New("q")
	metadataOnly.Company = testCompany()
	assert.False(t, metadataOnly.HasExternalEvidence())

	withPassages := New("q")
	withPassages.Passages = []Passage{{Source: "a", Content: "b"}}
	assert.True(t, withPassages.HasExternalEvidence())

	withSite := New("q")
	withSite.SiteText = "hello"
	assert.True(t, withSite.HasExternalEvidence())

	withEmptyRound := New("q")
	withEmptyRound.AddRound(Round{Findings: []Finding{{Query: "x"}}})
	assert.False(t, withEmptyRound.HasExternalEvidence())

	withHits := New("q")
	withHits.AddRound(Round{Findings: []Finding{
		{Query: "x", Results: []SearchResult{{Title: "t", URL: "u"}}},
	}})
	assert.True(t, withHits.HasExternalEvidence())
}

func TestCategories(t *testing.T) {
	b := fullBundle()
	assert.Equal(t,
		[]string{"portfolio metadata", "internal knowledge base", "company website", "web research"},
		b.Categories())

	assert.Empty(t, New("q").Categories())
}

func TestRoundsAreCumulative(t *testing.T) {
	b := New("q")
	b.AddRound(Round{Findings: []Finding{{Query: "first"}}})
	b.AddRound(Round{Findings: []Finding{{Query: "second"}}})

	require.Len(t, b.Rounds, 2)
	assert.Equal(t, "first", b.Rounds[0].Findings[0].Query)
	assert.Equal(t, "second", b.Rounds[1].Findings[0].Query)
}
