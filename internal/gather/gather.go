// Package gather runs the fan-out information gathering stage: knowledge-base
// retrieval and company-website fetching execute concurrently, and each
// source fails soft so one outage never empties the whole bundle.
package gather

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/fetch"
	"github.com/jonathan/portfolio-research/internal/knowledge"
	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/portfolio"
)

// Gatherer collects evidence for a query from all configured sources.
type Gatherer struct {
	client    llm.Client
	retriever knowledge.Retriever
	fetchOpts *fetch.Options
}

// New creates a gatherer. A nil retriever disables knowledge-base lookup.
func New(client llm.Client, retriever knowledge.Retriever, fetchOpts *fetch.Options) *Gatherer {
	if retriever == nil {
		retriever = knowledge.NewNoop()
	}
	if fetchOpts == nil {
		fetchOpts = fetch.DefaultOptions()
	}
	return &Gatherer{client: client, retriever: retriever, fetchOpts: fetchOpts}
}

// Run gathers evidence for the query into a fresh bundle. The company may be
// nil when identification found no match; gathering then skips the website
// fetch and relies on the knowledge base alone. Source failures are recorded
// as bundle notes, never returned as errors.
func (g *Gatherer) Run(ctx context.Context, query string, company *portfolio.Company) *evidence.Bundle {
	bundle := evidence.New(query)
	bundle.Company = company

	// Each goroutine writes only its own locals; results are merged into the
	// bundle after the barrier.
	var (
		passages []evidence.Passage
		kbErr    error
		siteText string
		siteErr  error
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		queries := knowledge.Reformulate(groupCtx, g.client, query)
		passages, kbErr = g.retriever.Retrieve(groupCtx, queries)
		return nil
	})

	siteURL := companySiteURL(company)
	if siteURL != "" {
		group.Go(func() error {
			siteText, siteErr = fetch.Page(groupCtx, siteURL, g.fetchOpts)
			return nil
		})
	}

	// Sources fail soft, so Wait can only surface context cancellation.
	_ = group.Wait()

	if kbErr != nil {
		log.Printf("[Gather] Knowledge base retrieval failed: %v", kbErr)
		bundle.AddNote("Knowledge base retrieval failed; internal passages are missing.")
	} else {
		bundle.Passages = passages
	}

	if siteURL != "" {
		if siteErr != nil {
			log.Printf("[Gather] Company website fetch failed: %v", siteErr)
			bundle.AddNote("Company website could not be fetched; website content is missing.")
		} else {
			bundle.SiteURL = siteURL
			bundle.SiteText = siteText
		}
	}

	log.Printf("[Gather] Gathering complete: %s", strings.Join(bundle.Categories(), ", "))
	return bundle
}

// companySiteURL picks the page to fetch for a company: the public website
// when known, else the fund's portfolio page for it.
func companySiteURL(company *portfolio.Company) string {
	if company == nil {
		return ""
	}
	if company.Website != "" {
		return company.Website
	}
	return company.PortfolioURL
}
