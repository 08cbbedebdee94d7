package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/portfolio-research/internal/config"
	"github.com/jonathan/portfolio-research/internal/fetch"
	"github.com/jonathan/portfolio-research/internal/gather"
	"github.com/jonathan/portfolio-research/internal/identify"
	"github.com/jonathan/portfolio-research/internal/jobs"
	"github.com/jonathan/portfolio-research/internal/knowledge"
	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/orchestrator"
	"github.com/jonathan/portfolio-research/internal/portfolio"
	"github.com/jonathan/portfolio-research/internal/research"
	"github.com/jonathan/portfolio-research/internal/synthesis"
	"github.com/jonathan/portfolio-research/internal/websearch"
)

// stack holds the assembled service components and their cleanup hooks.
type stack struct {
	store    jobs.Store
	orch     *orchestrator.Orchestrator
	cleanups []func()
}

// close runs cleanup hooks in reverse order.
func (st *stack) close() {
	for i := len(st.cleanups) - 1; i >= 0; i-- {
		st.cleanups[i]()
	}
}

// buildStack wires the research pipeline from configuration. Optional
// backends (Postgres job store, knowledge base, web search) fall back to
// degraded defaults when unconfigured.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	st := &stack{}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	st.cleanups = append(st.cleanups, func() { _ = client.Close() })

	catalog, err := portfolio.Load()
	if err != nil {
		st.close()
		return nil, fmt.Errorf("failed to load portfolio catalog: %w", err)
	}

	if cfg.DatabaseURL != "" {
		pgStore, err := jobs.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("failed to create job store: %w", err)
		}
		st.cleanups = append(st.cleanups, pgStore.Close)
		st.store = pgStore
	} else {
		log.Println("DATABASE_URL not set, using in-process job store")
		st.store = jobs.NewMemoryStore()
	}

	var retriever knowledge.Retriever = knowledge.NewNoop()
	if cfg.KnowledgeDatabaseURL != "" {
		kb, err := knowledge.NewPostgresRetriever(ctx, cfg.KnowledgeDatabaseURL, client)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("failed to create knowledge retriever: %w", err)
		}
		st.cleanups = append(st.cleanups, kb.Close)
		retriever = kb
	} else {
		log.Println("KB_DATABASE_URL not set, knowledge retrieval disabled")
	}

	var search websearch.Client
	if cfg.SearchConfigured() {
		search, err = websearch.NewGoogleClient(ctx, cfg.SearchAPIKey, cfg.SearchCX)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("failed to create search client: %w", err)
		}
	} else {
		log.Println("Search credentials not set, deep research disabled")
	}

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.UseBrowser = cfg.UseBrowser

	identifier := identify.New(client, catalog)
	gatherer := gather.New(client, retriever, fetchOpts)
	looper := research.New(client, search, cfg.ResearchRounds)
	synth := synthesis.New(client)

	st.orch = orchestrator.New(st.store, identifier, gatherer, looper, synth, cfg.RunBudget)
	return st, nil
}
