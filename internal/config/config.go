// Package config provides configuration loading and validation for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for tunable settings.
const (
	DefaultResearchRounds = 2
	DefaultRunBudget      = 540 * time.Second
	DefaultJobRetention   = 7 * 24 * time.Hour
	DefaultPort           = 8080
)

// Config holds runtime configuration. All values come from environment
// variables; a .env file is loaded by main before Load runs.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port int

	// GeminiAPIKey authenticates calls to the model gateway. Required.
	GeminiAPIKey string

	// DatabaseURL is the PostgreSQL connection string for the job store.
	// When empty, jobs are kept in an in-process store instead.
	DatabaseURL string

	// KnowledgeDatabaseURL is the PostgreSQL connection string for the
	// knowledge base passages. When empty, knowledge retrieval is a no-op.
	KnowledgeDatabaseURL string

	// SearchAPIKey and SearchCX configure Google Custom Search for deep
	// research rounds. When either is empty, web search is unavailable and
	// deep research degrades to the gathered evidence.
	SearchAPIKey string
	SearchCX     string

	// ResearchRounds caps the number of deep research rounds per job.
	ResearchRounds int

	// RunBudget is the wall-clock budget for a single orchestrator run.
	// It must sit below the hosting environment's hard execution ceiling.
	RunBudget time.Duration

	// JobRetention is how long job records are kept before expiry.
	JobRetention time.Duration

	// UseBrowser enables headless-browser rendering for company sites that
	// serve script-rendered pages.
	UseBrowser bool
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 DefaultPort,
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		KnowledgeDatabaseURL: os.Getenv("KB_DATABASE_URL"),
		SearchAPIKey:         os.Getenv("GOOGLE_SEARCH_API_KEY"),
		SearchCX:             os.Getenv("GOOGLE_SEARCH_CX"),
		ResearchRounds:       DefaultResearchRounds,
		RunBudget:            DefaultRunBudget,
		JobRetention:         DefaultJobRetention,
		UseBrowser:           os.Getenv("USE_BROWSER") == "true",
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT value %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("RESEARCH_ROUNDS"); v != "" {
		rounds, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RESEARCH_ROUNDS value %q: %w", v, err)
		}
		cfg.ResearchRounds = rounds
	}

	if v := os.Getenv("RUN_BUDGET_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_BUDGET_SECONDS value %q: %w", v, err)
		}
		cfg.RunBudget = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("JOB_RETENTION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JOB_RETENTION_HOURS value %q: %w", v, err)
		}
		cfg.JobRetention = time.Duration(hours) * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.ResearchRounds < 0 {
		return fmt.Errorf("config error: research rounds must be non-negative")
	}
	if c.ResearchRounds == 0 {
		c.ResearchRounds = DefaultResearchRounds
	}
	if c.RunBudget <= 0 {
		return fmt.Errorf("config error: run budget must be positive")
	}
	if c.JobRetention <= 0 {
		return fmt.Errorf("config error: job retention must be positive")
	}
	return nil
}

// SearchConfigured reports whether web search credentials are present.
func (c *Config) SearchConfigured() bool {
	return c.SearchAPIKey != "" && c.SearchCX != ""
}
