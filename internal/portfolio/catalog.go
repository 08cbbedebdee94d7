// Package portfolio provides the static catalog of portfolio companies.
// The catalog is reference data: embedded at compile time, parsed once per
// process, and read-only for the lifetime of every job.
package portfolio

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed portfolio.json
var catalogFiles embed.FS

// Company is a single portfolio company record.
type Company struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Aliases      []string `json:"aliases,omitempty"`
	Sector       string   `json:"sector"`
	Fund         string   `json:"fund"`
	Country      string   `json:"country"`
	EntryYear    string   `json:"entry_year"`
	PortfolioURL string   `json:"portfolio_url"`
	Website      string   `json:"website,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Catalog holds the full set of portfolio companies with an id index.
type Catalog struct {
	companies []Company
	byID      map[string]*Company
}

var (
	defaultCatalog *Catalog
	defaultErr     error
	loadOnce       sync.Once
)

// Load returns the embedded catalog, parsing it on first use.
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		data, err := catalogFiles.ReadFile("portfolio.json")
		if err != nil {
			defaultErr = fmt.Errorf("failed to read portfolio data: %w", err)
			return
		}
		defaultCatalog, defaultErr = Parse(data)
	})
	return defaultCatalog, defaultErr
}

// Parse builds a catalog from raw JSON. Exposed for tests and for loading
// alternative catalogs.
func Parse(data []byte) (*Catalog, error) {
	var companies []Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio data: %w", err)
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("portfolio data contains no companies")
	}

	c := &Catalog{
		companies: companies,
		byID:      make(map[string]*Company, len(companies)),
	}
	for i := range c.companies {
		company := &c.companies[i]
		if company.ID == "" {
			return nil, fmt.Errorf("portfolio company %q has no id", company.Name)
		}
		if _, exists := c.byID[company.ID]; exists {
			return nil, fmt.Errorf("duplicate portfolio company id %q", company.ID)
		}
		c.byID[company.ID] = company
	}
	return c, nil
}

// Len returns the number of companies in the catalog.
func (c *Catalog) Len() int {
	return len(c.companies)
}

// Companies returns all companies in catalog order.
func (c *Catalog) Companies() []Company {
	return c.companies
}

// ByID looks up a company by its id.
func (c *Catalog) ByID(id string) (*Company, bool) {
	company, ok := c.byID[strings.TrimSpace(id)]
	return company, ok
}

// PromptList renders the catalog for inclusion in an identification prompt:
// one line per company with id, name, aliases and sector.
func (c *Catalog) PromptList() string {
	var sb strings.Builder
	for _, company := range c.companies {
		sb.WriteString(fmt.Sprintf("- id: %s | name: %s", company.ID, company.Name))
		if len(company.Aliases) > 0 {
			sb.WriteString(" | aliases: " + strings.Join(company.Aliases, ", "))
		}
		if company.Sector != "" {
			sb.WriteString(" | sector: " + company.Sector)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Metadata renders a company's static catalog record as markdown for use as
// evidence. It cannot fail: missing fields are simply omitted.
func (c *Company) Metadata() string {
	var sb strings.Builder
	sb.WriteString("### " + c.Name + "\n")
	if c.Sector != "" {
		sb.WriteString("- Sector: " + c.Sector + "\n")
	}
	if c.Fund != "" {
		sb.WriteString("- Fund: " + c.Fund + "\n")
	}
	if c.Country != "" {
		sb.WriteString("- Market: " + c.Country + "\n")
	}
	if c.EntryYear != "" {
		sb.WriteString("- Entry year: " + c.EntryYear + "\n")
	}
	if c.Website != "" {
		sb.WriteString("- Website: " + c.Website + "\n")
	}
	if c.Description != "" {
		sb.WriteString("\n" + c.Description + "\n")
	}
	return sb.String()
}
