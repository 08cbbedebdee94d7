// Package identify maps a user query onto a portfolio company from the
// static catalog. Identification never trusts the model blindly: the returned
// id must exist in the catalog or the query is treated as having no match.
package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/portfolio-research/internal/llm"
	"github.com/jonathan/portfolio-research/internal/portfolio"
	"github.com/jonathan/portfolio-research/internal/prompts"
	"github.com/jonathan/portfolio-research/internal/schemas"
)

// NoMatch is the sentinel id the model returns when the query does not
// concern a specific portfolio company.
const NoMatch = "none"

const identifySchema = `{
	"type": "object",
	"required": ["company_id"],
	"properties": {
		"company_id": {"type": "string", "minLength": 1}
	}
}`

type identifyResponse struct {
	CompanyID string `json:"company_id"`
}

// Identifier resolves queries against a catalog using a language model.
type Identifier struct {
	client  llm.Client
	catalog *portfolio.Catalog
}

// New creates an identifier over the given catalog.
func New(client llm.Client, catalog *portfolio.Catalog) *Identifier {
	return &Identifier{client: client, catalog: catalog}
}

// Company returns the portfolio company the query is about, or nil when no
// company can be determined. Model failures and out-of-catalog ids degrade to
// a nil match rather than an error; research proceeds without company context.
func (id *Identifier) Company(ctx context.Context, query string) *portfolio.Company {
	prompt, err := prompts.Render("identify.json", "identify_company", map[string]string{
		"Query":     query,
		"Companies": id.catalog.PromptList(),
	})
	if err != nil {
		log.Printf("[Identify] Failed to render identification prompt: %v", err)
		return nil
	}

	raw, err := id.client.GenerateJSON(ctx, prompt, llm.TierMedium)
	if err != nil {
		log.Printf("[Identify] Identification call failed, proceeding without company: %v", err)
		return nil
	}

	companyID, err := parseIdentification(raw)
	if err != nil {
		log.Printf("[Identify] Unusable identification response, proceeding without company: %v", err)
		return nil
	}
	if companyID == NoMatch {
		log.Printf("[Identify] No portfolio company identified")
		return nil
	}

	company, ok := id.catalog.ByID(companyID)
	if !ok {
		log.Printf("[Identify] Model returned unknown company id %q, proceeding without company", companyID)
		return nil
	}

	log.Printf("[Identify] Identified portfolio company: %s", company.Name)
	return company
}

// FallbackAnswer produces a short reply for queries where no portfolio
// company was identified and no external evidence was gathered.
func (id *Identifier) FallbackAnswer(ctx context.Context, query string) (string, error) {
	prompt, err := prompts.Render("identify.json", "no_company_fallback", map[string]string{
		"Query": query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render fallback prompt: %w", err)
	}

	answer, err := id.client.GenerateContent(ctx, prompt, llm.TierSmall)
	if err != nil {
		return "", fmt.Errorf("fallback answer generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func parseIdentification(raw string) (string, error) {
	if err := schemas.ValidateJSONString(identifySchema, raw); err != nil {
		return "", err
	}
	var resp identifyResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", fmt.Errorf("failed to parse identification response: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(resp.CompanyID)), nil
}
