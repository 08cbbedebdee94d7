// Package websearch provides open-web search for deep research rounds.
package websearch

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ErrUnavailable indicates the search backend failed or is not configured.
var ErrUnavailable = errors.New("search unavailable")

// resultsPerQuery limits how many hits each query contributes.
const resultsPerQuery = 3

// Result is a single ranked search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client searches the open web for a query.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// GoogleClient implements Client using the Google Custom Search API.
type GoogleClient struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleClient creates a search client for the given API key and engine id.
func NewGoogleClient(ctx context.Context, apiKey, cx string) (*GoogleClient, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("%w: missing API key or engine id", ErrUnavailable)
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleClient{
		svc: svc,
		cx:  cx,
	}, nil
}

// Search returns the top ranked hits for a query.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := c.svc.Cse.List().Context(ctx).Cx(c.cx).Q(query).Num(resultsPerQuery).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
