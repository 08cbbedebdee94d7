// Package knowledge provides retrieval against the internal knowledge base:
// query reformulation, vector search over stored passages, and a no-op
// implementation for deployments without a knowledge base.
package knowledge

import (
	"context"

	"github.com/jonathan/portfolio-research/internal/evidence"
)

// Retriever returns ranked passages for a set of search queries.
type Retriever interface {
	// Retrieve runs every query against the knowledge base and returns
	// merged, de-duplicated passages in rank order. An empty result is not
	// an error.
	Retrieve(ctx context.Context, queries []string) ([]evidence.Passage, error)
}

// NoopRetriever is used when no knowledge base is configured. It always
// returns an empty result so gathering proceeds on the remaining sources.
type NoopRetriever struct{}

// NewNoop creates a retriever that returns no passages.
func NewNoop() *NoopRetriever { return &NoopRetriever{} }

// Retrieve returns an empty passage list.
func (*NoopRetriever) Retrieve(context.Context, []string) ([]evidence.Passage, error) {
	return nil, nil
}
