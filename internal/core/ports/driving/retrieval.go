package driving

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// RetrievalService exposes raw hybrid retrieval to callers that want
// ranked evidence without answer synthesis (CLI search, MCP search tool).
type RetrievalService interface {
	// Retrieve runs both index legs and returns the fused top-k.
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)

	// Hydrate resolves ranked ids to their stored snippets, preserving
	// order. Missing snippets are skipped rather than failing the batch.
	Hydrate(ctx context.Context, result domain.RetrievalResult) ([]domain.RetrievedSnippet, error)
}
