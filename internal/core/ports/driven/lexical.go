// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// LexicalIndex provides ranked keyword retrieval over snippet text.
// Implementations maintain an inverted index with TF-IDF style scoring.
type LexicalIndex interface {
	// Index inserts or updates postings for one snippet, removing any
	// prior postings for that id first. Idempotent for unchanged text.
	Index(ctx context.Context, snippet domain.Snippet) error

	// Remove deletes all postings for an id. Absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Search tokenises the query with the same normalisation used at
	// index time and returns the top-k snippet ids by descending score,
	// ties broken by id. Empty query or empty index yields an empty
	// result, not an error.
	Search(ctx context.Context, query string, k int) ([]LexicalHit, error)

	// Count returns the number of indexed snippets.
	Count() int

	// Reset drops every posting, leaving an empty index.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LexicalHit represents a keyword search result.
type LexicalHit struct {
	// SnippetID is the matched snippet.
	SnippetID string

	// Score is the raw TF-IDF relevance score (unbounded above).
	Score float64
}
