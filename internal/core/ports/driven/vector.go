// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// Implementations store one fixed-dimension vector per live snippet id
// and must publish replacements atomically per id.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given snippet id.
	// Returns domain.ErrDimensionMismatch when the vector length does
	// not match the index dimensionality.
	Add(ctx context.Context, snippetID string, embedding []float32) error

	// Remove deletes a vector from the index. Absent id is a no-op.
	Remove(ctx context.Context, snippetID string) error

	// Search finds the k nearest neighbours to the query vector by
	// cosine similarity, ties broken by id. Empty index yields an empty
	// result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of stored vectors.
	Count() int

	// Dimensions returns the fixed vector size, or 0 before the first add.
	Dimensions() int

	// Reset drops every vector, leaving an empty index able to adopt a
	// new dimensionality.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// SnippetID is the matched snippet.
	SnippetID string

	// Similarity is the cosine similarity score in [-1,1].
	Similarity float64
}
