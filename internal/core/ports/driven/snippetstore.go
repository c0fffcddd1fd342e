// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

// SnippetStore persists knowledge snippets and publishes mutation events.
// The answering core only reads and subscribes; writes come from
// ingestion surfaces (loader, admin tooling) and always flow through the
// store so the indexing pipeline observes every change.
type SnippetStore interface {
	// Get retrieves a snippet by id.
	// Returns domain.ErrNotFound when the id does not exist.
	Get(ctx context.Context, id string) (domain.Snippet, error)

	// List returns snippets, optionally filtered by category.
	// An empty category returns everything, ordered by id.
	List(ctx context.Context, category string) ([]domain.Snippet, error)

	// Count returns the number of stored snippets.
	Count(ctx context.Context) (int, error)

	// Categories returns the distinct category tags in the store.
	Categories(ctx context.Context) ([]string, error)

	// Upsert inserts or replaces a snippet and bumps its version counter.
	// Subscribers receive a created or updated event. Any embedding on
	// the given snippet is discarded: the cache is owned by
	// SaveEmbedding, so content writes always invalidate it.
	Upsert(ctx context.Context, snippet domain.Snippet) error

	// Delete removes a snippet. Deleting an absent id is a no-op and
	// publishes no event.
	Delete(ctx context.Context, id string) error

	// SaveEmbedding caches the computed vector for a snippet so a later
	// reindex with the same model can skip re-embedding. A cache write,
	// not a mutation: no event, no version bump.
	SaveEmbedding(ctx context.Context, id string, model string, embedding []float32) error

	// Subscribe registers for mutation events. The returned cancel
	// function must be called to release the subscription; after cancel
	// the channel is closed. Slow subscribers drop events once the
	// buffer is full rather than blocking writers.
	Subscribe(buffer int) (<-chan domain.SnippetEvent, func())

	// Close releases resources.
	Close() error
}
