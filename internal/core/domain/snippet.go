package domain

import (
	"fmt"
	"strings"
	"time"
)

// Snippet is a unit of stored knowledge text with category metadata.
// It is the canonical representation the indexes and the answering
// pipeline operate on; mutation happens only through the snippet store.
type Snippet struct {
	// ID is the stable identifier for the snippet.
	ID string

	// Text is the normalised plain text content.
	// Immutable once indexed except through a re-index of this id.
	Text string

	// Category is the role/department tag (e.g. "Executive", "Engineering").
	Category string

	// SourceRef is an opaque pointer back to the originating profile or page.
	SourceRef string

	// UpdatedAt is a logical version counter, increased on every mutation.
	UpdatedAt int64

	// Embedding is the cached vector representation, when one has been
	// computed. Empty for snippets that have not been embedded yet.
	Embedding []float32

	// EmbeddingModel names the model that produced Embedding.
	// A cached vector is only reused when the active model matches.
	EmbeddingModel string
}

// Validate checks the snippet invariants.
func (s Snippet) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSnippet)
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: empty text for id %q", ErrInvalidSnippet, s.ID)
	}
	return nil
}

// IndexableText returns the text the indexes should see: category and
// body combined, so category tags are searchable alongside content.
func (s Snippet) IndexableText() string {
	if s.Category == "" {
		return s.Text
	}
	return s.Category + " " + s.Text
}

// SnippetEventType identifies a store mutation kind.
type SnippetEventType string

// Store mutation kinds delivered to subscribers.
const (
	// SnippetCreated signals a snippet was inserted.
	SnippetCreated SnippetEventType = "created"

	// SnippetUpdated signals an existing snippet's content changed.
	SnippetUpdated SnippetEventType = "updated"

	// SnippetDeleted signals a snippet was removed.
	SnippetDeleted SnippetEventType = "deleted"
)

// SnippetEvent describes one store mutation.
// For deleted events only SnippetID is populated.
type SnippetEvent struct {
	// Type is the mutation kind.
	Type SnippetEventType

	// Snippet carries the full entity for created/updated events.
	Snippet Snippet

	// SnippetID identifies the target; always set.
	SnippetID string
}

// IndexStats summarises the state of both retrieval indexes.
type IndexStats struct {
	// LexicalCount is the number of snippets in the lexical index.
	LexicalCount int

	// VectorCount is the number of snippets in the vector index.
	VectorCount int

	// StoreCount is the number of snippets in the store.
	StoreCount int

	// Degraded is the number of snippets indexed lexically but missing
	// a vector (embedding failed or unavailable).
	Degraded int

	// LastSyncTime is when the indexes last applied a mutation.
	// Zero when nothing has been indexed yet.
	LastSyncTime time.Time
}
