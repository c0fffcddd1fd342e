package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one stored vector with its cached L2 norm.
type entry struct {
	vec  []float32
	norm float64
}

// Index is an in-memory brute-force cosine similarity index.
//
// Vector dimensionality is fixed by the first vector admitted (or the
// configured dimension) for the lifetime of the instance; Reset clears
// it. Replacement is atomic per snippet id under the write lock.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
	dims    int
}

// New creates an empty vector index that adopts the dimensionality of
// the first vector added.
func New() *Index {
	return &Index{entries: make(map[string]entry)}
}

// NewWithDimensions creates an empty vector index with a fixed
// dimensionality.
func NewWithDimensions(dims int) *Index {
	return &Index{entries: make(map[string]entry), dims: dims}
}

// Add inserts or replaces the vector for the given snippet id.
func (i *Index) Add(_ context.Context, snippetID string, embedding []float32) error {
	if snippetID == "" {
		return fmt.Errorf("%w: empty snippet id", domain.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %q", domain.ErrInvalidInput, snippetID)
	}

	// Copy before publishing; callers may reuse the slice.
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dims == 0 {
		i.dims = len(vec)
	} else if len(vec) != i.dims {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vec), i.dims)
	}
	i.entries[snippetID] = entry{vec: vec, norm: l2norm(vec)}
	return nil
}

// Remove deletes a vector from the index. Absent id is a no-op.
func (i *Index) Remove(_ context.Context, snippetID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.entries, snippetID)
	return nil
}

// Search returns the top-k ids by descending cosine similarity, ties
// broken by id. Empty index or a zero query vector yields an empty
// result.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.entries) == 0 {
		return nil, nil
	}
	if len(query) != i.dims {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), i.dims)
	}
	qnorm := l2norm(query)
	if qnorm == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(i.entries))
	for id, e := range i.entries {
		if e.norm == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			SnippetID:  id,
			Similarity: dot(query, e.vec) / (qnorm * e.norm),
		})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].SnippetID < hits[b].SnippetID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Dimensions returns the fixed vector size, or 0 before the first add.
func (i *Index) Dimensions() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.dims
}

// Reset drops every vector and the dimensionality, so a new embedding
// model can repopulate the index.
func (i *Index) Reset(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = make(map[string]entry)
	i.dims = 0
	return nil
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}

// dot computes the float64 dot product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for n := range a {
		sum += float64(a[n]) * float64(b[n])
	}
	return sum
}

// l2norm computes the Euclidean norm of a vector.
func l2norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
