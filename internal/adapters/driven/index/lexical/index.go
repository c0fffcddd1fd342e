package lexical

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

// posting records one snippet's occurrences of a term.
type posting struct {
	tf        int
	positions []int
}

// Index is an in-memory inverted index with TF-IDF scoring.
//
// Mutation is replace-then-publish per snippet id: the new posting set
// is built off-lock, then swapped in under the write lock, so readers
// never observe a half-updated id. Scoring uses
// score(d) = sum over query terms q of tf(q,d) * ln(1 + N/(1+df(q))).
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]posting // term -> snippet id -> posting
	terms    map[string][]string           // snippet id -> distinct indexed terms
}

// New creates an empty lexical index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]posting),
		terms:    make(map[string][]string),
	}
}

// Index inserts or updates postings for one snippet, removing any prior
// postings for that id first.
func (i *Index) Index(_ context.Context, snippet domain.Snippet) error {
	if err := snippet.Validate(); err != nil {
		return err
	}

	// Build the replacement posting set before taking the write lock.
	tokens := domain.Tokenize(snippet.IndexableText())
	fresh := make(map[string]posting, len(tokens))
	for pos, tok := range tokens {
		p := fresh[tok]
		p.tf++
		p.positions = append(p.positions, pos)
		fresh[tok] = p
	}
	distinct := make([]string, 0, len(fresh))
	for tok := range fresh {
		distinct = append(distinct, tok)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.removeLocked(snippet.ID)
	for tok, p := range fresh {
		ids, ok := i.postings[tok]
		if !ok {
			ids = make(map[string]posting)
			i.postings[tok] = ids
		}
		ids[snippet.ID] = p
	}
	i.terms[snippet.ID] = distinct
	return nil
}

// Remove deletes all postings for an id. Absent id is a no-op.
func (i *Index) Remove(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.removeLocked(id)
	return nil
}

// removeLocked drops every posting for id. Caller holds the write lock.
func (i *Index) removeLocked(id string) {
	tokens, ok := i.terms[id]
	if !ok {
		return
	}
	for _, tok := range tokens {
		ids := i.postings[tok]
		delete(ids, id)
		if len(ids) == 0 {
			delete(i.postings, tok)
		}
	}
	delete(i.terms, id)
}

// Search returns the top-k snippet ids by descending TF-IDF score,
// ties broken by id. Empty query or empty index yields an empty result.
func (i *Index) Search(_ context.Context, query string, k int) ([]driven.LexicalHit, error) {
	queryTerms := domain.UniqueTokens(query)
	if len(queryTerms) == 0 || k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	live := len(i.terms)
	if live == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, term := range queryTerms {
		ids, ok := i.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + float64(live)/float64(1+len(ids)))
		for id, p := range ids {
			scores[id] += float64(p.tf) * idf
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	hits := make([]driven.LexicalHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, driven.LexicalHit{SnippetID: id, Score: score})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].SnippetID < hits[b].SnippetID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed snippets.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.terms)
}

// Reset drops every posting.
func (i *Index) Reset(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.postings = make(map[string]map[string]posting)
	i.terms = make(map[string][]string)
	return nil
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}
