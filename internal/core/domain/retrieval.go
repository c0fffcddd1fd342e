package domain

// RetrievalOrigin records which index legs produced a fused result.
type RetrievalOrigin string

// Retrieval origins.
const (
	// OriginLexical marks a result seen only by the lexical index.
	OriginLexical RetrievalOrigin = "lexical"

	// OriginVector marks a result seen only by the vector index.
	OriginVector RetrievalOrigin = "vector"

	// OriginBoth marks a result returned by both indexes.
	OriginBoth RetrievalOrigin = "both"
)

// RankedSnippet is one fused retrieval result.
type RankedSnippet struct {
	// SnippetID identifies the snippet.
	SnippetID string

	// FusedScore is the weighted combination of normalised sub-scores,
	// in [0,1]. Missing sub-scores contribute zero.
	FusedScore float64

	// LexicalRank is the 1-based rank in the lexical leg, 0 if absent.
	LexicalRank int

	// VectorRank is the 1-based rank in the vector leg, 0 if absent.
	VectorRank int

	// Origin records which legs saw this snippet.
	Origin RetrievalOrigin
}

// RetrievalResult is the ordered fused output of the hybrid retriever.
// Ordering invariant: fused score descending, ties broken by snippet id
// ascending for determinism.
type RetrievalResult struct {
	// Query is the text that was searched.
	Query string

	// Ranked is the fused, deduplicated, truncated result list.
	Ranked []RankedSnippet

	// Partial is true when a leg failed or timed out and the result
	// reflects only the surviving leg.
	Partial bool
}

// Empty reports whether retrieval produced no candidates.
func (r RetrievalResult) Empty() bool {
	return len(r.Ranked) == 0
}

// IDs returns the ranked snippet ids in order.
func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r.Ranked))
	for i, rs := range r.Ranked {
		ids[i] = rs.SnippetID
	}
	return ids
}

// RetrievedSnippet pairs a ranked result with its hydrated snippet.
type RetrievedSnippet struct {
	// Ranked is the fusion record.
	Ranked RankedSnippet

	// Snippet is the stored entity.
	Snippet Snippet
}
