// Package domain defines the core business entities for Ansera.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Snippet: a unit of stored knowledge text with category metadata
//   - ScopeDecision: whether a query falls inside the covered domain
//   - RetrievalResult: ranked output fused from lexical and vector retrieval
//   - ConversationTurn: one question/answer exchange within a session
//   - Answer: the response returned to callers, with citations
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
