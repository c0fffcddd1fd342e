package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSnippet indicates a snippet failed validation.
	ErrInvalidSnippet = errors.New("invalid snippet")

	// ErrSessionNotFound indicates an unknown conversation id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrLLMUnavailable indicates the LLM service is not configured or failed.
	// Answers degrade to extractive mode without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Vector/semantic retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates neither retrieval index could be queried.
	// A single failed index degrades to the other and does not raise this.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrDimensionMismatch indicates a vector's length does not match the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreUnavailable indicates the snippet store cannot be reached.
	// This is the only failure fatal to a query.
	ErrStoreUnavailable = errors.New("snippet store unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrBudgetExceeded indicates input too large for the context budget.
	ErrBudgetExceeded = errors.New("context budget exceeded")
)
