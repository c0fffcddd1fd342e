// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SnippetStore: snippet persistence and mutation events
//   - LexicalIndex: TF-IDF keyword retrieval. Always required.
//   - VectorIndex: cosine-similarity semantic retrieval. Always required;
//     it simply stays empty when no embedding service is configured.
//   - EmbeddingService: generates vector embeddings
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: text generation. Without it, answers are extractive
//     (raw snippet text with citations) instead of synthesised.
//   - QueryLog: query analytics. Without it, nothing is recorded.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
