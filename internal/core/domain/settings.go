package domain

const unknownDescription = "Unknown"

// AIProvider identifies a provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in deterministic hashed embedder.
	// It needs no network and keeps the system fully offline.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API (generation only).
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// SupportsGeneration returns true if the provider can generate text.
func (p AIProvider) SupportsGeneration() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (deterministic hashed embeddings, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud, generation only)"
	default:
		return unknownDescription
	}
}

// RetrievalSettings holds hybrid retriever configuration.
type RetrievalSettings struct {
	// LexicalWeight scales the normalised lexical score in fusion.
	LexicalWeight float64

	// VectorWeight scales the normalised vector score in fusion.
	VectorWeight float64

	// MinScore drops fused results below this threshold.
	MinScore float64

	// Overfetch multiplies the final k for each index leg.
	Overfetch int

	// TimeoutMS bounds the combined sub-searches; on expiry whatever
	// legs completed are fused as partial results.
	TimeoutMS int
}

// Normalised returns a copy with fusion weights scaled to sum to one,
// so fused scores stay in [0,1]. Non-positive pairs fall back to the
// defaults.
func (r RetrievalSettings) Normalised() RetrievalSettings {
	sum := r.LexicalWeight + r.VectorWeight
	if sum <= 0 {
		d := DefaultAppSettings().Retrieval
		r.LexicalWeight = d.LexicalWeight
		r.VectorWeight = d.VectorWeight
		sum = r.LexicalWeight + r.VectorWeight
	}
	r.LexicalWeight /= sum
	r.VectorWeight /= sum
	return r
}

// AnswerSettings holds answering pipeline configuration.
type AnswerSettings struct {
	// ContextBudget is the hard character ceiling for assembled evidence.
	ContextBudget int

	// GenerationTimeoutMS bounds the generation call; on expiry the
	// answer falls back to extractive mode.
	GenerationTimeoutMS int

	// MaxTurns bounds retained conversation turns (FIFO eviction).
	MaxTurns int

	// TopK is the number of fused results requested per query.
	TopK int
}

// ScopeSettings holds scope classifier configuration.
type ScopeSettings struct {
	// ExtraKeywords extend the built-in domain keyword set.
	ExtraKeywords []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size; 0 means use the model default.
	Dimensions int

	// RatePerSec throttles outbound embedding calls; 0 disables.
	RatePerSec float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the generation service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RatePerSec throttles outbound generation calls; 0 disables.
	RatePerSec float64
}

// IsConfigured returns true if the generation provider is set up.
// The local provider has no generation capability.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider == AIProviderLocal || !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreBackend identifies a snippet store implementation.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendMemory keeps snippets in process memory.
	StoreBackendMemory StoreBackend = "memory"

	// StoreBackendSQLite persists snippets to a local database.
	StoreBackendSQLite StoreBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendMemory, StoreBackendSQLite:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// StoreSettings holds snippet store configuration.
type StoreSettings struct {
	// Backend selects the store implementation.
	Backend StoreBackend

	// Path is the database file location (sqlite only).
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Retrieval holds hybrid retriever settings.
	Retrieval RetrievalSettings

	// Answer holds answering pipeline settings.
	Answer AnswerSettings

	// Scope holds scope classifier settings.
	Scope ScopeSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds generation provider settings.
	LLM LLMSettings

	// Store holds snippet store settings.
	Store StoreSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The local embedding provider keeps everything offline; generation is
// left unconfigured so answers are extractive until an LLM is set up.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			LexicalWeight: 0.4,
			VectorWeight:  0.6,
			MinScore:      0.05,
			Overfetch:     3,
			TimeoutMS:     3000,
		},
		Answer: AnswerSettings{
			ContextBudget:       2000,
			GenerationTimeoutMS: 30000,
			MaxTurns:            20,
			TopK:                5,
		},
		Scope: ScopeSettings{},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderLocal,
			Model:      "hashed-v1",
			Dimensions: 384,
		},
		// LLM is left unconfigured - answers fall back to extractive mode
		LLM: LLMSettings{},
		Store: StoreSettings{
			Backend: StoreBackendMemory,
		},
	}
}

// AllEmbeddingProviders returns every provider usable for embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns every provider usable for generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashed-v1",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Built-in
		"hashed-v1": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
