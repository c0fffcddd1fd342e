package services

import (
	"fmt"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLexicalWeight    = "search.lexical_weight"
	keyVectorWeight     = "search.vector_weight"
	keyMinScore         = "search.min_score"
	keyOverfetch        = "search.overfetch"
	keyRetrievalTimeout = "search.retrieval_timeout_ms"

	keyContextBudget     = "answer.context_budget"
	keyGenerationTimeout = "answer.generation_timeout_ms"
	keyMaxTurns          = "answer.max_turns"
	keyTopK              = "answer.top_k"

	keyExtraKeywords = "scope.extra_keywords"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"

	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"

	keyEmbedRate    = "ai.embed_rate"
	keyGenerateRate = "ai.generate_rate"

	keyStoreBackend = "store.backend"
	keyStorePath    = "store.path"
)

// defaultOllamaURL is assumed when an Ollama provider is selected
// without an explicit endpoint.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			LexicalWeight: s.getFloat(keyLexicalWeight, defaults.Retrieval.LexicalWeight),
			VectorWeight:  s.getFloat(keyVectorWeight, defaults.Retrieval.VectorWeight),
			MinScore:      s.getFloat(keyMinScore, defaults.Retrieval.MinScore),
			Overfetch:     s.getInt(keyOverfetch, defaults.Retrieval.Overfetch),
			TimeoutMS:     s.getInt(keyRetrievalTimeout, defaults.Retrieval.TimeoutMS),
		},
		Answer: domain.AnswerSettings{
			ContextBudget:       s.getInt(keyContextBudget, defaults.Answer.ContextBudget),
			GenerationTimeoutMS: s.getInt(keyGenerationTimeout, defaults.Answer.GenerationTimeoutMS),
			MaxTurns:            s.getInt(keyMaxTurns, defaults.Answer.MaxTurns),
			TopK:                s.getInt(keyTopK, defaults.Answer.TopK),
		},
		Scope: domain.ScopeSettings{
			ExtraKeywords: s.configStore.GetStringSlice(keyExtraKeywords),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.Embedding.Dimensions),
			RatePerSec: s.configStore.GetFloat(keyEmbedRate),
		},
		LLM: domain.LLMSettings{
			Provider:   s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:      s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:    s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyLLMAPIKey),
			RatePerSec: s.configStore.GetFloat(keyGenerateRate),
		},
		Store: domain.StoreSettings{
			Backend: s.getBackend(keyStoreBackend, defaults.Store.Backend),
			Path:    s.configStore.GetString(keyStorePath),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save retrieval settings
	if err := s.configStore.Set(keyLexicalWeight, settings.Retrieval.LexicalWeight); err != nil {
		return fmt.Errorf("save lexical weight: %w", err)
	}
	if err := s.configStore.Set(keyVectorWeight, settings.Retrieval.VectorWeight); err != nil {
		return fmt.Errorf("save vector weight: %w", err)
	}
	if err := s.configStore.Set(keyMinScore, settings.Retrieval.MinScore); err != nil {
		return fmt.Errorf("save min score: %w", err)
	}
	if err := s.configStore.Set(keyOverfetch, settings.Retrieval.Overfetch); err != nil {
		return fmt.Errorf("save overfetch: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalTimeout, settings.Retrieval.TimeoutMS); err != nil {
		return fmt.Errorf("save retrieval timeout: %w", err)
	}

	// Save answer settings
	if err := s.configStore.Set(keyContextBudget, settings.Answer.ContextBudget); err != nil {
		return fmt.Errorf("save context budget: %w", err)
	}
	if err := s.configStore.Set(keyGenerationTimeout, settings.Answer.GenerationTimeoutMS); err != nil {
		return fmt.Errorf("save generation timeout: %w", err)
	}
	if err := s.configStore.Set(keyMaxTurns, settings.Answer.MaxTurns); err != nil {
		return fmt.Errorf("save max turns: %w", err)
	}
	if err := s.configStore.Set(keyTopK, settings.Answer.TopK); err != nil {
		return fmt.Errorf("save top k: %w", err)
	}

	// Save scope settings
	if len(settings.Scope.ExtraKeywords) > 0 {
		if err := s.configStore.Set(keyExtraKeywords, settings.Scope.ExtraKeywords); err != nil {
			return fmt.Errorf("save extra keywords: %w", err)
		}
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyEmbedDims, settings.Embedding.Dimensions); err != nil {
		return fmt.Errorf("save embedding dimensions: %w", err)
	}
	if settings.Embedding.RatePerSec > 0 {
		if err := s.configStore.Set(keyEmbedRate, settings.Embedding.RatePerSec); err != nil {
			return fmt.Errorf("save embed rate: %w", err)
		}
	}

	// Save LLM settings
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.LLM.RatePerSec > 0 {
		if err := s.configStore.Set(keyGenerateRate, settings.LLM.RatePerSec); err != nil {
			return fmt.Errorf("save generate rate: %w", err)
		}
	}

	// Save store settings
	if err := s.configStore.Set(keyStoreBackend, settings.Store.Backend.String()); err != nil {
		return fmt.Errorf("save store backend: %w", err)
	}
	if err := s.configStore.Set(keyStorePath, settings.Store.Path); err != nil {
		return fmt.Errorf("save store path: %w", err)
	}

	return nil
}

// SetFusionWeights updates the retrieval fusion weights.
func (s *SettingsService) SetFusionWeights(lexical, vector float64) error {
	if lexical < 0 || vector < 0 {
		return fmt.Errorf("fusion weights must be non-negative: lexical=%.2f, vector=%.2f", lexical, vector)
	}
	if lexical+vector <= 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Retrieval.LexicalWeight = lexical
	settings.Retrieval.VectorWeight = vector

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Ollama needs an endpoint; everything else runs in-process or
	// against a fixed cloud URL.
	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	dims := domain.EmbeddingDimensions()
	if d, ok := dims[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if !provider.SupportsGeneration() {
		return fmt.Errorf("provider %s does not support generation", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		defaults := domain.DefaultLLMModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.LLM.Model = defaultModel
		}
	}

	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	// Set API key
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are coherent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	r := settings.Retrieval
	if r.LexicalWeight < 0 || r.VectorWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative: lexical=%.2f, vector=%.2f",
			r.LexicalWeight, r.VectorWeight)
	}
	if r.LexicalWeight+r.VectorWeight <= 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if r.MinScore < 0 || r.MinScore > 1 {
		return fmt.Errorf("min score must be within [0,1], got %.2f", r.MinScore)
	}
	if r.Overfetch < 1 {
		return fmt.Errorf("overfetch must be at least 1, got %d", r.Overfetch)
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not fully configured", settings.Embedding.Provider)
	}

	// Generation is optional: unset means extractive answers. A provider
	// that is set but unusable is a misconfiguration.
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not fully configured", settings.LLM.Provider)
	}

	if !settings.Store.Backend.IsValid() {
		return fmt.Errorf("invalid store backend: %s", settings.Store.Backend)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat is existence-based: an explicit zero is a legitimate value
// for weights and the score floor.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(key string, defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	backend := domain.StoreBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
