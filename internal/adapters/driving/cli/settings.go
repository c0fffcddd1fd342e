package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure retrieval, answering, AI provider and storage
settings.

Use 'settings list' to see everything, 'settings set' for single values,
and the interactive 'settings embedding' / 'settings llm' commands to
configure AI providers.`,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current settings",
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting value",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting value",
	Long: `Changes a single setting and persists it to the config file.

Keys use dotted names, for example:

  ansera settings set search.min_score 0.1
  ansera settings set answer.top_k 8
  ansera settings set scope.extra_keywords "staff,headcount"
  ansera settings set store.backend sqlite

API keys cannot be set this way; use 'ansera settings embedding' or
'ansera settings llm' so they are read without echoing.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsWeightsCmd = &cobra.Command{
	Use:   "weights [lexical] [vector]",
	Short: "Set the retrieval fusion weights",
	Long: `Sets the lexical and vector fusion weights in one step. The pair is
validated together and normalised to sum to one at query time.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsWeights,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider for semantic retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure generation provider",
	Long:  `Configure the LLM provider used to synthesise grounded answers.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWeightsCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  search.lexical_weight: %s\n", formatFloat(settings.Retrieval.LexicalWeight))
	cmd.Printf("  search.vector_weight: %s\n", formatFloat(settings.Retrieval.VectorWeight))
	cmd.Printf("  search.min_score: %s\n", formatFloat(settings.Retrieval.MinScore))
	cmd.Printf("  search.overfetch: %d\n", settings.Retrieval.Overfetch)
	cmd.Printf("  search.retrieval_timeout_ms: %d\n", settings.Retrieval.TimeoutMS)
	cmd.Println()

	cmd.Println("[Answer]")
	cmd.Printf("  answer.context_budget: %d\n", settings.Answer.ContextBudget)
	cmd.Printf("  answer.generation_timeout_ms: %d\n", settings.Answer.GenerationTimeoutMS)
	cmd.Printf("  answer.max_turns: %d\n", settings.Answer.MaxTurns)
	cmd.Printf("  answer.top_k: %d\n", settings.Answer.TopK)
	cmd.Println()

	cmd.Println("[Scope]")
	if len(settings.Scope.ExtraKeywords) > 0 {
		cmd.Printf("  scope.extra_keywords: %s\n", strings.Join(settings.Scope.ExtraKeywords, ", "))
	} else {
		cmd.Printf("  scope.extra_keywords: (none)\n")
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status = "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured (answers stay extractive)"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  store.backend: %s\n", settings.Store.Backend)
	if settings.Store.Path != "" {
		cmd.Printf("  store.path: %s\n", settings.Store.Path)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ansera settings embedding' or 'ansera settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value, ok := settingValue(settings, args[0])
	if !ok {
		return unknownKeyError(args[0])
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if err := applySetting(settings, args[0], args[1]); err != nil {
		return err
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	value, _ := settingValue(settings, args[0])
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsWeights(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	lexical, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid lexical weight %q: %w", args[0], err)
	}
	vector, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid vector weight %q: %w", args[1], err)
	}

	if err := settingsService.SetFusionWeights(lexical, vector); err != nil {
		return fmt.Errorf("failed to set fusion weights: %w", err)
	}

	cmd.Printf("Fusion weights set: lexical=%s vector=%s\n", formatFloat(lexical), formatFloat(vector))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	cmd.Println("Run 'ansera reindex' to re-embed existing snippets with the new provider.")
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// settableKeys lists the dotted keys accepted by get and set, in display
// order. API keys are deliberately absent; they are read interactively so
// they never land in shell history.
var settableKeys = []string{
	"search.lexical_weight",
	"search.vector_weight",
	"search.min_score",
	"search.overfetch",
	"search.retrieval_timeout_ms",
	"answer.context_budget",
	"answer.generation_timeout_ms",
	"answer.max_turns",
	"answer.top_k",
	"scope.extra_keywords",
	"embedding.provider",
	"embedding.model",
	"embedding.base_url",
	"embedding.dimensions",
	"llm.provider",
	"llm.model",
	"llm.base_url",
	"store.backend",
	"store.path",
}

// settingValue renders one setting by its dotted key.
func settingValue(s *domain.AppSettings, key string) (string, bool) {
	switch key {
	case "search.lexical_weight":
		return formatFloat(s.Retrieval.LexicalWeight), true
	case "search.vector_weight":
		return formatFloat(s.Retrieval.VectorWeight), true
	case "search.min_score":
		return formatFloat(s.Retrieval.MinScore), true
	case "search.overfetch":
		return strconv.Itoa(s.Retrieval.Overfetch), true
	case "search.retrieval_timeout_ms":
		return strconv.Itoa(s.Retrieval.TimeoutMS), true
	case "answer.context_budget":
		return strconv.Itoa(s.Answer.ContextBudget), true
	case "answer.generation_timeout_ms":
		return strconv.Itoa(s.Answer.GenerationTimeoutMS), true
	case "answer.max_turns":
		return strconv.Itoa(s.Answer.MaxTurns), true
	case "answer.top_k":
		return strconv.Itoa(s.Answer.TopK), true
	case "scope.extra_keywords":
		return strings.Join(s.Scope.ExtraKeywords, ","), true
	case "embedding.provider":
		return s.Embedding.Provider.String(), true
	case "embedding.model":
		return s.Embedding.Model, true
	case "embedding.base_url":
		return s.Embedding.BaseURL, true
	case "embedding.dimensions":
		return strconv.Itoa(s.Embedding.Dimensions), true
	case "llm.provider":
		return s.LLM.Provider.String(), true
	case "llm.model":
		return s.LLM.Model, true
	case "llm.base_url":
		return s.LLM.BaseURL, true
	case "store.backend":
		return s.Store.Backend.String(), true
	case "store.path":
		return s.Store.Path, true
	default:
		return "", false
	}
}

// applySetting parses and assigns one setting by its dotted key.
func applySetting(s *domain.AppSettings, key, value string) error {
	switch key {
	case "search.lexical_weight":
		return setWeight(&s.Retrieval.LexicalWeight, value)
	case "search.vector_weight":
		return setWeight(&s.Retrieval.VectorWeight, value)
	case "search.min_score":
		return setFloat(&s.Retrieval.MinScore, value)
	case "search.overfetch":
		return setInt(&s.Retrieval.Overfetch, value)
	case "search.retrieval_timeout_ms":
		return setInt(&s.Retrieval.TimeoutMS, value)
	case "answer.context_budget":
		return setInt(&s.Answer.ContextBudget, value)
	case "answer.generation_timeout_ms":
		return setInt(&s.Answer.GenerationTimeoutMS, value)
	case "answer.max_turns":
		return setInt(&s.Answer.MaxTurns, value)
	case "answer.top_k":
		return setInt(&s.Answer.TopK, value)
	case "scope.extra_keywords":
		s.Scope.ExtraKeywords = splitKeywords(value)
		return nil
	case "embedding.provider":
		provider := domain.AIProvider(value)
		if !provider.SupportsEmbeddings() {
			return fmt.Errorf("provider %q cannot embed text", value)
		}
		s.Embedding.Provider = provider
		return nil
	case "embedding.model":
		s.Embedding.Model = value
		return nil
	case "embedding.base_url":
		s.Embedding.BaseURL = value
		return nil
	case "embedding.dimensions":
		return setInt(&s.Embedding.Dimensions, value)
	case "llm.provider":
		provider := domain.AIProvider(value)
		if !provider.SupportsGeneration() {
			return fmt.Errorf("provider %q cannot generate text", value)
		}
		s.LLM.Provider = provider
		return nil
	case "llm.model":
		s.LLM.Model = value
		return nil
	case "llm.base_url":
		s.LLM.BaseURL = value
		return nil
	case "store.backend":
		backend := domain.StoreBackend(value)
		if !backend.IsValid() {
			return fmt.Errorf("unknown store backend %q (want memory or sqlite)", value)
		}
		s.Store.Backend = backend
		return nil
	case "store.path":
		s.Store.Path = value
		return nil
	default:
		return unknownKeyError(key)
	}
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown settings key %q (known keys: %s)", key, strings.Join(settableKeys, ", "))
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", value, err)
	}
	*dst = v
	return nil
}

func setWeight(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", value, err)
	}
	if v < 0 {
		return fmt.Errorf("weight must not be negative, got %s", value)
	}
	*dst = v
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = v
	return nil
}

// splitKeywords parses a comma-separated keyword list, dropping blanks.
func splitKeywords(value string) []string {
	var keywords []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
