// Package cli implements the ansera command-line interface.
// Commands register themselves on the root command in their init
// functions and talk to the core exclusively through the driving
// ports, which are wired up once per invocation.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ansera/internal/adapters/driven/ai"
	"github.com/custodia-labs/ansera/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ansera/internal/adapters/driven/index/lexical"
	"github.com/custodia-labs/ansera/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/ansera/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ansera/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
	"github.com/custodia-labs/ansera/internal/core/services"
	"github.com/custodia-labs/ansera/internal/loader"
	"github.com/custodia-labs/ansera/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Root flags.
var (
	flagVerbose bool
	flagConfig  string
	flagStore   string
)

// Services the commands talk to. Wired by initServices, swapped out by
// tests. Commands nil-guard rather than assume wiring happened.
var (
	answerService     driving.AnswerService
	retrievalService  driving.RetrievalService
	indexService      driving.IndexAdmin
	settingsService   driving.SettingsService
	conversationAdmin driving.ConversationAdmin
	snippetStore      driven.SnippetStore
	queryLog          driven.QueryLog
	snippetLoader     *loader.Loader

	// cleanup tears down whatever initCore built; nil until wired.
	cleanup func()

	// wireOnRun gates service construction in PersistentPreRunE. Only
	// real invocations through Execute build the stack; tests swap the
	// service variables directly and run commands without it.
	wireOnRun bool
)

var rootCmd = &cobra.Command{
	Use:   "ansera",
	Short: "Ask questions against a local knowledge base",
	Long: `Ansera answers natural-language questions strictly from a store of
indexed knowledge snippets (people, roles and teams). Retrieval fuses a
TF-IDF lexical index with a cosine-similarity vector index; every answer
cites the snippets it was built from, and questions outside the indexed
domain are redirected rather than guessed at.

Everything runs locally by default. Configure an embedding or generation
provider with 'ansera settings' to enable semantic search and synthesised
answers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if !wireOnRun || !needsWiring(cmd) {
			return nil
		}
		if err := initSettings(); err != nil {
			return err
		}
		if needsCore(cmd) {
			return initCore(cmd)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config directory (default ~/.ansera)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "snippet store backend: memory or sqlite (default from config)")
}

// Execute runs the root command. Called once from main.
func Execute() {
	wireOnRun = true

	// Environment overrides (API keys and the like) may live in a .env
	// next to the binary; absence is fine.
	_ = godotenv.Load() //nolint:errcheck // optional file

	ctx, stop := signalContext()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// needsWiring reports whether the command touches configuration at all.
// Version, help and shell completion must work on a broken install.
func needsWiring(cmd *cobra.Command) bool {
	switch topLevelName(cmd) {
	case "version", "help", "completion":
		return false
	}
	return true
}

// needsCore reports whether the command needs the full answering stack.
// Settings management only needs the config store.
func needsCore(cmd *cobra.Command) bool {
	return topLevelName(cmd) != "settings"
}

// topLevelName walks up to the command directly under the root, so
// "settings llm" resolves to "settings".
func topLevelName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// anseraHome resolves the base directory for config, prompts and data:
// --config flag first, then ANSERA_HOME, then ~/.ansera.
func anseraHome() string {
	if flagConfig != "" {
		return flagConfig
	}
	if dir := os.Getenv("ANSERA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ansera"
	}
	return filepath.Join(home, ".ansera")
}

// initSettings wires the config store and settings service.
func initSettings() error {
	if settingsService != nil {
		return nil
	}

	configStore, err := file.NewConfigStore(anseraHome())
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	logger.Debug("Config loaded from %s", configStore.Path())
	return nil
}

// initCore builds the full answering stack: stores, indexes, AI
// services, core services and the indexing pipeline.
func initCore(cmd *cobra.Command) error {
	if answerService != nil {
		return nil
	}

	ctx := cmd.Context()
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	backend := settings.Store.Backend
	if flagStore != "" {
		backend = domain.StoreBackend(flagStore)
		if !backend.IsValid() {
			return fmt.Errorf("unknown store backend %q (want memory or sqlite)", flagStore)
		}
	}

	var closers []func()

	switch backend {
	case domain.StoreBackendSQLite:
		dataDir := settings.Store.Path
		if dataDir == "" {
			dataDir = filepath.Join(anseraHome(), "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("opening snippet store: %w", err)
		}
		snippetStore = store.SnippetStore()
		queryLog = store.QueryLog()
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Closing store: %v", err)
			}
		})
		logger.Debug("Using sqlite store at %s", store.Path())
	default:
		snippetStore = memory.NewSnippetStore()
		queryLog = memory.NewQueryLog()
		logger.Debug("Using in-memory store")
	}

	lexicalIndex := lexical.New()
	vectorIndex := vector.New()

	aiResult := ai.Init(*settings)
	closers = append(closers, aiResult.Close)
	for _, warning := range aiResult.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
	}

	promptStore, err := file.NewPromptStore(filepath.Join(anseraHome(), "prompts"))
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}
	systemPrompt, err := promptStore.Load(driven.PromptAnswerSystem)
	if err != nil {
		logger.Warn("Loading answer system prompt: %v", err)
	}

	scopeService := services.NewScopeService(snippetStore, settings.Scope.ExtraKeywords)
	retrieval := services.NewRetrievalService(
		snippetStore, lexicalIndex, vectorIndex, aiResult.EmbeddingService, settings.Retrieval)
	conversations := services.NewConversationService(settings.Answer.MaxTurns)
	assembler := services.NewAssemblerService(settings.Answer.ContextBudget, systemPrompt)

	answering := services.NewAnswerService(
		scopeService, retrieval, assembler, conversations,
		snippetStore, aiResult.LLMService, queryLog, settings.Answer)
	answering.SetPromptStore(promptStore)

	indexer := services.NewIndexerService(
		snippetStore, lexicalIndex, vectorIndex, aiResult.EmbeddingService)
	indexer.OnMutation(scopeService.Invalidate)
	if err := indexer.Start(ctx); err != nil {
		return fmt.Errorf("starting indexer: %w", err)
	}
	closers = append(closers, indexer.Stop)

	// A persistent store may already hold snippets; the in-memory
	// indexes start empty, so rebuild them before serving queries.
	if count, err := snippetStore.Count(ctx); err == nil && count > 0 {
		if _, err := indexer.ReindexAll(ctx); err != nil {
			logger.Warn("Startup reindex: %v", err)
		}
	}

	snippetLoader = loader.New(snippetStore)
	closers = append(closers, func() {
		if err := snippetLoader.Close(); err != nil {
			logger.Warn("Closing loader: %v", err)
		}
	})

	answerService = answering
	retrievalService = retrieval
	indexService = indexer
	conversationAdmin = conversations

	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so
// long-running commands (chat, load --watch, mcp) shut down cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
