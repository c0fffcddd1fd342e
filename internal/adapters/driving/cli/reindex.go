package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild both retrieval indexes",
	Long: `Rebuilds the lexical and vector indexes from the snippet store.
Cached embeddings are reused where the model matches and recomputed
otherwise. Searches keep working while the rebuild runs.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	stats, err := indexService.ReindexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Reindexed %d snippets (%d lexical, %d vector", stats.StoreCount, stats.LexicalCount, stats.VectorCount)
	if stats.Degraded > 0 {
		cmd.Printf(", %d lexical-only", stats.Degraded)
	}
	cmd.Println(")")
	return nil
}
