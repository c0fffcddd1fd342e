package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed snippets",
	Long: `Performs hybrid retrieval across all indexed snippets and prints the
fused ranking without answer synthesis. Combines lexical (TF-IDF) and
semantic (vector) scores; the origin column shows which legs returned
each snippet.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	ctx := cmd.Context()
	result, err := retrievalService.Retrieve(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	retrieved, err := retrievalService.Hydrate(ctx, result)
	if err != nil {
		return fmt.Errorf("loading results failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, retrieved)
	}
	return outputSearchTable(cmd, retrieved, result.Partial)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievedSnippet) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievedSnippet, partial bool) error {
	if partial {
		cmd.Println("Note: a retrieval leg timed out; results are partial.")
		cmd.Println()
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		snippet := results[i].Snippet
		ranked := results[i].Ranked

		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, snippet.ID, ranked.FusedScore, ranked.Origin)
		if snippet.Category != "" {
			cmd.Printf("      Category: %s\n", snippet.Category)
		}
		if excerpt := truncate(strings.Join(strings.Fields(snippet.Text), " "), 100); excerpt != "" {
			cmd.Printf("      %s\n", excerpt)
		}
		cmd.Println()
	}

	return nil
}
