package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	statsShowQueries bool
	statsQueryLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and store statistics",
	Long: `Shows the current snippet, index and degradation counts.

With --queries the most recent analytics rows are printed too: what was
asked, the scope verdict, how many snippets were retrieved and how the
answer was produced.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsShowQueries, "queries", false, "also show recent query analytics")
	statsCmd.Flags().IntVarP(&statsQueryLimit, "limit", "n", 10, "number of recent queries to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	ctx := cmd.Context()
	stats, err := indexService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	cmd.Println("Index Statistics")
	cmd.Println("================")
	cmd.Printf("  Snippets in store: %d\n", stats.StoreCount)
	cmd.Printf("  Lexical index:     %d\n", stats.LexicalCount)
	cmd.Printf("  Vector index:      %d\n", stats.VectorCount)
	if stats.Degraded > 0 {
		cmd.Printf("  Lexical-only:      %d\n", stats.Degraded)
	}
	if !stats.LastSyncTime.IsZero() {
		cmd.Printf("  Last sync:         %s\n", stats.LastSyncTime.Format(time.RFC3339))
	}
	if snippetStore != nil {
		if categories, err := snippetStore.Categories(ctx); err == nil && len(categories) > 0 {
			cmd.Printf("  Categories:        %s\n", strings.Join(categories, ", "))
		}
	}

	if !statsShowQueries {
		return nil
	}
	if queryLog == nil {
		cmd.Println("\nQuery log not configured.")
		return nil
	}

	records, err := queryLog.Recent(ctx, statsQueryLimit)
	if err != nil {
		return fmt.Errorf("reading query log: %w", err)
	}

	cmd.Println()
	cmd.Println("Recent Queries")
	cmd.Println("==============")
	if len(records) == 0 {
		cmd.Println("  (none)")
		return nil
	}
	for _, rec := range records {
		cmd.Printf("  %s  %-12s %-11s %3d results  %4dms  %s\n",
			rec.AskedAt.Format("2006-01-02 15:04"), rec.Verdict, rec.Kind,
			rec.ResultCount, rec.DurationMS, truncate(rec.Query, 48))
	}
	return nil
}
