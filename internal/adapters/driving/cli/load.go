package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ansera/internal/loader"
)

var loadWatch bool

var loadCmd = &cobra.Command{
	Use:   "load [path]",
	Short: "Load snippet files into the store",
	Long: `Loads snippet files from a file or directory into the snippet store.
JSON files hold one snippet object or an array of them; Markdown and
plain-text files become one snippet each, with a leading heading used
as the category.

With --watch the command keeps running and follows changes under the
directory: created and edited files are (re)loaded and deleted files
have their snippets removed. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVarP(&loadWatch, "watch", "w", false, "keep watching the directory for changes")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	if snippetLoader == nil {
		return errors.New("loader not configured")
	}

	ctx := cmd.Context()
	result, err := snippetLoader.LoadPath(ctx, args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Loaded %d snippets from %d files", result.Snippets, result.Files)
	if result.Removed > 0 {
		cmd.Printf(" (%d stale removed)", result.Removed)
	}
	cmd.Println()

	if !loadWatch {
		return nil
	}

	events, err := snippetLoader.Watch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", args[0])

	for event := range events {
		switch {
		case event.Err != nil:
			cmd.Printf("  error: %s: %v\n", event.Path, event.Err)
		case event.Type == loader.EventRemoved:
			cmd.Printf("  removed %s (%d snippets)\n", event.Path, event.Count)
		default:
			cmd.Printf("  loaded %s (%d snippets)\n", event.Path, event.Count)
		}
	}
	return nil
}
