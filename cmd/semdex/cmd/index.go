package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/index"
)

// newIndexCmd creates the one-shot index command.
func newIndexCmd() *cobra.Command {
	var reindexAll bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the workspace (incremental by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flagWorkspace)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.manager.Update(ctx, index.Options{ReindexAll: reindexAll}, printProgress)
		},
	}

	cmd.Flags().BoolVar(&reindexAll, "all", false,
		"rebuild the whole index instead of an incremental update")
	return cmd
}

// printProgress renders progress events on stderr for interactive runs.
func printProgress(ev index.Event) {
	switch ev.Type {
	case index.EventStart:
		fmt.Fprintf(os.Stderr, "indexing: %s\n", ev.Message)
	case index.EventProgress:
		if ev.WaitingForRate {
			fmt.Fprintf(os.Stderr, "  rate limited, %s\n", ev.Message)
			return
		}
		if ev.TotalChunks > 0 {
			fmt.Fprintf(os.Stderr, "  %d/%d chunks (%d%%)\n",
				ev.CompletedChunks, ev.TotalChunks, ev.Percentage)
		}
	case index.EventWarning:
		fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Message)
	case index.EventCancelled:
		fmt.Fprintln(os.Stderr, "cancelled")
	case index.EventError:
		fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
	case index.EventComplete:
		fmt.Fprintf(os.Stderr, "done: %d chunks from %d files\n",
			ev.CompletedChunks, ev.TotalFiles)
	}
}
