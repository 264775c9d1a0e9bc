package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/search"
)

// newSearchCmd creates the one-shot search command.
func newSearchCmd() *cobra.Command {
	var (
		limit         int
		minSimilarity float64
		files         []string
		folders       []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a similarity query against the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flagWorkspace)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = a.cfg.MaxResults
			}
			if minSimilarity <= 0 {
				minSimilarity = a.cfg.MinSimilarity
			}

			query := strings.Join(args, " ")
			results, err := a.search.Search(ctx, query, minSimilarity, limit, search.Scope{
				Files:   files,
				Folders: folders,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, r := range results {
				fmt.Printf("%2d. %s:%d-%d  (%.3f)\n", i+1, r.Path, r.StartLine, r.EndLine, r.Similarity)
				fmt.Printf("    %s\n", firstLine(r.Content, 120))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum cosine similarity")
	cmd.Flags().StringSliceVar(&files, "file", nil, "restrict to workspace-relative file paths")
	cmd.Flags().StringSliceVar(&folders, "folder", nil, "restrict to folders (bare name, /anchored, or glob)")
	return cmd
}

// firstLine returns the first line of s truncated to max characters.
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "…"
	}
	return s
}
