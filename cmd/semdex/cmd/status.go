package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/store"
)

// statusPayload is the JSON shape printed by the status command.
type statusPayload struct {
	Initialized    bool               `json:"initialized"`
	TotalFiles     int                `json:"total_files"`
	IndexedFiles   int                `json:"indexed_files"`
	LastUpdated    *time.Time         `json:"last_updated,omitempty"`
	EmbeddingModel string             `json:"embedding_model"`
	PerModelStats  []store.ModelStats `json:"per_model_stats"`
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index status for the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flagWorkspace)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.Stats(ctx)
			if err != nil {
				return err
			}

			totalFiles := 0
			if files, err := a.scanner.Scan(); err == nil {
				totalFiles = len(files)
			}

			out, err := json.MarshalIndent(statusPayload{
				Initialized:    stats.Initialized,
				TotalFiles:     totalFiles,
				IndexedFiles:   stats.IndexedFiles,
				LastUpdated:    stats.LastUpdated,
				EmbeddingModel: a.cfg.EmbeddingModel,
				PerModelStats:  stats.PerModel,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
