// Package cmd provides the CLI commands for semdex.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/pkg/version"
)

var (
	flagWorkspace string
	flagLogLevel  string
)

// NewRootCmd creates the root command for the semdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semdex",
		Short: "Semantic retrieval service for a local document tree",
		Long: `semdex indexes a workspace of documents into PostgreSQL with the
pgvector extension and answers similarity queries over it.

The serve command exposes the index to AI clients over the Model Context
Protocol (stdio) and to operators over a local HTTP console; index, search,
and status are one-shot operator commands over the same engine.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("semdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", ".",
		"workspace root directory")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"minimum log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI with signal-aware context cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}
