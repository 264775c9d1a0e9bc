package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/semdex/semdex/internal/console"
	"github.com/semdex/semdex/internal/mcp"
)

// newServeCmd creates the serve command: the stdio MCP server plus the
// operator HTTP console, sharing one engine.
func newServeCmd() *cobra.Command {
	var consoleAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio) and the operator console",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flagWorkspace)
			if err != nil {
				return err
			}
			defer a.Close()

			if consoleAddr == "" {
				consoleAddr = a.cfg.ConsoleAddr
			}

			server, err := mcp.NewServer(mcp.Deps{
				Engine:  a.search,
				Manager: a.manager,
				Store:   a.store,
				Scanner: a.scanner,
				Cache:   a.cache,
				Config:  a.cfg,
			})
			if err != nil {
				return err
			}

			con := console.New(consoleAddr, console.Deps{
				Manager:  a.manager,
				Store:    a.store,
				Scanner:  a.scanner,
				Reporter: a.reporter,
				Cache:    a.cache,
				Config:   a.cfg,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Serve(gctx) })
			g.Go(func() error { return con.Start(gctx) })
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&consoleAddr, "console-addr", "",
		"console listen address; overrides CONSOLE_ADDR")
	return cmd
}
