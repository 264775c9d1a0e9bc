package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/semdex/semdex/internal/config"
	"github.com/semdex/semdex/internal/index"
	"github.com/semdex/semdex/internal/scanner"
	"github.com/semdex/semdex/internal/search"
	"github.com/semdex/semdex/internal/session"
	"github.com/semdex/semdex/internal/store"
	"github.com/semdex/semdex/pkg/version"
)

// Deps carries the collaborators the MCP server exposes.
type Deps struct {
	Engine  *search.Engine
	Manager *index.Manager
	Store   store.Store
	Scanner *scanner.Scanner
	Cache   *session.Cache
	Config  *config.Config
}

// Server is the stdio MCP server bridging AI clients with the semdex
// indexing and retrieval engines.
type Server struct {
	mcp    *mcp.Server
	deps   Deps
	logger *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("search engine is required")
	}
	if deps.Manager == nil {
		return nil, errors.New("index manager is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{
		deps:   deps,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "semdex",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_codebase",
		Description: "Semantic search over the indexed workspace. Finds documentation and text by meaning, not keywords. Optionally scoped to specific files or folders.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_workspace",
		Description: "Start an index update for the workspace. Incremental by default (only changed files); set reindex_all to rebuild from scratch. Returns immediately; follow progress with index_status.",
	}, s.indexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cancel_indexing",
		Description: "Cancel the indexing operation currently in progress. Already-inserted rows are kept; a later incremental update resumes where it left off.",
	}, s.cancelHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index state: whether indexing is running, how many files are indexed, per-model row counts, and the last progress event.",
	}, s.statusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reinitialize_index",
		Description: "Delete all indexed rows for this workspace and embedding model. Does not re-index; run index_workspace afterwards.",
	}, s.reinitializeHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", 5))
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
