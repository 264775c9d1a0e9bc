package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/semdex/semdex/internal/chunk"
	"github.com/semdex/semdex/internal/config"
	"github.com/semdex/semdex/internal/embed"
	"github.com/semdex/semdex/internal/index"
	"github.com/semdex/semdex/internal/logging"
	"github.com/semdex/semdex/internal/report"
	"github.com/semdex/semdex/internal/scanner"
	"github.com/semdex/semdex/internal/search"
	"github.com/semdex/semdex/internal/session"
	"github.com/semdex/semdex/internal/store"
	"github.com/semdex/semdex/internal/workspace"
)

// app is the assembled dependency graph shared by all commands.
type app struct {
	cfg         *config.Config
	root        string
	workspaceID string

	store    *store.PostgresStore
	embedder embed.Embedder
	scanner  *scanner.Scanner
	reporter *report.Reporter
	engine   *index.Engine
	manager  *index.Manager
	search   *search.Engine
	cache    *session.Cache

	cleanups []func()
}

// newApp loads configuration and wires the full graph for the workspace.
// The embedding dimension is taken from configuration or discovered with a
// single probe call before the store is opened.
func newApp(ctx context.Context, workspacePath string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logCleanup, err := logging.SetupDefault(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &app{cfg: cfg}
	a.cleanups = append(a.cleanups, logCleanup)

	a.root, err = workspace.Normalize(workspacePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.workspaceID, err = workspace.ID(workspacePath)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.embedder, err = embed.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanups = append(a.cleanups, func() { _ = a.embedder.Close() })

	dimension := cfg.EmbeddingDimension
	if dimension == 0 {
		if _, err := a.embedder.Embed(ctx, "dimension probe"); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
		}
		dimension = a.embedder.Dimensions()
	}

	a.store, err = store.Open(ctx, store.Options{
		DatabaseURL: cfg.DatabaseURL,
		WorkspaceID: a.workspaceID,
		Model:       cfg.EmbeddingModel,
		Dimension:   dimension,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cleanups = append(a.cleanups, a.store.Close)

	a.scanner = scanner.New(a.root, cfg.IncludePatterns, cfg.ExcludePatterns)
	a.reporter = report.New(cfg.ReportOutputDir, a.workspaceID)

	a.engine = index.NewEngine(index.Deps{
		Store:     a.store,
		Embedder:  a.embedder,
		Scanner:   a.scanner,
		Chunker:   chunk.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		Extractor: chunk.NewExtractor(cfg.ExcludeCodeLanguages),
		Reporter:  a.reporter,
		Root:      a.root,
		Dimension: dimension,
	})
	a.manager = index.NewManager(ctx, a.engine)
	a.search = search.NewEngine(a.store, a.embedder, a.root)

	a.cache, err = session.New(cfg.MaxSessionResults, 0)
	if err != nil {
		a.Close()
		return nil, err
	}

	slog.Info("workspace_ready",
		slog.String("workspace_id", a.workspaceID),
		slog.String("root", a.root),
		slog.String("model", cfg.EmbeddingModel),
		slog.Int("dimension", dimension))
	return a, nil
}

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
