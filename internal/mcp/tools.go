package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/index"
	"github.com/semdex/semdex/internal/search"
	"github.com/semdex/semdex/internal/store"
)

// SearchInput is the input schema for search_codebase.
type SearchInput struct {
	Query         string   `json:"query" jsonschema:"the natural-language search query"`
	Limit         int      `json:"limit,omitempty" jsonschema:"maximum number of results, default from configuration"`
	MinSimilarity float64  `json:"min_similarity,omitempty" jsonschema:"minimum cosine similarity between 0 and 1, default from configuration"`
	Files         []string `json:"files,omitempty" jsonschema:"restrict to these workspace-relative file paths (OR within the list)"`
	Folders       []string `json:"folders,omitempty" jsonschema:"restrict to these folders; bare names match at any depth, a leading slash anchors at the workspace root, wildcards are used verbatim"`
}

// SearchResultOutput is one search hit.
type SearchResultOutput struct {
	Path       string  `json:"path" jsonschema:"workspace-relative file path"`
	Content    string  `json:"content" jsonschema:"matched chunk text"`
	Similarity float64 `json:"similarity" jsonschema:"cosine similarity between 0 and 1"`
	StartLine  int     `json:"start_line" jsonschema:"1-based first line of the chunk"`
	EndLine    int     `json:"end_line" jsonschema:"1-based last line of the chunk"`
	URL        string  `json:"url" jsonschema:"absolute file URL for navigation"`
}

// SearchOutput is the output schema for search_codebase.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
}

func (s *Server) searchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = s.deps.Config.MaxResults
	}
	if s.deps.Config.MaxChunksPerQuery > 0 && limit > s.deps.Config.MaxChunksPerQuery {
		limit = s.deps.Config.MaxChunksPerQuery
	}
	minSim := input.MinSimilarity
	if minSim <= 0 {
		minSim = s.deps.Config.MinSimilarity
	}

	scope := search.Scope{Files: input.Files, Folders: input.Folders}

	if s.deps.Cache != nil {
		if cached, ok := s.deps.Cache.Get(input.Query, scope); ok {
			return nil, toSearchOutput(cached), nil
		}
	}

	results, err := s.deps.Engine.Search(ctx, input.Query, minSim, limit, scope)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	if s.deps.Cache != nil {
		s.deps.Cache.Put(input.Query, scope, results)
	}
	return nil, toSearchOutput(results), nil
}

func toSearchOutput(results []search.Result) SearchOutput {
	out := SearchOutput{Results: make([]SearchResultOutput, len(results))}
	for i, r := range results {
		out.Results[i] = SearchResultOutput{
			Path:       r.Path,
			Content:    r.Content,
			Similarity: r.Similarity,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			URL:        r.URL,
		}
	}
	return out
}

// IndexInput is the input schema for index_workspace.
type IndexInput struct {
	ReindexAll bool `json:"reindex_all,omitempty" jsonschema:"rebuild the whole index instead of an incremental update"`
}

// IndexOutput is the output schema for index_workspace.
type IndexOutput struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

func (s *Server) indexHandler(ctx context.Context, req *mcp.CallToolRequest, input IndexInput) (*mcp.CallToolResult, IndexOutput, error) {
	if err := s.deps.Manager.StartUpdate(index.Options{ReindexAll: input.ReindexAll}); err != nil {
		return nil, IndexOutput{}, MapError(err)
	}

	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate()
	}

	mode := "incremental"
	if input.ReindexAll {
		mode = "full rebuild"
	}
	return nil, IndexOutput{
		Started: true,
		Message: fmt.Sprintf("indexing started (%s); poll index_status for progress", mode),
	}, nil
}

// CancelInput is the (empty) input schema for cancel_indexing.
type CancelInput struct{}

// CancelOutput is the output schema for cancel_indexing.
type CancelOutput struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}

func (s *Server) cancelHandler(ctx context.Context, req *mcp.CallToolRequest, input CancelInput) (*mcp.CallToolResult, CancelOutput, error) {
	if !s.deps.Manager.Cancel() {
		return nil, CancelOutput{Message: "no indexing operation in progress"}, nil
	}
	return nil, CancelOutput{
		Cancelled: true,
		Message:   "cancellation requested; the run stops at the next checkpoint",
	}, nil
}

// StatusInput is the (empty) input schema for index_status.
type StatusInput struct{}

// StatusOutput is the output schema for index_status.
type StatusOutput struct {
	State          string             `json:"state" jsonschema:"idle or indexing"`
	Initialized    bool               `json:"initialized"`
	TotalFiles     int                `json:"total_files"`
	IndexedFiles   int                `json:"indexed_files"`
	LastUpdated    *time.Time         `json:"last_updated,omitempty"`
	EmbeddingModel string             `json:"embedding_model"`
	PerModelStats  []store.ModelStats `json:"per_model_stats"`
	LastEvent      *index.Event       `json:"last_event,omitempty"`
	LastError      string             `json:"last_error,omitempty"`
}

func (s *Server) statusHandler(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	stats, err := s.deps.Store.Stats(ctx)
	if err != nil {
		return nil, StatusOutput{}, MapError(err)
	}

	totalFiles := 0
	if s.deps.Scanner != nil {
		if files, err := s.deps.Scanner.Scan(); err == nil {
			totalFiles = len(files)
		}
	}

	snap := s.deps.Manager.Status()
	return nil, StatusOutput{
		State:          string(snap.State),
		Initialized:    stats.Initialized,
		TotalFiles:     totalFiles,
		IndexedFiles:   stats.IndexedFiles,
		LastUpdated:    stats.LastUpdated,
		EmbeddingModel: s.deps.Config.EmbeddingModel,
		PerModelStats:  stats.PerModel,
		LastEvent:      snap.LastEvent,
		LastError:      snap.LastError,
	}, nil
}

// ReinitializeInput is the (empty) input schema for reinitialize_index.
type ReinitializeInput struct{}

// ReinitializeOutput is the output schema for reinitialize_index.
type ReinitializeOutput struct {
	Message string `json:"message"`
}

func (s *Server) reinitializeHandler(ctx context.Context, req *mcp.CallToolRequest, input ReinitializeInput) (*mcp.CallToolResult, ReinitializeOutput, error) {
	if s.deps.Manager.Running() {
		return nil, ReinitializeOutput{}, MapError(semerrors.BusyError())
	}

	if err := s.deps.Store.ClearAll(ctx); err != nil {
		return nil, ReinitializeOutput{}, MapError(err)
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate()
	}
	return nil, ReinitializeOutput{
		Message: "index cleared for this workspace and model; run index_workspace to rebuild",
	}, nil
}
