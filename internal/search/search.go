// Package search implements the retrieval engine: embed the query once,
// delegate similarity to the store, and apply folder scoping in memory.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/semdex/semdex/internal/embed"
	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/glob"
	"github.com/semdex/semdex/internal/store"
)

// Scope restricts a search. Files and Folders combine by intersection;
// entries within each list combine by union. Empty lists impose no
// constraint.
type Scope struct {
	// Files are exact workspace-relative paths.
	Files []string

	// Folders are folder names or patterns, converted to globs by the
	// scope rules (verbatim with wildcards, root-anchored with a
	// leading slash, any-depth otherwise).
	Folders []string
}

// Result is one retrieval hit.
type Result struct {
	Path       string  `json:"path"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	URL        string  `json:"url"`
}

// Engine answers similarity queries against one workspace and model.
type Engine struct {
	store    store.Store
	embedder embed.Embedder

	// root is the normalized absolute workspace path used to build
	// file URLs.
	root string
}

// NewEngine creates a retrieval engine.
func NewEngine(s store.Store, e embed.Embedder, root string) *Engine {
	return &Engine{store: s, embedder: e, root: root}
}

// Search embeds the query and returns up to limit results at or above
// minSimilarity, ordered by similarity descending.
func (e *Engine) Search(ctx context.Context, query string, minSimilarity float64, limit int, scope Scope) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, semerrors.New(semerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	if limit <= 0 {
		limit = 10
	}

	started := time.Now()
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.Similar(ctx, vector, limit, minSimilarity, scope.Files)
	if err != nil {
		return nil, err
	}

	patterns := folderPatterns(scope.Folders)

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if len(patterns) > 0 && !glob.MatchAny(patterns, h.Path) {
			continue
		}
		results = append(results, Result{
			Path:       h.Path,
			Content:    h.Content,
			Similarity: h.Similarity,
			StartLine:  h.StartLine,
			EndLine:    h.EndLine,
			URL:        fileURL(e.root, h.Path),
		})
	}

	slog.Debug("search_complete",
		slog.Int("results", len(results)),
		slog.Int("candidates", len(hits)),
		slog.Duration("elapsed", time.Since(started)))
	return results, nil
}

// folderPatterns converts folder scope values to glob patterns, dropping
// blanks and duplicates.
func folderPatterns(folders []string) []string {
	seen := make(map[string]bool, len(folders))
	var patterns []string
	for _, f := range folders {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p := glob.FolderPattern(f)
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// fileURL builds the absolute file URL for a workspace-relative path.
func fileURL(root, rel string) string {
	path := root + "/" + rel
	if !strings.HasPrefix(path, "/") {
		// Windows drive paths need the extra slash after the scheme.
		path = "/" + path
	}
	return "file://" + path
}
