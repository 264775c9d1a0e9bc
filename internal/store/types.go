// Package store persists chunk rows in PostgreSQL with the pgvector
// extension and answers similarity queries.
//
// Every operation is scoped by workspace and embedding model: rows for
// different models coexist in the same workspace, and different workspaces
// never see each other's rows.
package store

import (
	"context"
	"time"
)

// Metadata is the structured per-row payload persisted as JSONB.
type Metadata struct {
	StartLine    int    `json:"start_line"`
	EndLine      int    `json:"end_line"`
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	OriginalSize int64  `json:"original_size,omitempty"`
}

// Row is one chunk record ready for insertion.
type Row struct {
	Path      string
	MTime     int64
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// SearchResult is one similarity hit.
type SearchResult struct {
	Path       string
	Content    string
	Similarity float64
	StartLine  int
	EndLine    int
}

// ModelStats summarizes the rows one embedding model holds in a workspace.
type ModelStats struct {
	Model          string `json:"model"`
	RowCount       int64  `json:"row_count"`
	TotalDataBytes int64  `json:"total_data_bytes"`
}

// Stats is the store-derived part of the status payload.
type Stats struct {
	Initialized  bool         `json:"initialized"`
	IndexedFiles int          `json:"indexed_files"`
	LastUpdated  *time.Time   `json:"last_updated,omitempty"`
	PerModel     []ModelStats `json:"per_model_stats"`
}

// Store is the persistence contract used by the indexing and retrieval
// engines. Implementations scope all operations to the workspace and model
// they were opened for.
type Store interface {
	// IndexedPaths returns the distinct paths currently having rows.
	IndexedPaths(ctx context.Context) ([]string, error)

	// MTimes returns path -> max(mtime) for the given paths.
	MTimes(ctx context.Context, paths []string) (map[string]int64, error)

	// DeleteForPaths deletes all rows matching any of the given paths.
	DeleteForPaths(ctx context.Context, paths []string) error

	// DeleteAbsent deletes all rows whose path is NOT in keep. An empty
	// keep set clears everything for this workspace and model.
	DeleteAbsent(ctx context.Context, keep []string) error

	// ClearAll deletes everything for this workspace and model.
	ClearAll(ctx context.Context) error

	// InsertBatch inserts rows in one round trip.
	InsertBatch(ctx context.Context, rows []Row) error

	// Similar returns the top-k rows by cosine similarity at or above
	// minSimilarity, excluding skipped marker rows. A non-empty
	// scopeFiles restricts results to exact path matches.
	Similar(ctx context.Context, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]SearchResult, error)

	// Stats summarizes what the workspace currently holds: distinct
	// indexed files for this model, the last write time, and per-model
	// row counts across the whole workspace.
	Stats(ctx context.Context) (Stats, error)

	// SchemaDimension returns the declared vector column length, zero
	// if the table does not exist yet, or a negative value when the
	// column is the legacy JSON representation.
	SchemaDimension(ctx context.Context) (int, error)

	// WithWorkspaceLock runs fn while holding the cross-process
	// advisory lock for this workspace, blocking until it is free.
	WithWorkspaceLock(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases the underlying database resources.
	Close()
}
