package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/workspace"
)

// legacyDimension is the SchemaDimension sentinel for a JSONB embedding
// column left behind by earlier deployments.
const legacyDimension = -1

// PostgresStore is the pgvector-backed Store implementation. One instance
// is scoped to a single workspace and embedding model.
type PostgresStore struct {
	pool        *pgxpool.Pool
	workspaceID string
	model       string
	dimension   int
	legacy      bool
}

var _ Store = (*PostgresStore)(nil)

// Options configures Open.
type Options struct {
	DatabaseURL string
	WorkspaceID string
	Model       string

	// Dimension is the embedding model's vector length. The table is
	// created with this length; an existing table with a different
	// declared length is a configuration error.
	Dimension int

	// MaxConns bounds the connection pool. Zero keeps the pgx default.
	MaxConns int32
}

// Open connects to PostgreSQL, ensures the schema, and verifies the vector
// column matches the embedding dimension.
func Open(ctx context.Context, opts Options) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeConfigInvalid,
			"failed to parse database URL", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase,
			"failed to connect to database", err)
	}

	s := &PostgresStore{
		pool:        pool,
		workspaceID: opts.WorkspaceID,
		model:       opts.Model,
		dimension:   opts.Dimension,
	}

	declared, err := s.SchemaDimension(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	switch {
	case declared == 0:
		if err := s.ensureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	case declared == legacyDimension:
		s.legacy = true
		slog.Warn("legacy_embedding_column",
			slog.String("workspace_id", opts.WorkspaceID),
			slog.String("detail", "jsonb embedding column, similarity computed in memory"))
	case opts.Dimension > 0 && declared != opts.Dimension:
		pool.Close()
		return nil, semerrors.New(semerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector column is vector(%d) but model %q produces %d dimensions",
				declared, opts.Model, opts.Dimension), nil)
	}

	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ensureSchema creates the extension, table, and indexes. The ANN index
// prefers HNSW and falls back to IVF-flat on servers without it.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
	id BIGSERIAL PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	path TEXT NOT NULL,
	mtime BIGINT NOT NULL,
	content TEXT NOT NULL,
	model TEXT NOT NULL,
	dimension INT NOT NULL,
	embedding vector(%d),
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS chunks_workspace_idx ON chunks (workspace_id);
CREATE INDEX IF NOT EXISTS chunks_model_idx ON chunks (model);
CREATE INDEX IF NOT EXISTS chunks_dimension_idx ON chunks (dimension);
CREATE INDEX IF NOT EXISTS chunks_path_idx ON chunks (path);
`, s.dimension)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to ensure schema", err)
	}

	_, err := s.pool.Exec(ctx, `
CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
	USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64)`)
	if err != nil {
		slog.Warn("hnsw_unavailable", slog.String("error", err.Error()))
		_, err = s.pool.Exec(ctx, `
CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)
		if err != nil {
			// Sequential scan still works; the index is an optimization.
			slog.Warn("ann_index_skipped", slog.String("error", err.Error()))
		}
	}
	return nil
}

// SchemaDimension introspects the embedding column: the declared vector
// length, zero when the table is absent, or legacyDimension for JSONB.
func (s *PostgresStore) SchemaDimension(ctx context.Context) (int, error) {
	var typeName string
	err := s.pool.QueryRow(ctx, `
SELECT format_type(a.atttypid, a.atttypmod)
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
JOIN pg_namespace n ON c.relnamespace = n.oid
WHERE n.nspname = current_schema()
  AND c.relname = 'chunks'
  AND a.attname = 'embedding'
  AND NOT a.attisdropped`).Scan(&typeName)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, semerrors.New(semerrors.ErrCodeDatabase,
			"failed to introspect embedding column", err)
	}

	if typeName == "jsonb" || typeName == "json" {
		return legacyDimension, nil
	}

	var dim int
	if _, err := fmt.Sscanf(typeName, "vector(%d)", &dim); err != nil {
		return 0, semerrors.New(semerrors.ErrCodeDatabase,
			fmt.Sprintf("unexpected embedding column type %q", typeName), nil)
	}
	return dim, nil
}

// IndexedPaths returns the distinct paths with rows for this workspace and
// model.
func (s *PostgresStore) IndexedPaths(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT path FROM chunks WHERE workspace_id = $1 AND model = $2`,
		s.workspaceID, s.model)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to list indexed paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to scan path", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to iterate paths", err)
	}
	return paths, nil
}

// MTimes returns path -> max(mtime) for the given paths.
func (s *PostgresStore) MTimes(ctx context.Context, paths []string) (map[string]int64, error) {
	result := make(map[string]int64, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx, `
SELECT path, MAX(mtime) FROM chunks
WHERE workspace_id = $1 AND model = $2 AND path = ANY($3)
GROUP BY path`,
		s.workspaceID, s.model, paths)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to query mtimes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		var mt int64
		if err := rows.Scan(&p, &mt); err != nil {
			return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to scan mtime", err)
		}
		result[p] = mt
	}
	if err := rows.Err(); err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to iterate mtimes", err)
	}
	return result, nil
}

// DeleteForPaths deletes all rows matching any of the given paths.
func (s *PostgresStore) DeleteForPaths(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
DELETE FROM chunks WHERE workspace_id = $1 AND model = $2 AND path = ANY($3)`,
		s.workspaceID, s.model, paths)
	if err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to delete rows by path", err)
	}
	return nil
}

// DeleteAbsent deletes rows whose path is not in keep. An empty keep set
// clears everything for this workspace and model.
func (s *PostgresStore) DeleteAbsent(ctx context.Context, keep []string) error {
	if len(keep) == 0 {
		return s.ClearAll(ctx)
	}
	_, err := s.pool.Exec(ctx, `
DELETE FROM chunks WHERE workspace_id = $1 AND model = $2 AND NOT (path = ANY($3))`,
		s.workspaceID, s.model, keep)
	if err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to prune absent paths", err)
	}
	return nil
}

// ClearAll deletes everything for this workspace and model.
func (s *PostgresStore) ClearAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
DELETE FROM chunks WHERE workspace_id = $1 AND model = $2`,
		s.workspaceID, s.model)
	if err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to clear workspace rows", err)
	}
	return nil
}

// InsertBatch inserts rows in a single batched round trip.
func (s *PostgresStore) InsertBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		if s.dimension > 0 && len(r.Embedding) != s.dimension {
			return semerrors.New(semerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("row for %s has %d dimensions, store expects %d",
					r.Path, len(r.Embedding), s.dimension), nil)
		}

		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return semerrors.New(semerrors.ErrCodeDatabase, "failed to marshal metadata", err)
		}

		var embedding any
		if s.legacy {
			raw, err := json.Marshal(r.Embedding)
			if err != nil {
				return semerrors.New(semerrors.ErrCodeDatabase, "failed to marshal embedding", err)
			}
			embedding = raw
		} else {
			embedding = pgvector.NewVector(r.Embedding)
		}

		batch.Queue(`
INSERT INTO chunks (workspace_id, path, mtime, content, model, dimension, embedding, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.workspaceID, r.Path, r.MTime, r.Content, s.model,
			len(r.Embedding), embedding, meta)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return semerrors.New(semerrors.ErrCodeDatabase, "failed to insert chunk rows", err)
		}
	}
	return nil
}

// Similar returns the top-k rows by cosine similarity at or above
// minSimilarity, excluding skipped marker rows. With a native vector
// column, ordering and the candidate limit are pushed into the database;
// the legacy JSONB column falls back to scoring in memory.
func (s *PostgresStore) Similar(ctx context.Context, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.legacy {
		return s.similarLegacy(ctx, vector, k, minSimilarity, scopeFiles)
	}

	query := `
SELECT path, content, metadata, 1 - (embedding <=> $1) AS similarity
FROM chunks
WHERE workspace_id = $2 AND model = $3
  AND COALESCE((metadata->>'skipped')::boolean, false) = false`
	args := []any{pgvector.NewVector(vector), s.workspaceID, s.model}

	if len(scopeFiles) > 0 {
		args = append(args, scopeFiles)
		query += fmt.Sprintf(" AND path = ANY($%d)", len(args))
	}

	// Overfetch so the similarity threshold still leaves k survivors.
	args = append(args, 2*k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to query similar chunks", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			meta Metadata
			raw  []byte
		)
		if err := rows.Scan(&r.Path, &r.Content, &raw, &r.Similarity); err != nil {
			return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to scan search result", err)
		}
		if err := json.Unmarshal(raw, &meta); err == nil {
			r.StartLine = meta.StartLine
			r.EndLine = meta.EndLine
		}
		if r.Similarity < minSimilarity {
			continue
		}
		results = append(results, r)
		if len(results) == k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to iterate search results", err)
	}
	return results, nil
}

// similarLegacy scores JSONB-encoded embeddings in memory.
func (s *PostgresStore) similarLegacy(ctx context.Context, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]SearchResult, error) {
	query := `
SELECT path, content, metadata, embedding
FROM chunks
WHERE workspace_id = $1 AND model = $2
  AND COALESCE((metadata->>'skipped')::boolean, false) = false`
	args := []any{s.workspaceID, s.model}
	if len(scopeFiles) > 0 {
		args = append(args, scopeFiles)
		query += fmt.Sprintf(" AND path = ANY($%d)", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to query legacy chunks", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r       SearchResult
			meta    Metadata
			rawMeta []byte
			rawEmb  []byte
		)
		if err := rows.Scan(&r.Path, &r.Content, &rawMeta, &rawEmb); err != nil {
			return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to scan legacy row", err)
		}
		var emb []float32
		if err := json.Unmarshal(rawEmb, &emb); err != nil {
			continue
		}
		if err := json.Unmarshal(rawMeta, &meta); err == nil {
			r.StartLine = meta.StartLine
			r.EndLine = meta.EndLine
		}

		r.Similarity = cosineSimilarity(vector, emb)
		if r.Similarity < minSimilarity {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, semerrors.New(semerrors.ErrCodeDatabase, "failed to iterate legacy rows", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats summarizes the workspace's rows: distinct non-skipped files for
// this model, the last write time, and per-model row counts.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	declared, err := s.SchemaDimension(ctx)
	if err != nil {
		return stats, err
	}
	if declared == 0 {
		return stats, nil
	}
	stats.Initialized = true

	var lastUpdated *time.Time
	err = s.pool.QueryRow(ctx, `
SELECT COUNT(DISTINCT path), MAX(created_at)
FROM chunks
WHERE workspace_id = $1 AND model = $2
  AND COALESCE((metadata->>'skipped')::boolean, false) = false`,
		s.workspaceID, s.model).Scan(&stats.IndexedFiles, &lastUpdated)
	if err != nil {
		return stats, semerrors.New(semerrors.ErrCodeDatabase, "failed to query index stats", err)
	}
	stats.LastUpdated = lastUpdated

	rows, err := s.pool.Query(ctx, `
SELECT model, COUNT(*), COALESCE(SUM(length(content)), 0)
FROM chunks
WHERE workspace_id = $1
GROUP BY model
ORDER BY model`, s.workspaceID)
	if err != nil {
		return stats, semerrors.New(semerrors.ErrCodeDatabase, "failed to query model stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ms ModelStats
		if err := rows.Scan(&ms.Model, &ms.RowCount, &ms.TotalDataBytes); err != nil {
			return stats, semerrors.New(semerrors.ErrCodeDatabase, "failed to scan model stats", err)
		}
		stats.PerModel = append(stats.PerModel, ms)
	}
	if err := rows.Err(); err != nil {
		return stats, semerrors.New(semerrors.ErrCodeDatabase, "failed to iterate model stats", err)
	}
	return stats, nil
}

// WithWorkspaceLock runs fn while holding the session-level advisory lock
// derived from the workspace identifier. The lock lives on a dedicated
// pooled connection so the database releases it if this process dies.
func (s *PostgresStore) WithWorkspaceLock(ctx context.Context, fn func(ctx context.Context) error) error {
	key := int64(workspace.LockKey(s.workspaceID))

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to acquire lock connection", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return semerrors.New(semerrors.ErrCodeDatabase, "failed to acquire workspace lock", err)
	}
	defer func() {
		// Unlock must run even when ctx was cancelled mid-run.
		unlockCtx := context.WithoutCancel(ctx)
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1)`, key); err != nil {
			slog.Warn("advisory_unlock_failed",
				slog.String("workspace_id", s.workspaceID),
				slog.String("error", err.Error()))
		}
	}()

	return fn(ctx)
}

// cosineSimilarity computes 1 - cosine distance for two vectors. Mismatched
// lengths or zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SkippedContent renders the marker content for a file recorded without an
// embedding.
func SkippedContent(reason string) string {
	return "[SKIPPED: " + strings.TrimSpace(reason) + "]"
}
