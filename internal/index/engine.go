// Package index orchestrates full and incremental index updates for a
// workspace: diff by mtime, prune deleted files, chunk, embed with retry
// and cancellation, batch-insert, and emit progress.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semdex/semdex/internal/chunk"
	"github.com/semdex/semdex/internal/embed"
	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/report"
	"github.com/semdex/semdex/internal/scanner"
	"github.com/semdex/semdex/internal/store"
)

// Tunables for the embedding loop. The batch size is chosen for
// cancellation responsiveness, not throughput.
const (
	batchSize        = 10
	interBatchDelay  = 100 * time.Millisecond
	throttleInterval = 500 * time.Millisecond
)

// Options selects the update mode.
type Options struct {
	// ReindexAll drops all rows for the workspace and model and
	// rebuilds from scratch, skipping the mtime diff.
	ReindexAll bool
}

// Deps carries the collaborators an Engine needs.
type Deps struct {
	Store     store.Store
	Embedder  embed.Embedder
	Scanner   *scanner.Scanner
	Chunker   *chunk.Chunker
	Extractor *chunk.Extractor
	Reporter  *report.Reporter

	// Root is the normalized absolute workspace path.
	Root string

	// Dimension is the embedding vector length, known before any run.
	Dimension int
}

// Engine runs index updates. One Engine serves one workspace and model;
// concurrent runs are serialized upstream by the Manager and across
// processes by the store's advisory lock.
type Engine struct {
	deps  Deps
	retry embed.RetryConfig
}

// NewEngine creates an engine with the default retry policy.
func NewEngine(deps Deps) *Engine {
	return &Engine{deps: deps, retry: embed.DefaultRetryConfig()}
}

// workItem is one chunk awaiting embedding.
type workItem struct {
	path    string
	mtime   int64
	chunk   chunk.Chunk
	vector  []float32
	failed  bool
	skipped bool
}

// skippedFile is a file recorded with a zero-vector marker row.
type skippedFile struct {
	path   string
	mtime  int64
	size   int64
	reason string
}

// Update performs one index update under the workspace advisory lock.
// Cancellation is cooperative through the token and is not an error:
// a cancelled run emits a cancelled event and returns nil.
func (e *Engine) Update(ctx context.Context, opts Options, progress ProgressFunc, token *CancelToken) error {
	return e.deps.Store.WithWorkspaceLock(ctx, func(ctx context.Context) error {
		return e.run(ctx, opts, progress, token)
	})
}

func (e *Engine) run(ctx context.Context, opts Options, progress ProgressFunc, token *CancelToken) error {
	emit := e.emitter(progress)
	started := time.Now()

	files, err := e.deps.Scanner.Scan()
	if err != nil {
		emit(Event{Type: EventError, Message: fmt.Sprintf("scan failed: %v", err)})
		return semerrors.IndexingError("failed to scan workspace", err)
	}

	if opts.ReindexAll {
		if err := e.deps.Store.ClearAll(ctx); err != nil {
			emit(Event{Type: EventError, Message: err.Error()})
			return err
		}
	} else if err := e.prune(ctx); err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return err
	}

	toReindex, skipped, err := e.diff(ctx, files, opts.ReindexAll)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return err
	}

	// Pre-delete covers the skipped paths too: a file truncated to empty
	// must lose its old chunk rows before the fresh marker lands.
	if len(toReindex) > 0 || len(skipped) > 0 {
		paths := make([]string, 0, len(toReindex)+len(skipped))
		for _, f := range toReindex {
			paths = append(paths, f.Path)
		}
		for _, sf := range skipped {
			paths = append(paths, sf.path)
		}
		if err := e.deps.Store.DeleteForPaths(ctx, paths); err != nil {
			emit(Event{Type: EventError, Message: err.Error()})
			return err
		}
	}

	items, moreSkipped, failedFiles := e.readAndChunk(toReindex, emit)
	skipped = append(skipped, moreSkipped...)

	if token.IsCancelled() {
		emit(Event{Type: EventCancelled, IsCancelled: true, TotalFiles: len(toReindex)})
		return nil
	}

	if err := e.recordSkipped(ctx, skipped); err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return err
	}

	emit(Event{
		Type:        EventStart,
		TotalChunks: len(items),
		TotalFiles:  len(toReindex),
		Message:     fmt.Sprintf("indexing %d files, %d chunks", len(toReindex), len(items)),
	})

	cancelled, failedPaths, err := e.embedAndInsert(ctx, items, len(toReindex), emit, token)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return err
	}
	if cancelled {
		emit(Event{
			Type:        EventCancelled,
			IsCancelled: true,
			TotalChunks: len(items),
			TotalFiles:  len(toReindex),
		})
		return nil
	}

	failedPaths = append(failedPaths, failedFiles...)
	if len(failedPaths) > 0 {
		distinct := distinctSorted(failedPaths)
		emit(Event{
			Type:    EventWarning,
			Message: fmt.Sprintf("failed to index %d files: %v", len(distinct), distinct),
		})
		indexErr := semerrors.IndexingError(
			fmt.Sprintf("%d files failed to index", len(distinct)), nil).
			WithDetail("paths", fmt.Sprintf("%v", distinct))
		emit(Event{
			Type:        EventError,
			Message:     indexErr.Error(),
			TotalChunks: len(items),
			TotalFiles:  len(toReindex),
		})
		return indexErr
	}

	emit(Event{
		Type:            EventComplete,
		CompletedChunks: len(items),
		TotalChunks:     len(items),
		TotalFiles:      len(toReindex),
		CompletedFiles:  len(toReindex),
		Percentage:      percentage(len(items), len(items)),
	})
	slog.Info("index_complete",
		slog.Int("files", len(toReindex)),
		slog.Int("chunks", len(items)),
		slog.Int("skipped", len(skipped)),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

// prune deletes rows for indexed paths that no longer exist or no longer
// match the patterns. The candidate set comes from the store rather than
// the scan: paths the scan never saw still need their rows checked.
func (e *Engine) prune(ctx context.Context) error {
	indexed, err := e.deps.Store.IndexedPaths(ctx)
	if err != nil {
		return err
	}
	if len(indexed) == 0 {
		return nil
	}
	return e.deps.Store.DeleteAbsent(ctx, e.deps.Scanner.Existing(indexed))
}

// diff selects the files needing (re)indexing: on-disk mtime newer than the
// stored one, or not in the store at all. Empty files are diverted to the
// skipped list, including files truncated to empty after being indexed.
func (e *Engine) diff(ctx context.Context, files []scanner.FileInfo, reindexAll bool) ([]scanner.FileInfo, []skippedFile, error) {
	var toReindex []scanner.FileInfo
	var skipped []skippedFile

	var stored map[string]int64
	if !reindexAll {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		var err error
		stored, err = e.deps.Store.MTimes(ctx, paths)
		if err != nil {
			return nil, nil, err
		}
	}

	for _, f := range files {
		if f.Size == 0 {
			// New empty file, or a file truncated since its rows were
			// written. An unchanged marker is left alone.
			if mt, ok := stored[f.Path]; !ok || f.MTimeMS > mt {
				skipped = append(skipped, skippedFile{
					path: f.Path, mtime: f.MTimeMS, reason: "empty file",
				})
			}
			continue
		}
		if reindexAll {
			toReindex = append(toReindex, f)
			continue
		}
		if mt, ok := stored[f.Path]; !ok || f.MTimeMS > mt {
			toReindex = append(toReindex, f)
		}
	}
	return toReindex, skipped, nil
}

// readAndChunk reads each file and runs extraction and chunking. Files
// that are empty after extraction are skipped; unreadable files are
// recorded as failures.
func (e *Engine) readAndChunk(files []scanner.FileInfo, emit func(Event)) ([]*workItem, []skippedFile, []string) {
	var items []*workItem
	var skipped []skippedFile
	var failed []string

	for i, f := range files {
		raw, err := os.ReadFile(filepath.Join(e.deps.Root, filepath.FromSlash(f.Path)))
		if err != nil {
			slog.Warn("file_read_failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			failed = append(failed, f.Path)
			continue
		}

		text := e.deps.Extractor.Extract(string(raw), f.Path)
		chunks := e.deps.Chunker.Split(text)
		if len(chunks) == 0 {
			skipped = append(skipped, skippedFile{
				path: f.Path, mtime: f.MTimeMS, size: f.Size,
				reason: "no indexable content after extraction",
			})
			continue
		}

		for _, c := range chunks {
			items = append(items, &workItem{path: f.Path, mtime: f.MTimeMS, chunk: c})
		}

		emit(Event{
			Type:           EventProgress,
			TotalFiles:     len(files),
			CompletedFiles: i + 1,
			CurrentFile:    f.Path,
			Message:        "chunking",
		})
	}
	return items, skipped, failed
}

// recordSkipped inserts one zero-vector marker row per skipped file so the
// file is not re-processed on every run.
func (e *Engine) recordSkipped(ctx context.Context, skipped []skippedFile) error {
	if len(skipped) == 0 {
		return nil
	}

	rows := make([]store.Row, len(skipped))
	for i, sf := range skipped {
		rows[i] = store.Row{
			Path:      sf.path,
			MTime:     sf.mtime,
			Content:   store.SkippedContent(sf.reason),
			Embedding: make([]float32, e.deps.Dimension),
			Metadata: store.Metadata{
				Skipped:      true,
				Reason:       sf.reason,
				OriginalSize: sf.size,
			},
		}
	}
	return e.deps.Store.InsertBatch(ctx, rows)
}

// embedAndInsert runs the batched embedding loop. Within a batch, chunks
// embed concurrently under the retry policy; the batch's rows are inserted
// only after every dispatched embedding returned. Cancellation is checked
// before each batch, before each embedding call, and after each batch;
// a partial batch is dropped, never inserted.
func (e *Engine) embedAndInsert(ctx context.Context, items []*workItem, totalFiles int, emit func(Event), token *CancelToken) (cancelled bool, failedPaths []string, err error) {
	total := len(items)
	thr := newThrottle(throttleInterval)

	var mu sync.Mutex
	completed := 0

	for start := 0; start < total; start += batchSize {
		if token.IsCancelled() {
			return true, nil, nil
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		batch := items[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range batch {
			item := item
			g.Go(func() error {
				if token.IsCancelled() {
					item.skipped = true
					return nil
				}

				retryCfg := e.retry
				retryCfg.OnWait = func(attempt int, delay time.Duration) {
					mu.Lock()
					done := completed
					mu.Unlock()
					emit(Event{
						Type:            EventProgress,
						CompletedChunks: done,
						TotalChunks:     total,
						TotalFiles:      totalFiles,
						CurrentFile:     item.path,
						WaitingForRate:  true,
						Percentage:      percentage(done, total),
						Message:         fmt.Sprintf("retrying in %s (attempt %d)", delay, attempt),
					})
				}

				embedErr := embed.WithRetry(gctx, retryCfg, func() error {
					if token.IsCancelled() {
						return context.Canceled
					}
					vec, err := e.deps.Embedder.Embed(gctx, item.chunk.Content)
					if err != nil {
						return err
					}
					item.vector = vec
					return nil
				})

				if embedErr != nil {
					if token.IsCancelled() || gctx.Err() != nil {
						item.skipped = true
						return nil
					}
					slog.Warn("chunk_embed_failed",
						slog.String("path", item.path),
						slog.String("error", embedErr.Error()))
					item.failed = true
					return nil
				}

				mu.Lock()
				completed++
				done := completed
				mu.Unlock()

				if thr.allow() {
					emit(Event{
						Type:            EventProgress,
						CompletedChunks: done,
						TotalChunks:     total,
						TotalFiles:      totalFiles,
						CurrentFile:     item.path,
						Percentage:      percentage(done, total),
					})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return false, nil, semerrors.IndexingError("embedding batch failed", err)
		}

		if token.IsCancelled() {
			return true, nil, nil
		}

		var rows []store.Row
		for _, item := range batch {
			if item.failed {
				failedPaths = append(failedPaths, item.path)
				continue
			}
			if item.vector == nil {
				continue
			}
			rows = append(rows, store.Row{
				Path:      item.path,
				MTime:     item.mtime,
				Content:   item.chunk.Content,
				Embedding: item.vector,
				Metadata: store.Metadata{
					StartLine: item.chunk.StartLine,
					EndLine:   item.chunk.EndLine,
				},
			})
		}
		if err := e.deps.Store.InsertBatch(ctx, rows); err != nil {
			return false, failedPaths, err
		}

		mu.Lock()
		done := completed
		mu.Unlock()
		emit(Event{
			Type:            EventProgress,
			CompletedChunks: done,
			TotalChunks:     total,
			TotalFiles:      totalFiles,
			Percentage:      percentage(done, total),
		})

		if end < total {
			select {
			case <-ctx.Done():
				return false, failedPaths, ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}
	}

	return false, failedPaths, nil
}

// emitter wraps the caller's callback so every event also lands in the
// progress report with a timestamp.
func (e *Engine) emitter(progress ProgressFunc) func(Event) {
	return func(ev Event) {
		ev.Timestamp = time.Now()
		if e.deps.Reporter != nil {
			e.deps.Reporter.Append(report.Line{
				Timestamp: ev.Timestamp,
				Type:      string(ev.Type),
				Data:      ev,
			})
		}
		if progress != nil {
			progress(ev)
		}
	}
}

func distinctSorted(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
