// Package report maintains the append-only progress log for a workspace:
// one JSON object per line at a well-known temporary location, so external
// tooling can tail a run without talking to the server.
package report

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Line is the JSON shape of one report entry. Readers must tolerate
// unknown fields inside Data.
type Line struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
}

// Reporter appends progress events to the workspace's report file. Writes
// never block or fail indexing: append failures are swallowed after a
// single warning.
type Reporter struct {
	path string
	lock *flock.Flock

	mu     sync.Mutex
	warned bool
	broken bool
}

// DefaultDir returns the directory holding report files.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "semdex")
}

// Path returns the report file location for a workspace.
func Path(dir, workspaceID string) string {
	if dir == "" {
		dir = DefaultDir()
	}
	return filepath.Join(dir, "index-"+workspaceID+".jsonl")
}

// New creates a reporter and truncates the report file so each run starts
// with a clean record. A sibling lock file guards against interleaved
// writes from concurrent processes.
func New(dir, workspaceID string) *Reporter {
	path := Path(dir, workspaceID)
	r := &Reporter{
		path: path,
		lock: flock.New(path + ".lock"),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.disable("failed to create report directory", err)
		return r
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		r.disable("failed to truncate report file", err)
	}
	return r
}

// Append writes one event as a JSON line. Failures disable the reporter
// for the rest of the run.
func (r *Reporter) Append(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broken {
		return
	}

	line, err := json.Marshal(event)
	if err != nil {
		r.disableLocked("failed to marshal report event", err)
		return
	}

	locked, err := r.lock.TryLock()
	if err == nil && locked {
		defer func() { _ = r.lock.Unlock() }()
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		r.disableLocked("failed to open report file", err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		r.disableLocked("failed to append report event", err)
	}
}

// FilePath returns the report file location.
func (r *Reporter) FilePath() string {
	return r.path
}

func (r *Reporter) disable(msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disableLocked(msg, err)
}

func (r *Reporter) disableLocked(msg string, err error) {
	r.broken = true
	if !r.warned {
		r.warned = true
		slog.Warn("progress_report_disabled",
			slog.String("path", r.path),
			slog.String("reason", msg),
			slog.String("error", err.Error()))
	}
}
