package index

import (
	"context"
	"sync"
	"time"

	semerrors "github.com/semdex/semdex/internal/errors"
)

// RunState describes what the manager is currently doing.
type RunState string

const (
	StateIdle     RunState = "idle"
	StateIndexing RunState = "indexing"
)

// Snapshot is a point-in-time view of the manager for status reporting.
type Snapshot struct {
	State      RunState   `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LastEvent  *Event     `json:"last_event,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Manager is the intra-process concurrency gate in front of the Engine:
// at most one indexing run at a time, a second request is rejected with a
// typed busy error instead of queueing. Runs execute on a background
// goroutine detached from the request context so a closed control
// connection does not abort indexing.
type Manager struct {
	engine *Engine
	token  *CancelToken

	// baseCtx bounds all runs to the server lifetime.
	baseCtx context.Context

	busy sync.Mutex

	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	finishedAt *time.Time
	lastEvent  *Event
	lastError  string
}

// NewManager creates a manager bound to the server lifetime context.
func NewManager(baseCtx context.Context, engine *Engine) *Manager {
	return &Manager{
		engine:  engine,
		token:   NewCancelToken(),
		baseCtx: baseCtx,
	}
}

// StartUpdate begins an index update in the background. If a run is
// already active it returns the busy error immediately; requests never
// queue.
func (m *Manager) StartUpdate(opts Options) error {
	if !m.busy.TryLock() {
		return semerrors.BusyError()
	}

	m.token.Reset()

	m.mu.Lock()
	m.running = true
	m.startedAt = time.Now()
	m.finishedAt = nil
	m.lastError = ""
	m.mu.Unlock()

	go func() {
		defer m.busy.Unlock()

		err := m.engine.Update(m.baseCtx, opts, m.recordEvent, m.token)

		m.mu.Lock()
		now := time.Now()
		m.running = false
		m.finishedAt = &now
		if err != nil {
			m.lastError = err.Error()
		}
		m.mu.Unlock()
	}()

	return nil
}

// Update runs an index update synchronously, holding the busy gate for the
// duration. Used by the one-shot CLI path.
func (m *Manager) Update(ctx context.Context, opts Options, progress ProgressFunc) error {
	if !m.busy.TryLock() {
		return semerrors.BusyError()
	}
	defer m.busy.Unlock()

	m.token.Reset()

	m.mu.Lock()
	m.running = true
	m.startedAt = time.Now()
	m.finishedAt = nil
	m.lastError = ""
	m.mu.Unlock()

	err := m.engine.Update(ctx, opts, func(ev Event) {
		m.recordEvent(ev)
		if progress != nil {
			progress(ev)
		}
	}, m.token)

	m.mu.Lock()
	now := time.Now()
	m.running = false
	m.finishedAt = &now
	if err != nil {
		m.lastError = err.Error()
	}
	m.mu.Unlock()

	return err
}

// Cancel requests cancellation of the active run. Returns false when no
// run is active.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	if !running {
		return false
	}
	m.token.Cancel()
	return true
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status returns a point-in-time view of the manager.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:      StateIdle,
		FinishedAt: m.finishedAt,
		LastError:  m.lastError,
	}
	if m.running {
		snap.State = StateIndexing
	}
	if !m.startedAt.IsZero() {
		t := m.startedAt
		snap.StartedAt = &t
	}
	if m.lastEvent != nil {
		ev := *m.lastEvent
		snap.LastEvent = &ev
	}
	return snap
}

// recordEvent keeps the most recent event for status queries.
func (m *Manager) recordEvent(ev Event) {
	m.mu.Lock()
	m.lastEvent = &ev
	m.mu.Unlock()
}
