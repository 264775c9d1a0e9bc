package index

import (
	"sync"
	"time"
)

// EventType classifies progress events.
type EventType string

const (
	EventStart     EventType = "start"
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventCancelled EventType = "cancelled"
	EventError     EventType = "error"
	EventWarning   EventType = "warning"
)

// Event is one progress notification from a running index update. It is
// delivered to the caller's callback and appended to the progress report.
type Event struct {
	Type            EventType `json:"type"`
	CompletedChunks int       `json:"completed_chunks"`
	TotalChunks     int       `json:"total_chunks"`
	TotalFiles      int       `json:"total_files"`
	CompletedFiles  int       `json:"completed_files"`
	CurrentFile     string    `json:"current_file,omitempty"`
	WaitingForRate  bool      `json:"waiting_for_rate_limit,omitempty"`
	IsCancelled     bool      `json:"is_cancelled,omitempty"`
	Percentage      int       `json:"percentage"`
	Message         string    `json:"message,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ProgressFunc receives progress events. It is called from the indexing
// goroutine and must not block.
type ProgressFunc func(Event)

// percentage computes floor(100*done/total), zero when total is zero.
func percentage(done, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * done / total
}

// throttle limits per-chunk progress emissions to one per interval.
// Terminal and batch-boundary events bypass it.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

// allow reports whether an event may be emitted now, consuming the slot.
func (t *throttle) allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
