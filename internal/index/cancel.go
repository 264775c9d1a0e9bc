package index

import "sync/atomic"

// CancelToken is the cooperative cancellation flag shared between the
// control surface and a running index update. It is safe for concurrent
// use and reusable across runs via Reset.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken creates a token in the not-cancelled state.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel requests cancellation. Idempotent.
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether cancellation was requested.
func (t *CancelToken) IsCancelled() bool {
	return t.cancelled.Load()
}

// Reset returns the token to the not-cancelled state for the next run.
func (t *CancelToken) Reset() {
	t.cancelled.Store(false)
}
