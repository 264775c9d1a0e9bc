package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelToken_Lifecycle(t *testing.T) {
	// Given: a fresh token
	token := NewCancelToken()
	assert.False(t, token.IsCancelled())

	// When: cancelled
	token.Cancel()
	assert.True(t, token.IsCancelled())

	// Then: cancelling again is idempotent
	token.Cancel()
	assert.True(t, token.IsCancelled())

	// And: reset arms it for the next run
	token.Reset()
	assert.False(t, token.IsCancelled())
}
