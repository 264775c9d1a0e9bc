package workspace

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_IsDeterministic(t *testing.T) {
	// Given: the same path twice
	dir := t.TempDir()

	// When: deriving the workspace identifier
	id1, err := ID(dir)
	require.NoError(t, err)
	id2, err := ID(dir)
	require.NoError(t, err)

	// Then: identical paths produce identical identifiers
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, IDLength)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), id1)
}

func TestID_DiffersForDistinctPaths(t *testing.T) {
	// Given: two distinct directories
	id1, err := ID(t.TempDir())
	require.NoError(t, err)
	id2, err := ID(t.TempDir())
	require.NoError(t, err)

	// Then: identifiers differ
	assert.NotEqual(t, id1, id2)
}

func TestID_IgnoresTrailingSeparator(t *testing.T) {
	// Given: the same directory with and without a trailing separator
	dir := t.TempDir()

	id1, err := ID(dir)
	require.NoError(t, err)
	id2, err := ID(dir + string(filepath.Separator))
	require.NoError(t, err)

	// Then: normalization makes them equal
	assert.Equal(t, id1, id2)
}

func TestNormalize_UsesForwardSlashes(t *testing.T) {
	// When: normalizing a relative path
	norm, err := Normalize(".")
	require.NoError(t, err)

	// Then: the result is absolute with forward slashes and no trailing slash
	assert.True(t, filepath.IsAbs(filepath.FromSlash(norm)))
	assert.NotContains(t, norm, "\\")
	if len(norm) > 1 {
		assert.NotEqual(t, byte('/'), norm[len(norm)-1])
	}
}

func TestLockKey_IsStable(t *testing.T) {
	// Given: a workspace identifier
	const id = "a1b2c3d4e5f60718"

	// When: deriving the lock key twice
	// Then: the key is stable across calls
	assert.Equal(t, LockKey(id), LockKey(id))

	// And: different identifiers land on different keys
	assert.NotEqual(t, LockKey(id), LockKey("ffffffffffffffff"))
}

func TestRelPath_ProducesSlashedRelative(t *testing.T) {
	// Given: a file below the root
	root := "/ws"
	abs := filepath.Join("/ws", "docs", "intro.md")

	// When: relativizing
	rel, err := RelPath(root, abs)
	require.NoError(t, err)

	// Then: the result uses forward slashes
	assert.Equal(t, "docs/intro.md", rel)
}
