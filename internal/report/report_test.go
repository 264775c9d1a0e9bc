package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestPath_Layout(t *testing.T) {
	// Given: an explicit directory
	got := Path("/tmp/reports", "abc123")
	assert.Equal(t, filepath.Join("/tmp/reports", "index-abc123.jsonl"), got)

	// And: the default directory when none is given
	assert.True(t, strings.HasPrefix(Path("", "abc123"), DefaultDir()))
}

func TestNew_TruncatesPreviousRun(t *testing.T) {
	// Given: a report file with stale content
	dir := t.TempDir()
	path := Path(dir, "ws1")
	require.NoError(t, os.WriteFile(path, []byte("stale line\n"), 0o644))

	// When: creating a reporter
	r := New(dir, "ws1")

	// Then: the file starts empty
	assert.Equal(t, path, r.FilePath())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestAppend_WritesOneJSONObjectPerLine(t *testing.T) {
	// Given: a fresh reporter
	dir := t.TempDir()
	r := New(dir, "ws1")

	// When: appending two events
	r.Append(Line{Timestamp: time.Now(), Type: "start", Data: map[string]any{"total_files": 3}})
	r.Append(Line{Timestamp: time.Now(), Type: "complete", Data: map[string]any{"percentage": 100}})

	// Then: each line is a standalone JSON object with the expected shape
	lines := readLines(t, r.FilePath())
	require.Len(t, lines, 2)

	var first Line
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "start", first.Type)
	assert.False(t, first.Timestamp.IsZero())

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "complete", second["type"])
	assert.Contains(t, second, "data")
}

func TestAppend_DisablesAfterFailureWithoutError(t *testing.T) {
	// Given: a reporter whose directory cannot be created
	r := New(filepath.Join(string(os.PathSeparator), "dev", "null", "impossible"), "ws1")

	// When: appending
	// Then: the call is a silent no-op
	r.Append(Line{Type: "start"})
	r.Append(Line{Type: "progress"})
}

func TestNew_CreatesMissingDirectory(t *testing.T) {
	// Given: a nested directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "a", "b")

	// When: creating a reporter and appending
	r := New(dir, "ws1")
	r.Append(Line{Type: "start", Timestamp: time.Now()})

	// Then: the file exists with one line
	assert.Len(t, readLines(t, r.FilePath()), 1)
}
