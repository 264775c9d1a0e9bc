package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func paths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScan_AppliesIncludeAndExcludePatterns(t *testing.T) {
	// Given: a tree with markdown, text, and code files
	root := t.TempDir()
	writeFile(t, root, "README.md", "readme")
	writeFile(t, root, "docs/guide.md", "guide")
	writeFile(t, root, "docs/notes.txt", "notes")
	writeFile(t, root, "src/main.go", "code")
	writeFile(t, root, "node_modules/pkg/doc.md", "vendored")

	s := New(root,
		[]string{"**/*.md", "**/*.txt"},
		[]string{"**/node_modules/**"})

	// When: scanning
	files, err := s.Scan()
	require.NoError(t, err)

	// Then: only included, non-excluded files are returned
	got := paths(files)
	assert.ElementsMatch(t, []string{"README.md", "docs/guide.md", "docs/notes.txt"}, got)
}

func TestScan_SkipsHiddenFilesAndDirectories(t *testing.T) {
	// Given: hidden entries next to visible ones
	root := t.TempDir()
	writeFile(t, root, "visible.md", "v")
	writeFile(t, root, ".hidden.md", "h")
	writeFile(t, root, ".git/objects/a.md", "g")

	s := New(root, []string{"**/*.md"}, nil)

	// When: scanning
	files, err := s.Scan()
	require.NoError(t, err)

	// Then: hidden files and everything under hidden dirs are absent
	assert.Equal(t, []string{"visible.md"}, paths(files))
}

func TestScan_ReportsMTimeAndSize(t *testing.T) {
	// Given: a file with known content
	root := t.TempDir()
	writeFile(t, root, "a.md", "12345")

	s := New(root, []string{"**/*.md"}, nil)

	// When: scanning
	files, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Then: size and a positive mtime are reported
	assert.Equal(t, int64(5), files[0].Size)
	assert.Positive(t, files[0].MTimeMS)
}

func TestScan_EmptyTreeYieldsNothing(t *testing.T) {
	s := New(t.TempDir(), []string{"**/*.md"}, nil)

	files, err := s.Scan()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMatches_ExcludeWinsOverInclude(t *testing.T) {
	// Given: a path matching both lists
	s := New("/ws", []string{"**/*.md"}, []string{"drafts/**"})

	// Then: exclusion takes precedence
	assert.False(t, s.Matches("drafts/idea.md"))
	assert.True(t, s.Matches("docs/idea.md"))
}

func TestExisting_FiltersDeletedAndNonMatching(t *testing.T) {
	// Given: one surviving file, one deleted, one now excluded
	root := t.TempDir()
	writeFile(t, root, "keep.md", "k")
	writeFile(t, root, "drafts/tmp.md", "t")

	s := New(root, []string{"**/*.md"}, []string{"drafts/**"})

	// When: checking previously indexed paths
	got := s.Existing([]string{"keep.md", "gone.md", "drafts/tmp.md"})

	// Then: only the surviving, still-matching path remains
	assert.Equal(t, []string{"keep.md"}, got)
}
