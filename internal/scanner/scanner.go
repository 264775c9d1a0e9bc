// Package scanner walks a workspace tree and reports the regular files
// eligible for indexing.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/semdex/semdex/internal/glob"
)

// FileInfo describes one candidate file.
type FileInfo struct {
	// Path is workspace-relative with forward slashes.
	Path string

	// MTimeMS is the modification time in milliseconds since epoch.
	MTimeMS int64

	// Size is the file size in bytes.
	Size int64
}

// Scanner walks a workspace applying include and exclude glob patterns.
type Scanner struct {
	root    string
	include []string
	exclude []string
}

// New creates a scanner rooted at the given absolute workspace path.
func New(root string, include, exclude []string) *Scanner {
	return &Scanner{root: root, include: include, exclude: exclude}
}

// Scan walks the tree and returns every regular file matching at least one
// include pattern and no exclude pattern. Hidden files and directories are
// skipped. Unreadable subtrees are logged and skipped, not fatal.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan_skip", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if path != s.root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != s.root && glob.MatchAny(s.exclude, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !s.Matches(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			slog.Warn("scan_stat_failed", slog.String("path", rel), slog.String("error", infoErr.Error()))
			return nil
		}

		files = append(files, FileInfo{
			Path:    rel,
			MTimeMS: info.ModTime().UnixMilli(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Matches reports whether a workspace-relative path passes the include and
// exclude patterns.
func (s *Scanner) Matches(rel string) bool {
	if glob.MatchAny(s.exclude, rel) {
		return false
	}
	return glob.MatchAny(s.include, rel)
}

// Existing returns the subset of workspace-relative paths that still exist
// as regular files and still pass the patterns.
func (s *Scanner) Existing(paths []string) []string {
	var out []string
	for _, rel := range paths {
		if !s.Matches(rel) {
			continue
		}
		info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, rel)
	}
	return out
}
