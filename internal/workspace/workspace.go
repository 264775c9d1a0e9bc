// Package workspace derives stable identifiers for indexed directory trees.
//
// A workspace is a root directory identified by its normalized absolute path.
// Everything persisted for a workspace is partitioned by the identifier
// derived here, and cross-process serialization uses the advisory lock key.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
)

// IDLength is the number of hex characters in a workspace identifier.
const IDLength = 16

// Normalize converts a path to the canonical form used for identity:
// absolute, forward slashes, no trailing separator.
func Normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	norm := filepath.ToSlash(abs)
	if len(norm) > 1 {
		norm = strings.TrimSuffix(norm, "/")
	}
	return norm, nil
}

// ID derives the workspace identifier from a path: SHA-256 of the
// normalized absolute path, truncated to IDLength hex characters.
// Identical paths always produce identical IDs.
func ID(path string) (string, error) {
	norm, err := Normalize(path)
	if err != nil {
		return "", err
	}
	return idFromNormalized(norm), nil
}

// idFromNormalized hashes an already-normalized path.
func idFromNormalized(norm string) string {
	h := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(h[:])[:IDLength]
}

// LockKey derives the 32-bit advisory lock key for a workspace identifier.
// FNV-1a is stable across processes and platforms, so two processes
// operating on the same workspace always contend on the same key.
func LockKey(workspaceID string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(workspaceID))
	return int32(h.Sum32())
}

// RelPath converts an absolute file path inside the workspace to the
// workspace-relative form stored in chunk rows (forward slashes).
func RelPath(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("failed to relativize path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}
