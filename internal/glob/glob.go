// Package glob implements the pattern matching used by the scanner and the
// retrieval scope filter. Patterns use forward slashes and support '*'
// (within a segment), '?', and '**' (any number of segments).
package glob

import "strings"

// Match reports whether the slash-separated path matches the pattern.
// Both are split on '/' and matched segment-wise; '**' matches zero or
// more whole segments.
func Match(pattern, path string) bool {
	return matchSegments(splitSegments(pattern), splitSegments(path))
}

// MatchAny reports whether the path matches at least one pattern.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if Match(p, path) {
			return true
		}
	}
	return false
}

// FolderPattern converts a folder-scope value into a glob pattern:
//   - values containing '*' are used verbatim,
//   - values starting with '/' are anchored at the workspace root,
//   - bare names match the folder at any depth.
func FolderPattern(folder string) string {
	if strings.Contains(folder, "*") {
		return folder
	}
	if strings.HasPrefix(folder, "/") {
		return strings.TrimPrefix(folder, "/") + "/**"
	}
	return "**/" + folder + "/**"
}

func splitSegments(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// matchSegments matches pattern segments against path segments, handling
// '**' by trying every possible consumption length.
func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	if pattern[0] == "**" {
		// '**' may swallow zero or more leading path segments.
		for skip := 0; skip <= len(path); skip++ {
			if matchSegments(pattern[1:], path[skip:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}

	if !matchSegment(pattern[0], path[0]) {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// matchSegment matches a single pattern segment against a single path
// segment. Supports '*' and '?'.
func matchSegment(pattern, segment string) bool {
	// Fast paths for the common cases.
	if pattern == "*" {
		return true
	}
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == segment
	}

	return matchWildcard(pattern, segment)
}

// matchWildcard is a backtracking matcher for '*' and '?' within a segment.
func matchWildcard(pattern, s string) bool {
	var pi, si int
	star := -1
	mark := 0

	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
