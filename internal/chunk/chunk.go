// Package chunk splits extracted document text into overlapping character
// windows suitable for embedding.
//
// The splitter is deterministic: the same text with the same settings always
// yields the same chunks with the same line attribution.
package chunk

import (
	"log/slog"
	"strings"
)

// Default splitter parameters.
const (
	// DefaultSize is the target chunk size in characters.
	DefaultSize = 1000

	// DefaultOverlap is the character overlap between adjacent chunks.
	DefaultOverlap = 200
)

// separators is the preference list for the recursive splitter, from most
// to least structural. The empty string splits at the character level.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one embedding unit produced from a source file.
type Chunk struct {
	// Content is the chunk text as it will be embedded.
	Content string

	// StartLine and EndLine are 1-based inclusive line numbers in the
	// original source text.
	StartLine int
	EndLine   int
}

// Chunker splits text into overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a splitter with the given target size and overlap.
// Invalid values fall back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks the text and attributes line ranges. Chunks that are empty
// after trimming, contain NUL bytes, or blew past twice the target size are
// dropped.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.splitRecursive(text, separators)

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		if strings.ContainsRune(trimmed, '\x00') {
			continue
		}
		if len(trimmed) > 2*c.size {
			slog.Warn("oversized_chunk_dropped",
				slog.Int("length", len(trimmed)),
				slog.Int("limit", 2*c.size))
			continue
		}

		start, end := locateLines(text, piece)
		chunks = append(chunks, Chunk{
			Content:   trimmed,
			StartLine: start,
			EndLine:   end,
		})
	}
	return chunks
}

// splitRecursive is a recursive character splitter: it splits on the first
// separator present in the text, recurses into oversized fragments with the
// remaining separators, and merges fragments back into windows of roughly
// the target size with overlap. Separators are retained so newline
// structure survives.
func (c *Chunker) splitRecursive(text string, seps []string) []string {
	if text == "" {
		return nil
	}

	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	fragments := splitRetain(text, sep, c.size)

	// Fragments small enough are merge candidates; oversized ones are
	// split further with the finer separators first.
	var candidates []string
	for _, f := range fragments {
		if len(f) <= c.size || len(rest) == 0 {
			candidates = append(candidates, f)
		} else {
			candidates = append(candidates, c.splitRecursive(f, rest)...)
		}
	}

	return c.merge(candidates)
}

// splitRetain splits text on sep, keeping the separator attached to the
// preceding fragment. An empty separator splits into limit-bounded runs.
func splitRetain(text, sep string, limit int) []string {
	if sep == "" {
		var out []string
		for len(text) > 0 {
			n := len(text)
			if n > limit {
				n = limit
			}
			out = append(out, text[:n])
			text = text[n:]
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge joins fragments into windows close to the target size, carrying
// overlap characters worth of trailing fragments into the next window.
func (c *Chunker) merge(fragments []string) []string {
	var out []string
	var window []string
	var windowLen int

	flush := func() {
		if len(window) == 0 {
			return
		}
		out = append(out, strings.Join(window, ""))

		// Retain trailing fragments up to the overlap budget.
		var kept []string
		var keptLen int
		for i := len(window) - 1; i >= 0; i-- {
			if keptLen+len(window[i]) > c.overlap {
				break
			}
			kept = append([]string{window[i]}, kept...)
			keptLen += len(window[i])
		}
		window = kept
		windowLen = keptLen
	}

	for _, f := range fragments {
		if windowLen+len(f) > c.size && windowLen > 0 {
			flush()
		}
		window = append(window, f)
		windowLen += len(f)
	}
	if windowLen > 0 {
		out = append(out, strings.Join(window, ""))
	}
	return out
}

// locateLines finds the first occurrence of the chunk in the original text
// and returns its 1-based inclusive line range. Duplicate content resolves
// to the first occurrence. Content not found verbatim (trimmed boundaries)
// anchors on its first non-empty line.
func locateLines(text, piece string) (startLine, endLine int) {
	trimmed := strings.TrimSpace(piece)

	idx := strings.Index(text, piece)
	if idx < 0 {
		idx = strings.Index(text, trimmed)
	}
	if idx < 0 {
		for _, line := range strings.Split(trimmed, "\n") {
			if l := strings.TrimSpace(line); l != "" {
				idx = strings.Index(text, l)
				break
			}
		}
	}
	if idx < 0 {
		idx = 0
	}

	startLine = 1 + strings.Count(text[:idx], "\n")
	endLine = startLine + strings.Count(trimmed, "\n")
	return startLine, endLine
}
