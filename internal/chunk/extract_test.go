package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MarkdownStripsSyntax(t *testing.T) {
	// Given: markdown with headings, links, emphasis, and inline code
	x := NewExtractor(nil)
	md := "# Title\n\nSome *emphasized* text with [a link](https://example.com) and `code span`.\n"

	// When: extracting
	text := x.Extract(md, "doc.md")

	// Then: prose survives, syntax does not
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "emphasized")
	assert.Contains(t, text, "a link")
	assert.Contains(t, text, "code span")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "](")
	assert.NotContains(t, text, "`")
	assert.NotContains(t, text, "*")
}

func TestExtract_MarkdownExcludedLanguageBlocksDropped(t *testing.T) {
	// Given: fenced blocks with excluded and retained languages
	x := NewExtractor([]string{"go"})
	md := "intro\n\n```go\nfunc secret() {}\n```\n\n```\nplain block text\n```\n\noutro\n"

	// When: extracting
	text := x.Extract(md, "doc.md")

	// Then: the excluded language block is gone, the untagged block stays
	assert.NotContains(t, text, "secret")
	assert.Contains(t, text, "plain block text")
	assert.Contains(t, text, "intro")
	assert.Contains(t, text, "outro")
}

func TestExtract_MarkdownOnlyExcludedBlocksYieldsNothing(t *testing.T) {
	// Given: a file containing only excluded code
	x := NewExtractor([]string{"python"})
	md := "```python\nprint('hi')\n```\n"

	// When: extracting
	// Then: nothing indexable remains
	assert.Empty(t, x.Extract(md, "doc.md"))
}

func TestExtract_HTMLStripsTagsAndScripts(t *testing.T) {
	// Given: an HTML page with scripts, styles, and entities
	x := NewExtractor(nil)
	html := `<html><head><style>body{color:red}</style>
<script>alert("x")</script></head>
<body><h1>Heading</h1><p>A &amp; B &lt;tag&gt;</p></body></html>`

	// When: extracting
	text := x.Extract(html, "page.html")

	// Then: only text content with decoded entities remains
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "A & B <tag>")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_JSONFlattensLeaves(t *testing.T) {
	// Given: a JSON document with mixed leaf types
	x := NewExtractor(nil)
	doc := `{"title":"Guide","count":42,"ok":true,"tags":["a","b"],"nested":{"deep":"value"}}`

	// When: extracting
	text := x.Extract(doc, "data.json")

	// Then: string, number, and boolean leaves appear
	assert.Contains(t, text, "Guide")
	assert.Contains(t, text, "42")
	assert.Contains(t, text, "true")
	assert.Contains(t, text, "value")
	// And: keys and structure are not carried
	assert.NotContains(t, text, "{")
	assert.NotContains(t, text, "nested")
}

func TestExtract_InvalidJSONPassesThrough(t *testing.T) {
	// Given: a .json file that is not valid JSON
	x := NewExtractor(nil)
	text := x.Extract("not json at all", "broken.json")

	// Then: content is treated as plain text
	assert.Equal(t, "not json at all", text)
}

func TestExtract_UnknownExtensionPassesThrough(t *testing.T) {
	x := NewExtractor(nil)
	assert.Equal(t, "raw contents", x.Extract("raw contents", "notes.txt"))
}

func TestSanitize_Normalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"removes NUL bytes", "a\x00b", "ab"},
		{"normalizes CRLF", "a\r\nb\rc", "a\nb\nc"},
		{"collapses newline runs", "a\n\n\n\n\n\nb", "a\n\n\nb"},
		{"collapses horizontal whitespace", "a  \t  b", "a b"},
		{"preserves single newlines", "a\nb", "a\nb"},
		{"trims", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
