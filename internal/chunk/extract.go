package chunk

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxJSONDepth bounds recursion when flattening JSON documents.
const maxJSONDepth = 10

// Extractor converts raw file content to plain text by extension and
// sanitizes the result.
type Extractor struct {
	excludeLangs map[string]bool
}

// NewExtractor creates an extractor. Fenced markdown code blocks whose
// language tag is in excludeLangs are dropped entirely.
func NewExtractor(excludeLangs []string) *Extractor {
	m := make(map[string]bool, len(excludeLangs))
	for _, l := range excludeLangs {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			m[l] = true
		}
	}
	return &Extractor{excludeLangs: m}
}

// Extract returns the sanitized plain text for a file. The extension
// decides the extraction strategy; unknown extensions pass through.
func (x *Extractor) Extract(content, path string) string {
	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		text = x.extractMarkdown(content)
	case ".html", ".htm":
		text = extractHTML(content)
	case ".json":
		text = extractJSON(content)
	default:
		text = content
	}
	return Sanitize(text)
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[^\n]*\n(.*?)```")
	inlineCodeRe  = regexp.MustCompile("`([^`\n]*)`")
	linkRe        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	imageRe       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	emphasisRe    = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
)

// extractMarkdown strips markdown syntax while preserving the prose.
// Fenced blocks with an excluded language tag are removed; untagged blocks
// keep their inner text.
func (x *Extractor) extractMarkdown(content string) string {
	text := fencedBlockRe.ReplaceAllStringFunc(content, func(block string) string {
		m := fencedBlockRe.FindStringSubmatch(block)
		lang := strings.ToLower(m[1])
		if lang != "" && x.excludeLangs[lang] {
			return ""
		}
		// Untagged or retained blocks keep the code text so its line
		// count survives into attribution.
		return m[2]
	})

	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = emphasisRe.ReplaceAllString(text, "$2")
	text = headingRe.ReplaceAllString(text, "")
	return text
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

// htmlEntities is the small fixed set of entities decoded after tag
// stripping.
var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// extractHTML removes script/style blocks, strips tags, and decodes a
// fixed entity set.
func extractHTML(content string) string {
	text := scriptRe.ReplaceAllString(content, "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	for entity, replacement := range htmlEntities {
		text = strings.ReplaceAll(text, entity, replacement)
	}
	return text
}

// extractJSON flattens a JSON document into its scalar leaves. Invalid
// JSON passes through unchanged so it can still be indexed as text.
func extractJSON(content string) string {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return content
	}

	var sb strings.Builder
	flattenJSON(&sb, doc, 0)
	return sb.String()
}

// flattenJSON appends scalar leaves to sb. Map keys are visited in sorted
// order so output is deterministic.
func flattenJSON(sb *strings.Builder, v any, depth int) {
	if depth > maxJSONDepth {
		return
	}

	switch t := v.(type) {
	case string:
		writeLeaf(sb, t)
	case json.Number:
		writeLeaf(sb, t.String())
	case bool:
		writeLeaf(sb, strconv.FormatBool(t))
	case []any:
		for _, item := range t {
			flattenJSON(sb, item, depth+1)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(sb, t[k], depth+1)
		}
	}
}

func writeLeaf(sb *strings.Builder, s string) {
	if s == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(s)
}
