package chunk

import (
	"regexp"
	"strings"
)

var (
	excessNewlinesRe = regexp.MustCompile(`\n{4,}`)
	horizontalWSRe   = regexp.MustCompile(`[ \t]+`)
)

// Sanitize normalizes extracted text: NUL bytes removed, line endings
// normalized to \n, runs of 4+ newlines collapsed to 3, horizontal
// whitespace runs collapsed to single spaces with newlines preserved, and
// the result trimmed.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessNewlinesRe.ReplaceAllString(text, "\n\n\n")
	text = horizontalWSRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
