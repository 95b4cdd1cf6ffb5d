// Package htmlsanitize cleans user-written text (join-request messages,
// manual notes) before it is stored. Stored text is always plain: markup is
// stripped, not escaped.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag, unescapes entities, and trims surrounding
// whitespace. Line breaks inside the text are kept.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	cleaned := html.UnescapeString(strict.Sanitize(s))
	lines := strings.Split(cleaned, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}
