// Package sanitize cleans free text arriving from lead sources before it is
// stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, decodes entities and removes any tag the decoding
// revealed.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = htmlTagRegex.ReplaceAllString(html.UnescapeString(result), "")
	return strings.TrimSpace(result)
}

// Line strips HTML and collapses whitespace runs, newlines included, to one
// space. Used for single-line fields such as names and sub-sources.
func Line(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}
