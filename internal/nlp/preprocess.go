package nlp

import (
	"regexp"
	"strings"
)

const maxCleanLen = 4000

var (
	reCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	reURL        = regexp.MustCompile(`https?://\S+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// CleanText strips fenced code blocks and URLs, collapses whitespace and
// clips the result to 4000 characters. Idempotent; empty input stays empty.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = reCodeBlock.ReplaceAllString(s, " ")
	s = reURL.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxCleanLen {
		s = s[:maxCleanLen]
	}
	return s
}
