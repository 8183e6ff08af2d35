package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketChars    = regexp.MustCompile(`[()\[\]{}]`)
	disallowedChars = regexp.MustCompile(`[^\w\s/\-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// NormalizeHeader canonicalizes header text for matching only; source headers
// are never rewritten. Compatibility forms are folded, the text is lowercased,
// brackets and punctuation outside word characters, space, slash and hyphen
// are stripped, and whitespace runs collapse to one space.
//
// Whitespace is collapsed after stripping so the result is a fixed point:
// NormalizeHeader(NormalizeHeader(h)) == NormalizeHeader(h).
func NormalizeHeader(h string) string {
	s := norm.NFKC.String(h)
	s = strings.ToLower(s)
	s = bracketChars.ReplaceAllString(s, "")
	s = disallowedChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
