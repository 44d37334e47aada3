// Package collect builds the medical corpus from external sources, primarily
// the PubMed E-utilities API.
package collect

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// minContentLength rejects abstracts too short to be useful.
	minContentLength = 100

	// minAlphaRatio rejects content that is mostly markup or numbers.
	minAlphaRatio = 0.6
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialRe    = regexp.MustCompile(`[^\p{L}\p{N}\s,.!?;:()\-']`)
)

// CleanText normalizes scraped or fetched text: collapses whitespace, strips
// problematic special characters, and normalizes apostrophes.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	// Fold curly apostrophes before the strip, which would remove them.
	text = strings.ReplaceAll(text, "’", "'")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// ValidateContent reports whether cleaned content is usable: long enough and
// mostly letters.
func ValidateContent(content string, minLength int) bool {
	if minLength <= 0 {
		minLength = minContentLength
	}

	runes := []rune(content)
	if len(runes) < minLength {
		return false
	}

	alpha := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			alpha++
		}
	}

	return float64(alpha)/float64(len(runes)) >= minAlphaRatio
}
