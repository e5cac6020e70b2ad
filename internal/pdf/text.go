package pdf

import (
	"strings"
	"unicode/utf8"
)

// normalizeText prepares extracted text for the .txt fragment. Form feeds are
// reserved as the page separator of merged text, so they become spaces.
func normalizeText(s string, maxChars int) string {
	s = strings.TrimRight(s, "\x00")
	s = strings.ReplaceAll(s, "\f", " ")
	s = strings.ToValidUTF8(s, "�")

	if maxChars > 0 && utf8.RuneCountInString(s) > maxChars {
		n := 0
		for i := range s {
			if n == maxChars {
				return s[:i]
			}
			n++
		}
	}
	return s
}
