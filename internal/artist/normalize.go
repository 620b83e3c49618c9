package artist

import (
	"strings"
	"unicode"
)

// Normalize produces the comparison form of an artist name. It is never used
// for display: lowercase, punctuation stripped, whitespace collapsed, the
// word "the" dropped, "&" and "+" folded to "and".
func Normalize(name string) string {
	lowered := strings.ToLower(name)
	lowered = strings.ReplaceAll(lowered, "&", " and ")
	lowered = strings.ReplaceAll(lowered, "+", " and ")

	var b strings.Builder
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Everything else is punctuation and dropped.
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if w == "the" {
			continue
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}
