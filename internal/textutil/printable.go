// Package textutil holds small text helpers shared by pagination and the
// status line.
package textutil

import (
	"strings"
	"unicode"
)

// Printable turns text into one terminal-safe line. Whitespace runs collapse
// to a single space, control runes become '?' and invisible format runes
// (bidi overrides, zero-width joiners, soft hyphens) become '·' so a file
// name or note cannot reorder or hide what the status line shows.
func Printable(text string) string {
	if isPlain(text) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		case unicode.IsControl(r):
			b.WriteByte('?')
		case unicode.Is(unicode.Cf, r):
			b.WriteRune('·')
		default:
			b.WriteRune(r)
		}
		space = false
	}
	return b.String()
}

func isPlain(text string) bool {
	for _, r := range text {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return false
		}
	}
	return true
}
