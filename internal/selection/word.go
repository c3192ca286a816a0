package selection

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// WordBounds returns the [start, end) character range of the word that
// contains index, using Unicode word segmentation. ok is false when index
// falls on whitespace or punctuation.
func WordBounds(text string, index int) (start, end int, ok bool) {
	if index < 0 {
		return 0, 0, false
	}
	pos := 0
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		n := utf8.RuneCountInString(word)
		if index < pos+n {
			if !hasWordRune(word) {
				return 0, 0, false
			}
			return pos, pos + n, true
		}
		pos += n
	}
	return 0, 0, false
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// SelectWordAt selects the word under index on page, the long-press gesture.
func (m *Model) SelectWordAt(page, index int) bool {
	if !m.validPage(page) {
		return false
	}
	t := m.text(page)
	if t == nil {
		return false
	}
	start, end, ok := WordBounds(t.Content, index)
	if !ok {
		return false
	}
	return m.SetSelection(page, start, end)
}
