package textutil

import (
	"strings"

	"github.com/rivo/uniseg"
)

const DefaultTabWidth = 4

// ExpandTabs replaces tabs with spaces up to the next stop. Columns count
// grapheme cluster widths and restart after every newline.
func ExpandTabs(text string, tabWidth int) string {
	if tabWidth <= 0 || !strings.ContainsRune(text, '\t') {
		return text
	}
	var b strings.Builder
	column := 0
	state := -1
	rest := text
	for len(rest) > 0 {
		var cluster string
		var width int
		cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
		switch cluster {
		case "\t":
			pad := tabWidth - column%tabWidth
			b.WriteString(strings.Repeat(" ", pad))
			column += pad
		case "\n", "\r\n":
			b.WriteString(cluster)
			column = 0
		default:
			b.WriteString(cluster)
			column += width
		}
	}
	return b.String()
}
