package render

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

func (r *Renderer) runeWidth(ru rune) int {
	if w, ok := r.widths[ru]; ok {
		return w
	}
	w := max(runewidth.RuneWidth(ru), 0)
	if r.widths == nil {
		r.widths = make(map[rune]int)
	}
	r.widths[ru] = w
	return w
}

func (r *Renderer) measureTextWidth(text string) int {
	width := 0
	for _, ru := range text {
		width += r.runeWidth(ru)
	}
	return width
}

// takeWidth returns the longest run of runes, from the front or from the
// back, that fits in limit cells.
func (r *Renderer) takeWidth(runes []rune, limit int, fromEnd bool) []rune {
	width := 0
	for n := range runes {
		i := n
		if fromEnd {
			i = len(runes) - 1 - n
		}
		width += r.runeWidth(runes[i])
		if width > limit {
			if fromEnd {
				return runes[i+1:]
			}
			return runes[:i]
		}
	}
	return runes
}

// truncateTextToWidth cuts text to maxWidth cells, ending with an ellipsis
// when anything was dropped.
func (r *Renderer) truncateTextToWidth(text string, maxWidth int) string {
	if maxWidth <= 0 || text == "" {
		return ""
	}
	if r.measureTextWidth(text) <= maxWidth {
		return text
	}
	return string(r.takeWidth([]rune(text), maxWidth-1, false)) + ellipsis
}

// truncateLeft keeps the end of text, which is where the cursor of the
// search prompt sits.
func (r *Renderer) truncateLeft(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if r.measureTextWidth(text) <= maxWidth {
		return text
	}
	return ellipsis + string(r.takeWidth([]rune(text), maxWidth-1, true))
}

// drawTextLine draws text from startX and returns the column after it.
// Zero-width runes ride along with the rune before them.
func (r *Renderer) drawTextLine(startX, y, maxWidth int, text string, style tcell.Style) int {
	x := startX
	end := startX + maxWidth
	runes := []rune(text)
	for i := 0; i < len(runes) && x < end; {
		mainc := runes[i]
		j := i + 1
		for j < len(runes) && r.runeWidth(runes[j]) == 0 {
			j++
		}
		combc := runes[i+1 : j]
		i = j
		w := r.runeWidth(mainc)
		if x+w > end {
			break
		}
		r.screen.SetContent(x, y, mainc, combc, style)
		x += max(w, 1)
	}
	return x
}

func (r *Renderer) fillRow(fromX, toX, y int, style tcell.Style) {
	if fromX >= toX {
		return
	}
	blank := strings.Repeat(" ", toX-fromX)
	for i, ru := range blank {
		r.screen.SetContent(fromX+i, y, ru, nil, style)
	}
}
