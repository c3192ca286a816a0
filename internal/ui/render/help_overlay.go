package render

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	textutil "github.com/kk-code-lab/rdoc/internal/textutil"
)

type helpOverlayEntry struct {
	keys string
	desc string
}

type helpOverlaySection struct {
	title   string
	entries []helpOverlayEntry
}

var helpSections = []helpOverlaySection{
	{
		title: "Scrolling",
		entries: []helpOverlayEntry{
			{keys: "↑/↓ j/k", desc: "Scroll one line"},
			{keys: "←/→", desc: "Scroll sideways"},
			{keys: "PgUp/PgDn", desc: "Scroll one screen"},
			{keys: "Space/b", desc: "Next / previous page"},
			{keys: "g / G", desc: "First / last page"},
			{keys: "s", desc: "Snap to the nearest page edge"},
		},
	},
	{
		title: "Zoom & Layout",
		entries: []helpOverlayEntry{
			{keys: "+ / -", desc: "Zoom in / out"},
			{keys: "z / 0", desc: "Cycle zoom / reset zoom"},
			{keys: "f", desc: "Cycle fit: width, height, both"},
			{keys: "o", desc: "Toggle vertical / horizontal"},
			{keys: "a", desc: "Toggle automatic spacing"},
			{keys: "Ctrl+L", desc: "Reload layout at the same position"},
		},
	},
	{
		title: "Search",
		entries: []helpOverlayEntry{
			{keys: "/", desc: "Search"},
			{keys: "n / N", desc: "Next / previous match"},
			{keys: "w", desc: "Toggle whole-word matching"},
			{keys: "Esc", desc: "Abort or clear the search"},
		},
	},
	{
		title: "Selection & Highlights",
		entries: []helpOverlayEntry{
			{keys: "drag", desc: "Select text"},
			{keys: "double-click", desc: "Select a word"},
			{keys: "y", desc: "Yank selection to clipboard"},
			{keys: "h", desc: "Save selection as a highlight"},
			{keys: "H", desc: "Jump to the next saved highlight"},
		},
	},
	{
		title: "Exit",
		entries: []helpOverlayEntry{
			{keys: "q", desc: "Quit"},
			{keys: "Ctrl+Z", desc: "Suspend"},
			{keys: "?", desc: "Close this help"},
		},
	},
}

func buildHelpOverlayLines() []string {
	lines := make([]string, 0, 40)
	for i, section := range helpSections {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, section.title)
		for _, entry := range section.entries {
			lines = append(lines, formatHelpOverlayEntry(entry))
		}
	}
	return lines
}

func formatHelpOverlayEntry(entry helpOverlayEntry) string {
	key := textutil.Printable(entry.keys)
	desc := textutil.Printable(entry.desc)
	return fmt.Sprintf("  %-14s %s", key, desc)
}

func (r *Renderer) drawHelpOverlay(w, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	for y := 0; y < h; y++ {
		r.fillRow(0, w, y, baseStyle)
	}

	title := " Help "
	headerStyle := baseStyle.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg).Bold(true)
	titleStart := 0
	if tw := r.measureTextWidth(title); w > tw {
		titleStart = (w - tw) / 2
	}
	r.drawTextLine(titleStart, 0, w-titleStart, title, headerStyle)

	row := 2
	for _, line := range buildHelpOverlayLines() {
		if row >= h-1 {
			break
		}
		text := r.truncateTextToWidth(strings.TrimRight(line, " "), w-4)
		r.drawTextLine(2, row, w-4, text, baseStyle)
		row++
	}

	if h > 0 {
		r.drawTextLine(0, h-1, w, r.truncateTextToWidth("? toggle · Esc/q close", w), headerStyle)
	}
}
