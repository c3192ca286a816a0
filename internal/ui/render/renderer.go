package render

import (
	"fmt"
	"math"
	"path/filepath"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/geom"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
	textutil "github.com/kk-code-lab/rdoc/internal/textutil"
)

// Renderer handles all UI rendering
type Renderer struct {
	screen tcell.Screen
	theme  ColorTheme
	// widths caches runewidth results; the renderer only runs on the UI
	// goroutine.
	widths map[rune]int
}

// NewRenderer creates a new renderer
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		theme:  GetColorTheme(),
		widths: make(map[rune]int, 256),
	}
}

// cellBox is a half-open range of terminal cells.
type cellBox struct {
	x0, y0, x1, y1 int
}

func (b cellBox) clip(w, h int) cellBox {
	b.x0 = max(b.x0, 0)
	b.y0 = max(b.y0, 0)
	b.x1 = min(b.x1, w)
	b.y1 = min(b.y1, h)
	return b
}

func (b cellBox) empty() bool {
	return b.x0 >= b.x1 || b.y0 >= b.y1
}

// Render draws the entire UI based on state
func (r *Renderer) Render(state *statepkg.AppState) {
	r.screen.Clear()
	w, h := r.screen.Size()
	if state == nil || w <= 0 || h <= 0 {
		r.screen.Show()
		return
	}

	if state.HelpVisible {
		r.screen.HideCursor()
		r.drawHelpOverlay(w, h)
		r.screen.Show()
		return
	}

	r.drawPages(state, w, h-1)
	r.drawStatusLine(state, w, h)
	r.screen.Show()
}

// screenBox converts a rect in screen units to the cells it touches.
func screenBox(state *statepkg.AppState, sr geom.Rect) cellBox {
	x0, y0 := state.ScreenToCell(geom.Point{X: sr.Left, Y: sr.Top})
	return cellBox{
		x0: x0,
		y0: y0,
		x1: int(math.Ceil(sr.Right / state.Cell.W)),
		y1: int(math.Ceil(sr.Bottom / state.Cell.H)),
	}
}

func (r *Renderer) drawPages(state *statepkg.AppState, w, rows int) {
	if rows <= 0 {
		return
	}
	first, last := state.Viewport.VisiblePages()
	for page := first; page <= last; page++ {
		r.drawPage(state, page, w, rows)
	}
}

func (r *Renderer) drawPage(state *statepkg.AppState, page, w, rows int) {
	pageStyle := tcell.StyleDefault.Background(r.theme.PageBg).Foreground(r.theme.PageFg)
	box := screenBox(state, state.Viewport.PageScreenBounds(page)).clip(w, rows)
	if box.empty() {
		return
	}
	for y := box.y0; y < box.y1; y++ {
		r.fillRow(box.x0, box.x1, y, pageStyle)
	}

	if err := state.PageErrors[page]; err != nil || state.Doc.PageHasError(page) {
		r.drawPageError(page, box, pageStyle)
		return
	}
	text, err := state.PageText(page)
	if err != nil {
		r.drawPageError(page, box, pageStyle)
		return
	}

	rects := state.Doc.CharRects(text, 0, text.Len())
	for i, rect := range rects {
		ru := text.RuneAt(i)
		if ru == '\n' || unicode.IsControl(ru) || unicode.IsSpace(ru) {
			continue
		}
		cb := screenBox(state, state.PageRectToScreen(page, rect))
		if cb.x0 < 0 || cb.x0 >= w || cb.y0 < 0 || cb.y0 >= rows {
			continue
		}
		if rw := r.runeWidth(ru); rw > 1 && cb.x0+rw > w {
			continue
		}
		r.screen.SetContent(cb.x0, cb.y0, ru, nil, pageStyle)
	}

	highlightStyle := tcell.StyleDefault.Background(r.theme.HighlightBg).Foreground(r.theme.HighlightFg)
	for _, hl := range state.SavedOnPage(page) {
		start, end := hl.Range()
		for _, rect := range state.Doc.CharRects(text, start, end-start) {
			r.restyle(state, page, rect, w, rows, highlightStyle)
		}
	}

	if state.Search.Record(page) != nil {
		matchStyle := tcell.StyleDefault.Background(r.theme.MatchBg).Foreground(r.theme.MatchFg)
		for _, m := range state.Search.MatchesOnPage(page) {
			for _, rect := range m.Rects {
				r.restyle(state, page, rect, w, rows, matchStyle)
			}
		}
		if focused, ok := state.Search.Focused(); ok && focused.Page == page {
			focusStyle := tcell.StyleDefault.Background(r.theme.FocusBg).Foreground(r.theme.FocusFg)
			for _, rect := range focused.Rects {
				r.restyle(state, page, rect, w, rows, focusStyle)
			}
		}
	}

	selectionStyle := tcell.StyleDefault.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)
	for _, rect := range state.Selection.RectsForPage(page) {
		r.restyle(state, page, rect, w, rows, selectionStyle)
	}
}

// restyle repaints the cells under a page rect, keeping their runes.
func (r *Renderer) restyle(state *statepkg.AppState, page int, rect geom.Rect, w, rows int, style tcell.Style) {
	box := screenBox(state, state.PageRectToScreen(page, rect)).clip(w, rows)
	for y := box.y0; y < box.y1; y++ {
		for x := box.x0; x < box.x1; x++ {
			mainc, combc, _, _ := r.screen.GetContent(x, y)
			r.screen.SetContent(x, y, mainc, combc, style)
		}
	}
}

func (r *Renderer) drawPageError(page int, box cellBox, base tcell.Style) {
	msg := r.truncateTextToWidth(fmt.Sprintf("page %d could not be opened", page+1), box.x1-box.x0)
	x := box.x0 + (box.x1-box.x0-r.measureTextWidth(msg))/2
	y := box.y0 + (box.y1-box.y0)/2
	r.drawTextLine(x, y, box.x1-x, msg, base.Foreground(r.theme.ErrorFg))
}

// drawStatusLine renders the bottom row: the search prompt while it is
// open, otherwise the file name, a message and the position summary.
func (r *Renderer) drawStatusLine(state *statepkg.AppState, w, h int) {
	y := h - 1
	normalStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)
	flashStyle := tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)

	if state.SearchPromptActive {
		promptStyle := normalStyle.Foreground(r.theme.PromptFg)
		x := r.drawTextLine(0, y, w, "/", promptStyle)
		query := r.truncateLeft(textutil.Printable(state.SearchQuery), w-x-1)
		x = r.drawTextLine(x, y, w-x, query, normalStyle)
		r.fillRow(x, w, y, normalStyle)
		r.screen.ShowCursor(x, y)
		return
	}
	r.screen.HideCursor()

	style := normalStyle
	if !state.LastYankTime.IsZero() && time.Since(state.LastYankTime) < 100*time.Millisecond {
		style = flashStyle
	}

	right := formatStatusRight(state.Status())
	rightWidth := r.measureTextWidth(right)

	leftStyle := style
	var message string
	switch {
	case state.StatusMessage != "":
		message = state.StatusMessage
	case state.LastError != nil:
		message = state.LastError.Error()
		leftStyle = style.Foreground(r.theme.ErrorFg)
	default:
		message = buildFooterHelpText(state)
	}
	left := textutil.Printable(filepath.Base(state.Path))
	if message != "" {
		left += "  " + textutil.Printable(message)
	}

	leftMax := w - rightWidth - 1
	if leftMax < 0 {
		leftMax = 0
		right = r.truncateTextToWidth(right, w)
		rightWidth = r.measureTextWidth(right)
	}
	x := r.drawTextLine(0, y, leftMax, r.truncateTextToWidth(left, leftMax), leftStyle)
	r.fillRow(x, w, y, style)
	r.drawTextLine(w-rightWidth, y, rightWidth, right, style)
}
