// Package selection keeps a text selection as two (page, character)
// endpoints and derives everything else from them: highlight rects, the
// selected text, handle anchors and a packed range for persistence.
package selection

import (
	"strings"

	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/geom"
)

// Source is the part of a document the selection reads from.
type Source interface {
	PageCount() int
	Text(page int) (*document.PageText, error)
	CharRects(t *document.PageText, start, count int) []geom.Rect
	CharPosition(t *document.PageText, index int, loose bool) (geom.Rect, bool)
	CharIndexAt(t *document.PageText, p geom.Point, tolerance float64) int
}

// Endpoint is a character position on a page. A negative Char means the
// end of the page text.
type Endpoint struct {
	Page int
	Char int
}

// Before reports whether e sorts before o.
func (e Endpoint) Before(o Endpoint) bool {
	if e.Page != o.Page {
		return e.Page < o.Page
	}
	return charKey(e.Char) < charKey(o.Char)
}

func charKey(c int) int {
	if c < 0 {
		return int(^uint(0) >> 1)
	}
	return c
}

// Range is an ordered pair of endpoints; End is exclusive.
type Range struct {
	Start Endpoint
	End   Endpoint
}

// Config controls how rects on one visual line are merged.
type Config struct {
	MergeLines bool
	// LineThreshold is the largest vertical distance, in page units,
	// between two glyph boxes on the same line. Clamped to [0, 10].
	LineThreshold float64
	// VerticalExpand grows merged boxes by this fraction of their height.
	// Clamped to [0, 1].
	VerticalExpand float64
}

func (c Config) normalized() Config {
	c.LineThreshold = clampFloat(c.LineThreshold, 0, 10)
	c.VerticalExpand = clampFloat(c.VerticalExpand, 0, 1)
	return c
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Anchor is where a selection handle attaches.
type Anchor struct {
	Page       int
	Char       int
	Point      geom.Point
	LineHeight float64
}

// Model is mutated only from the UI context.
type Model struct {
	src  Source
	cfg  Config
	emit func(events.Event)

	active bool
	start  Endpoint
	end    Endpoint

	rects  map[int][]geom.Rect
	idents map[int]uint64
}

// New returns an empty selection. emit may be nil.
func New(src Source, cfg Config, emit func(events.Event)) *Model {
	return &Model{
		src:    src,
		cfg:    cfg.normalized(),
		emit:   emit,
		rects:  make(map[int][]geom.Rect),
		idents: make(map[int]uint64),
	}
}

func (m *Model) publish(ev events.Event) {
	if m.emit != nil {
		m.emit(ev)
	}
}

// Config returns the line merge configuration.
func (m *Model) Config() Config { return m.cfg }

// SetConfig changes the line merge configuration and drops cached rects.
func (m *Model) SetConfig(cfg Config) {
	m.cfg = cfg.normalized()
	m.rects = make(map[int][]geom.Rect)
}

// Active reports whether a selection exists.
func (m *Model) Active() bool { return m.active }

// Range returns the normalised endpoints.
func (m *Model) Range() (Range, bool) {
	if !m.active {
		return Range{}, false
	}
	return Range{Start: m.start, End: m.end}, true
}

func (m *Model) validPage(page int) bool {
	return m.src != nil && page >= 0 && page < m.src.PageCount()
}

// SetSelection selects [start, end) on one page.
func (m *Model) SetSelection(page, start, end int) bool {
	if !m.validPage(page) {
		return false
	}
	m.active = true
	m.start = Endpoint{Page: page, Char: start}
	m.end = Endpoint{Page: page, Char: end}
	m.Normalize()
	m.Invalidate()
	m.publish(events.SelectionChanged{InProgress: false})
	m.publish(events.RenderRequest{Dirty: events.DirtySelection})
	return true
}

// ExtendSelection moves the endpoint of the dragged handle. It reports
// whether anything changed; an unchanged endpoint costs nothing.
func (m *Model) ExtendSelection(page, char int, asStart bool) bool {
	if !m.active || !m.validPage(page) {
		return false
	}
	next := Endpoint{Page: page, Char: char}
	if asStart {
		if m.start == next {
			return false
		}
		m.start = next
	} else {
		if m.end == next {
			return false
		}
		m.end = next
	}
	m.Normalize()
	m.rects = make(map[int][]geom.Rect)
	m.publish(events.SelectionChanged{InProgress: true})
	m.publish(events.RenderRequest{Dirty: events.DirtySelection})
	return true
}

// Normalize orders the endpoints. The pair is swapped as a whole so a
// cross-page range never ends up with its characters exchanged.
func (m *Model) Normalize() {
	if m.end.Before(m.start) {
		m.start, m.end = m.end, m.start
	}
}

// Clear drops the selection.
func (m *Model) Clear() {
	if !m.active {
		return
	}
	m.active = false
	m.start, m.end = Endpoint{}, Endpoint{}
	m.Invalidate()
	m.publish(events.SelectionChanged{InProgress: false})
	m.publish(events.RenderRequest{Dirty: events.DirtySelection})
}

// Invalidate drops cached rects and forgets the text identities the
// selection was computed against.
func (m *Model) Invalidate() {
	m.rects = make(map[int][]geom.Rect)
	m.idents = make(map[int]uint64)
}

// text returns the live text of page, or nil when it cannot be read or has
// been reopened since the selection first saw it.
func (m *Model) text(page int) *document.PageText {
	t, err := m.src.Text(page)
	if err != nil || t == nil {
		return nil
	}
	if id, ok := m.idents[page]; ok && id != t.ID {
		return nil
	}
	m.idents[page] = t.ID
	return t
}

func resolveChar(c int, t *document.PageText) int {
	n := t.Len()
	if c < 0 || c > n {
		return n
	}
	return c
}

// span returns the selected character range of page.
func (m *Model) span(page int, t *document.PageText) (int, int) {
	from, to := 0, t.Len()
	if page == m.start.Page {
		from = resolveChar(m.start.Char, t)
	}
	if page == m.end.Page {
		to = resolveChar(m.end.Char, t)
	}
	return from, to
}

// RectsForPage returns the page-local highlight boxes of page.
func (m *Model) RectsForPage(page int) []geom.Rect {
	if !m.active || page < m.start.Page || page > m.end.Page {
		return nil
	}
	if cached, ok := m.rects[page]; ok {
		return cached
	}
	t := m.text(page)
	if t == nil {
		return nil
	}
	from, to := m.span(page, t)
	var rects []geom.Rect
	if to > from {
		rects = m.src.CharRects(t, from, to-from)
		if m.cfg.MergeLines {
			rects = mergeLines(rects, m.cfg.LineThreshold, m.cfg.VerticalExpand)
		}
	}
	m.rects[page] = rects
	return rects
}

// mergeLines joins consecutive boxes whose tops are within threshold of
// each other into one box per visual line.
func mergeLines(rects []geom.Rect, threshold, expand float64) []geom.Rect {
	var out []geom.Rect
	var line geom.Rect
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		if !line.Empty() && abs(r.Top-line.Top) <= threshold {
			line = line.Union(r)
			continue
		}
		if !line.Empty() {
			out = append(out, grow(line, expand))
		}
		line = r
	}
	if !line.Empty() {
		out = append(out, grow(line, expand))
	}
	return out
}

func grow(r geom.Rect, expand float64) geom.Rect {
	d := r.Height() * expand / 2
	r.Top -= d
	r.Bottom += d
	return r
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Text returns the selected text across every page of the range.
func (m *Model) Text() string {
	if !m.active {
		return ""
	}
	var b strings.Builder
	for page := m.start.Page; page <= m.end.Page; page++ {
		t := m.text(page)
		if t == nil {
			continue
		}
		from, to := m.span(page, t)
		b.WriteString(t.Slice(from, to))
	}
	return b.String()
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

// AnchorForHandle returns where the start or end handle attaches. The
// boundary character is moved off line breaks first: forward for the start
// handle and backward for the end handle.
func (m *Model) AnchorForHandle(isStart bool) (Anchor, bool) {
	if !m.active {
		return Anchor{}, false
	}
	dir := 1
	if m.start.Page == m.end.Page && m.start.Char == m.end.Char {
		dir = 0
	}

	page := m.end.Page
	if isStart {
		page = m.start.Page
	}
	t := m.text(page)
	if t == nil || t.Len() == 0 {
		return Anchor{}, false
	}
	n := t.Len()

	var idx int
	if isStart {
		idx = resolveChar(m.start.Char, t)
		for dir != 0 && idx < n-1 && isLineBreak(t.RuneAt(idx)) {
			idx += dir
		}
	} else {
		idx = resolveChar(m.end.Char, t)
		if dir != 0 {
			idx--
		}
		for dir != 0 && idx > 0 && isLineBreak(t.RuneAt(idx)) {
			idx -= dir
		}
	}
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}

	r, ok := m.src.CharPosition(t, idx, true)
	if !ok {
		return Anchor{}, false
	}
	pt := geom.Point{X: r.Left, Y: r.Bottom}
	if !isStart {
		pt.X = r.Right
	}
	return Anchor{Page: page, Char: idx, Point: pt, LineHeight: r.Height()}, true
}

// HitTest returns the character under a page-local point, or -1.
func (m *Model) HitTest(page int, p geom.Point, tolerance float64) int {
	if !m.validPage(page) {
		return -1
	}
	t, err := m.src.Text(page)
	if err != nil {
		return -1
	}
	return m.src.CharIndexAt(t, p, tolerance)
}

// PackedRange returns the selection as a page and a packed character
// range on that page. A multi-page selection is cut at the end of its
// first page.
func (m *Model) PackedRange() (int, int64, bool) {
	if !m.active {
		return 0, 0, false
	}
	t := m.text(m.start.Page)
	if t == nil {
		return 0, 0, false
	}
	from, to := m.span(m.start.Page, t)
	if m.end.Page != m.start.Page {
		to = t.Len()
	}
	return m.start.Page, PackRange(from, to), true
}

// Finish ends a drag and publishes the finished selection.
func (m *Model) Finish() {
	if !m.active {
		return
	}
	page, packed, ok := m.PackedRange()
	if !ok {
		return
	}
	var bounds geom.Rect
	for _, r := range m.RectsForPage(page) {
		bounds = bounds.Union(r)
	}
	m.publish(events.SelectionEnded{Text: m.Text(), Page: page, RangeID: packed, Rect: bounds})
}
