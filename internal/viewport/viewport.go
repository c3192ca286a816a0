// Package viewport owns the scroll offset and zoom of the document view
// and maps between screen space, document space and page-local space.
//
// The offset is the translation applied to the content: it is zero at the
// start of the document and negative once scrolled, so a document
// coordinate is screen coordinate minus offset.
package viewport

import (
	"math"

	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/geom"
	"github.com/kk-code-lab/rdoc/internal/layout"
)

// State is the lifecycle of the view.
type State int

const (
	StateDefault State = iota
	StateLoaded
	StateShown
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateShown:
		return "shown"
	case StateError:
		return "error"
	default:
		return "default"
	}
}

// ScrollDir is the direction of the last move along the scroll axis.
type ScrollDir int

const (
	ScrollNone ScrollDir = iota
	ScrollStart
	ScrollEnd
)

// SnapEdge says which part of a page a snap should align.
type SnapEdge int

const (
	SnapNone SnapEdge = iota
	SnapStart
	SnapEnd
	SnapCenter
)

func (e SnapEdge) String() string {
	switch e {
	case SnapStart:
		return "start"
	case SnapEnd:
		return "end"
	case SnapCenter:
		return "center"
	default:
		return "none"
	}
}

// Config holds zoom bounds and snapping behaviour.
type Config struct {
	MinZoom   float64
	MidZoom   float64
	MaxZoom   float64
	PageSnap  bool
	PageFling bool
}

// DefaultConfig mirrors the usual reader defaults.
func DefaultConfig() Config {
	return Config{MinZoom: 1, MidZoom: 1.75, MaxZoom: 3}
}

func (c Config) normalized() Config {
	if c.MinZoom <= 0 {
		c.MinZoom = 1
	}
	if c.MaxZoom < c.MinZoom {
		c.MaxZoom = c.MinZoom
	}
	if c.MidZoom < c.MinZoom || c.MidZoom > c.MaxZoom {
		c.MidZoom = (c.MinZoom + c.MaxZoom) / 2
	}
	return c
}

// Mapper is mutated only from the UI context.
type Mapper struct {
	cfg    Config
	layout *layout.Engine
	view   geom.Size
	offset geom.Point
	zoom   float64
	state  State
	dir    ScrollDir
	page   int
	emit   func(events.Event)
}

// New returns a mapper in StateDefault. emit may be nil.
func New(cfg Config, emit func(events.Event)) *Mapper {
	cfg = cfg.normalized()
	return &Mapper{cfg: cfg, zoom: cfg.MinZoom, emit: emit}
}

func (m *Mapper) publish(ev events.Event) {
	if m.emit != nil {
		m.emit(ev)
	}
}

// Config returns the zoom and snap configuration.
func (m *Mapper) Config() Config { return m.cfg }

// State returns the lifecycle state.
func (m *Mapper) State() State { return m.state }

// Layout returns the attached layout, or nil.
func (m *Mapper) Layout() *layout.Engine { return m.layout }

// Zoom returns the runtime zoom.
func (m *Mapper) Zoom() float64 { return m.zoom }

// Offset returns the content translation.
func (m *Mapper) Offset() geom.Point { return m.offset }

// View returns the viewport size.
func (m *Mapper) View() geom.Size { return m.view }

// CurrentPage returns the page last reported through PageChanged.
func (m *Mapper) CurrentPage() int { return m.page }

// ScrollDir returns the direction of the last MoveTo.
func (m *Mapper) ScrollDir() ScrollDir { return m.dir }

// IsZooming reports whether the view is zoomed past the minimum.
func (m *Mapper) IsZooming() bool { return m.zoom != m.cfg.MinZoom }

func (m *Mapper) ready() bool {
	return m.layout != nil && (m.state == StateLoaded || m.state == StateShown)
}

func (m *Mapper) horizontal() bool {
	return m.layout != nil && m.layout.Horizontal()
}

func (m *Mapper) primary(p geom.Point) float64 {
	return p.Primary(m.horizontal())
}

func (m *Mapper) viewLength() float64 {
	return m.view.Primary(m.horizontal())
}

// Attach lays the document out and moves to StateLoaded. It is ignored in
// StateError; Reset first.
func (m *Mapper) Attach(e *layout.Engine) {
	if e == nil || m.state == StateError {
		return
	}
	m.layout = e
	m.state = StateLoaded
	m.zoom = m.cfg.MinZoom
	m.offset = geom.Point{}
	m.dir = ScrollNone
	m.page = -1
	e.Recompute(m.view)
	m.MoveTo(0, 0, false)
	m.publish(events.RenderRequest{Dirty: events.DirtyLayout})
}

// MarkShown records the first successful render.
func (m *Mapper) MarkShown() {
	if m.state == StateLoaded {
		m.state = StateShown
	}
}

// Fail moves to StateError and drops the layout.
func (m *Mapper) Fail(err error) {
	m.layout = nil
	m.state = StateError
	m.offset = geom.Point{}
	m.zoom = m.cfg.MinZoom
	m.dir = ScrollNone
	m.page = 0
	m.publish(events.LoadError{Err: err})
	m.publish(events.RenderRequest{Dirty: events.DirtyLayout})
}

// Reset recycles the view back to StateDefault.
func (m *Mapper) Reset() {
	m.layout = nil
	m.state = StateDefault
	m.offset = geom.Point{}
	m.zoom = 1
	if m.zoom < m.cfg.MinZoom || m.zoom > m.cfg.MaxZoom {
		m.zoom = m.cfg.MinZoom
	}
	m.dir = ScrollNone
	m.page = 0
}

// Relayout applies a new layout configuration and keeps the position.
func (m *Mapper) Relayout(cfg layout.Config) {
	if !m.ready() {
		return
	}
	pos := m.PositionOffset()
	m.layout.SetConfig(cfg)
	m.SetPositionOffset(pos, false)
	m.publish(events.RenderRequest{Dirty: events.DirtyLayout})
}

// Resize recomputes the layout for a new viewport and keeps the document
// point at the centre of the view at the centre.
func (m *Mapper) Resize(w, h float64) {
	old := m.view
	m.view = geom.Size{W: w, H: h}
	if !m.ready() {
		return
	}
	horizontal := m.horizontal()
	cx := -m.offset.X + old.W/2
	cy := -m.offset.Y + old.H/2
	var relX, relY float64
	if horizontal {
		relX = ratio(cx, m.layout.DocumentLength(m.zoom))
		relY = ratio(cy, m.layout.MaxPageSize().H*m.zoom)
	} else {
		relX = ratio(cx, m.layout.MaxPageSize().W*m.zoom)
		relY = ratio(cy, m.layout.DocumentLength(m.zoom))
	}

	m.layout.Recompute(m.view)

	if horizontal {
		m.offset.X = -relX*m.layout.DocumentLength(m.zoom) + w/2
		m.offset.Y = -relY*m.layout.MaxPageSize().H*m.zoom + h/2
	} else {
		m.offset.X = -relX*m.layout.MaxPageSize().W*m.zoom + w/2
		m.offset.Y = -relY*m.layout.DocumentLength(m.zoom) + h/2
	}
	m.MoveTo(m.offset.X, m.offset.Y, true)
	m.publish(events.RenderRequest{Dirty: events.DirtyLayout})
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// clampAxis keeps content of the given length inside a view of the given
// length, centring it when it is smaller.
func clampAxis(offset, content, view float64) float64 {
	if content < view {
		return view/2 - content/2
	}
	if offset > 0 {
		return 0
	}
	if offset+content < view {
		return view - content
	}
	return offset
}

// MoveTo sets the content translation, clamped to the content bounds.
func (m *Mapper) MoveTo(x, y float64, moveHandle bool) {
	if !m.ready() {
		return
	}
	docLen := m.layout.DocumentLength(m.zoom)
	max := m.layout.MaxPageSize()
	var next geom.Point
	if m.horizontal() {
		next.Y = clampAxis(y, max.H*m.zoom, m.view.H)
		next.X = clampAxis(x, docLen, m.view.W)
	} else {
		next.X = clampAxis(x, max.W*m.zoom, m.view.W)
		next.Y = clampAxis(y, docLen, m.view.H)
	}

	prev, cur := m.primary(m.offset), m.primary(next)
	switch {
	case cur < prev:
		m.dir = ScrollEnd
	case cur > prev:
		m.dir = ScrollStart
	default:
		m.dir = ScrollNone
	}
	m.offset = next

	m.LoadPageByOffset()
	m.publish(events.Scrolled{Page: m.page, Offset: m.PositionOffset(), MoveHandle: moveHandle})
	m.publish(events.RenderRequest{Dirty: events.DirtyOffset})
}

// MoveRelativeTo scrolls by a delta.
func (m *Mapper) MoveRelativeTo(dx, dy float64) {
	m.MoveTo(m.offset.X+dx, m.offset.Y+dy, true)
}

// PositionOffset returns how far through the document the view is, in [0, 1].
func (m *Mapper) PositionOffset() float64 {
	if !m.ready() {
		return 0
	}
	span := m.layout.DocumentLength(m.zoom) - m.viewLength()
	if span <= 0 {
		return 0
	}
	p := -m.primary(m.offset) / span
	return math.Max(0, math.Min(1, p))
}

// SetPositionOffset scrolls to a normalised position.
func (m *Mapper) SetPositionOffset(p float64, moveHandle bool) {
	if !m.ready() {
		return
	}
	target := -(m.layout.DocumentLength(m.zoom) - m.viewLength()) * p
	if m.horizontal() {
		m.MoveTo(target, m.offset.Y, moveHandle)
	} else {
		m.MoveTo(m.offset.X, target, moveHandle)
	}
}

func (m *Mapper) clampZoom(z float64) float64 {
	if math.IsNaN(z) || z < m.cfg.MinZoom {
		return m.cfg.MinZoom
	}
	if z > m.cfg.MaxZoom {
		return m.cfg.MaxZoom
	}
	return z
}

// ZoomTo sets the zoom without moving; the value is clamped to the bounds.
func (m *Mapper) ZoomTo(z float64) {
	m.zoom = m.clampZoom(z)
	m.publish(events.RenderRequest{Dirty: events.DirtyZoom})
}

// ZoomCenteredTo zooms so the document point under pivot stays under pivot.
func (m *Mapper) ZoomCenteredTo(z float64, pivot geom.Point) {
	z = m.clampZoom(z)
	dz := z / m.zoom
	m.ZoomTo(z)
	x := m.offset.X*dz + (pivot.X - pivot.X*dz)
	y := m.offset.Y*dz + (pivot.Y - pivot.Y*dz)
	m.MoveTo(x, y, true)
}

// ZoomCenteredRelativeTo multiplies the zoom around pivot.
func (m *Mapper) ZoomCenteredRelativeTo(dz float64, pivot geom.Point) {
	m.ZoomCenteredTo(m.zoom*dz, pivot)
}

// CycleZoom steps min -> mid -> max -> min around pivot, the double-tap behaviour.
func (m *Mapper) CycleZoom(pivot geom.Point) {
	switch {
	case m.zoom < m.cfg.MidZoom:
		m.ZoomCenteredTo(m.cfg.MidZoom, pivot)
	case m.zoom < m.cfg.MaxZoom:
		m.ZoomCenteredTo(m.cfg.MaxZoom, pivot)
	default:
		m.ZoomCenteredTo(m.cfg.MinZoom, pivot)
	}
}

// JumpTo scrolls so that page starts at the leading edge of the view.
func (m *Mapper) JumpTo(page int) {
	if !m.ready() {
		return
	}
	page = m.validPage(page)
	offset := 0.0
	if page > 0 {
		offset = -m.layout.PageOffset(page, m.zoom)
		if m.layout.Config().AutoSpacing {
			offset += m.layout.PageSpacing(page, m.zoom) / 2
		}
	}
	if m.horizontal() {
		m.MoveTo(offset, m.offset.Y, true)
	} else {
		m.MoveTo(m.offset.X, offset, true)
	}
	m.showPage(page)
}

// JumpToWithSnap jumps to page and then aligns it the way a page snap would.
func (m *Mapper) JumpToWithSnap(page int) {
	m.JumpTo(page)
	if !m.ready() {
		return
	}
	page = m.validPage(page)
	edge := m.FindSnapEdge(page)
	if edge == SnapNone {
		return
	}
	m.movePrimary(-m.SnapOffsetForPage(page, edge))
	m.showPage(page)
}

func (m *Mapper) movePrimary(v float64) {
	if m.horizontal() {
		m.MoveTo(v, m.offset.Y, true)
	} else {
		m.MoveTo(m.offset.X, v, true)
	}
}

func (m *Mapper) validPage(page int) int {
	n := m.layout.PageCount()
	if n == 0 || page < 0 {
		return 0
	}
	if page >= n {
		return n - 1
	}
	return page
}

func (m *Mapper) showPage(page int) {
	if page == m.page {
		return
	}
	m.page = page
	m.publish(events.PageChanged{Page: page, Total: m.layout.PageCount()})
}

// FindSnapEdge decides how page should be aligned. The checks run in a
// fixed order: CENTER, START, END, NONE.
func (m *Mapper) FindSnapEdge(page int) SnapEdge {
	if !m.ready() || page < 0 || page >= m.layout.PageCount() {
		return SnapNone
	}
	current := m.primary(m.offset)
	pageOffset := m.layout.PageOffset(page, m.zoom)
	pageLen := m.layout.PageLength(page, m.zoom)
	length := m.viewLength()

	if length >= pageLen {
		return SnapCenter
	}
	// The view starts strictly before the page.
	if current > -pageOffset {
		return SnapStart
	}
	// The page ends before the view does.
	if -pageOffset-pageLen > current-length {
		return SnapEnd
	}
	return SnapNone
}

// SnapOffsetForPage returns the document offset the view start should move
// to so that page is aligned on edge.
func (m *Mapper) SnapOffsetForPage(page int, edge SnapEdge) float64 {
	if !m.ready() {
		return 0
	}
	offset := m.layout.PageOffset(page, m.zoom)
	length := m.viewLength()
	pageLen := m.layout.PageLength(page, m.zoom)
	switch edge {
	case SnapCenter:
		offset = offset - length/2 + pageLen/2
	case SnapEnd:
		offset = offset - length + pageLen
	}
	return offset
}

// SnapTarget returns where a page snap would move the content, if anywhere.
func (m *Mapper) SnapTarget() (geom.Point, bool) {
	if !m.ready() || !m.cfg.PageSnap || m.layout.PageCount() == 0 {
		return geom.Point{}, false
	}
	page := m.FindFocusPage(m.offset.X, m.offset.Y)
	edge := m.FindSnapEdge(page)
	if edge == SnapNone {
		return geom.Point{}, false
	}
	target := m.offset
	v := -m.SnapOffsetForPage(page, edge)
	if m.horizontal() {
		target.X = v
	} else {
		target.Y = v
	}
	return target, true
}

// PerformPageSnap moves to the snap target. It reports whether it moved.
func (m *Mapper) PerformPageSnap() bool {
	target, ok := m.SnapTarget()
	if !ok {
		return false
	}
	m.MoveTo(target.X, target.Y, true)
	return true
}

// FlingTarget returns the page a one-page fling lands on and the content
// translation that aligns it.
func (m *Mapper) FlingTarget(forward bool) (int, geom.Point, bool) {
	if !m.ready() || m.layout.PageCount() == 0 {
		return 0, geom.Point{}, false
	}
	page := m.FindFocusPage(m.offset.X, m.offset.Y)
	if forward {
		page++
	} else {
		page--
	}
	page = m.validPage(page)
	edge := m.FindSnapEdge(page)
	if edge == SnapNone || (edge == SnapEnd && !forward) {
		edge = SnapStart
	}
	target := m.offset
	v := -m.SnapOffsetForPage(page, edge)
	if m.horizontal() {
		target.X = v
	} else {
		target.Y = v
	}
	return page, target, true
}

// Fling moves one page forward or back when page fling is enabled.
func (m *Mapper) Fling(forward bool) bool {
	if !m.cfg.PageFling {
		return false
	}
	page, target, ok := m.FlingTarget(forward)
	if !ok {
		return false
	}
	m.MoveTo(target.X, target.Y, true)
	m.showPage(page)
	return true
}

// FindFocusPage returns the page under the centre of the view for the
// given content translation. Offsets within a pixel of either end of the
// document resolve to the first or last page.
func (m *Mapper) FindFocusPage(x, y float64) int {
	if !m.ready() || m.layout.PageCount() == 0 {
		return 0
	}
	current := m.primary(geom.Point{X: x, Y: y})
	length := m.viewLength()
	if current > -1 {
		return 0
	}
	if current < -m.layout.DocumentLength(m.zoom)+length+1 {
		return m.layout.PageCount() - 1
	}
	center := current - length/2
	return m.layout.PageAtOffset(-center, m.zoom)
}

// LoadPageByOffset refreshes the current page from the offset and reports
// a change through PageChanged.
func (m *Mapper) LoadPageByOffset() int {
	if !m.ready() || m.layout.PageCount() == 0 {
		return 0
	}
	m.showPage(m.FindFocusPage(m.offset.X, m.offset.Y))
	return m.page
}

// PageAtScreenPoint returns the page under a screen point.
func (m *Mapper) PageAtScreenPoint(x, y float64) int {
	if !m.ready() {
		return 0
	}
	doc := geom.Point{X: x - m.offset.X, Y: y - m.offset.Y}
	return m.layout.PageAtOffset(m.primary(doc), m.zoom)
}

// ScreenToPage maps a screen point to a page and a page-local point at
// zoom 1. ok is false when the point falls between pages.
func (m *Mapper) ScreenToPage(p geom.Point) (page int, local geom.Point, ok bool) {
	if !m.ready() || m.layout.PageCount() == 0 {
		return 0, geom.Point{}, false
	}
	page = m.PageAtScreenPoint(p.X, p.Y)
	bounds := m.layout.PageBounds(page, m.zoom).Translate(m.offset.X, m.offset.Y)
	local = geom.Point{X: (p.X - bounds.Left) / m.zoom, Y: (p.Y - bounds.Top) / m.zoom}
	return page, local, bounds.Contains(p)
}

// PageToScreen maps a page-local rect at zoom 1 to screen space.
func (m *Mapper) PageToScreen(page int, r geom.Rect) geom.Rect {
	if !m.ready() {
		return geom.Rect{}
	}
	bounds := m.layout.PageBounds(page, m.zoom)
	return r.Scale(m.zoom).Translate(bounds.Left+m.offset.X, bounds.Top+m.offset.Y)
}

// PageScreenBounds returns the screen rect of a whole page.
func (m *Mapper) PageScreenBounds(page int) geom.Rect {
	if !m.ready() {
		return geom.Rect{}
	}
	return m.layout.PageBounds(page, m.zoom).Translate(m.offset.X, m.offset.Y)
}

// VisiblePages returns the range of pages intersecting the view.
func (m *Mapper) VisiblePages() (first, last int) {
	if !m.ready() || m.layout.PageCount() == 0 {
		return 0, -1
	}
	start := -m.primary(m.offset)
	first = m.layout.PageAtOffset(start, m.zoom)
	last = m.layout.PageAtOffset(start+m.viewLength(), m.zoom)
	return first, last
}

// DocumentFitsView reports whether the whole document fits on screen.
func (m *Mapper) DocumentFitsView() bool {
	if !m.ready() {
		return false
	}
	return m.layout.DocumentLength(1) <= m.viewLength()
}

// PageFillsScreen reports whether the current page covers the whole view
// along the scroll axis.
func (m *Mapper) PageFillsScreen() bool {
	if !m.ready() || m.layout.PageCount() == 0 {
		return false
	}
	start := -m.layout.PageOffset(m.page, m.zoom)
	end := start - m.layout.PageLength(m.page, m.zoom)
	current := m.primary(m.offset)
	return start > current && end < current-m.viewLength()
}
