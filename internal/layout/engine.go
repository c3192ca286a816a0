// Package layout turns per-page natural sizes into one document coordinate
// space: scaled page sizes, offsets along the scroll axis, spacing and the
// total document length. Everything is computed at zoom 1; queries take
// the runtime zoom and scale on read.
package layout

import (
	"sort"

	"github.com/kk-code-lab/rdoc/internal/geom"
)

// Orientation is the scroll axis.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

// Config is the layout configuration, set at load or on reconfiguration.
type Config struct {
	Fit           FitPolicy
	Orientation   Orientation
	Spacing       float64
	SpacingTop    float64
	SpacingBottom float64
	AutoSpacing   bool
	FitEachPage   bool
}

// Engine holds the computed layout. It is owned by the UI context and is
// not safe for concurrent mutation.
type Engine struct {
	cfg     Config
	natural []geom.Size
	view    geom.Size

	sizes      []geom.Size
	spacing    []float64
	offsets    []float64
	boundaries []float64
	length     float64
	maxPage    geom.Size
}

// New creates an engine for the given natural sizes. Call Recompute once
// the viewport size is known.
func New(cfg Config, natural []geom.Size) *Engine {
	e := &Engine{cfg: cfg, natural: append([]geom.Size(nil), natural...)}
	return e
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the configuration and recomputes against the last viewport.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg
	e.Recompute(e.view)
}

// Horizontal reports whether pages stack left to right.
func (e *Engine) Horizontal() bool {
	return e.cfg.Orientation == Horizontal
}

// Viewport returns the size passed to the last Recompute.
func (e *Engine) Viewport() geom.Size {
	return e.view
}

// Recompute lays every page out against a viewport of the given size.
func (e *Engine) Recompute(view geom.Size) {
	e.view = view
	n := len(e.natural)
	e.sizes = make([]geom.Size, n)
	e.spacing = make([]float64, n)
	e.offsets = make([]float64, n)
	e.boundaries = make([]float64, n)
	e.length = 0
	e.maxPage = geom.Size{}
	if n == 0 {
		return
	}

	var maxWidthPage, maxHeightPage geom.Size
	for _, s := range e.natural {
		if s.W > maxWidthPage.W {
			maxWidthPage = s
		}
		if s.H > maxHeightPage.H {
			maxHeightPage = s
		}
	}
	calc := newSizeCalculator(e.cfg.Fit, e.cfg.FitEachPage, maxWidthPage, maxHeightPage, view)
	for i, s := range e.natural {
		e.sizes[i] = calc.calculate(s)
		if e.sizes[i].W > e.maxPage.W {
			e.maxPage.W = e.sizes[i].W
		}
		if e.sizes[i].H > e.maxPage.H {
			e.maxPage.H = e.sizes[i].H
		}
	}

	horizontal := e.Horizontal()
	viewPrimary := view.Primary(horizontal)
	fixed := e.cfg.Spacing
	for i := range e.sizes {
		var sp float64
		if e.cfg.AutoSpacing {
			sp = viewPrimary - e.sizes[i].Primary(horizontal)
			if sp < 0 {
				sp = 0
			}
		}
		if i < n-1 {
			sp += fixed
		}
		e.spacing[i] = sp
	}

	offset := e.cfg.SpacingTop
	for i := range e.sizes {
		size := e.sizes[i].Primary(horizontal)
		if e.cfg.AutoSpacing {
			// Half of a page's spacing goes before it and half after. The
			// fixed part belongs between pages, so the first page gives
			// back half of it and the last page takes half of it.
			offset += e.spacing[i] / 2
			if n > 1 {
				if i == 0 {
					offset -= fixed / 2
				} else if i == n-1 {
					offset += fixed / 2
				}
			}
			e.offsets[i] = offset
			e.boundaries[i] = offset - e.spacing[i]/2
			offset += size + e.spacing[i]/2
		} else {
			e.offsets[i] = offset
			e.boundaries[i] = offset - fixed/2
			offset += size + e.spacing[i]
		}
	}
	e.length = offset + e.cfg.SpacingBottom
}

// PageCount returns the number of laid out pages.
func (e *Engine) PageCount() int {
	return len(e.natural)
}

func (e *Engine) valid(i int) bool {
	return i >= 0 && i < len(e.sizes)
}

// PageSize returns the fitted size of page i at zoom 1.
func (e *Engine) PageSize(i int) geom.Size {
	if !e.valid(i) {
		return geom.Size{}
	}
	return e.sizes[i]
}

// ScaledPageSize returns the fitted size of page i at zoom.
func (e *Engine) ScaledPageSize(i int, zoom float64) geom.Size {
	return e.PageSize(i).Scale(zoom)
}

// PageLength returns the extent of page i along the scroll axis.
func (e *Engine) PageLength(i int, zoom float64) float64 {
	return e.PageSize(i).Primary(e.Horizontal()) * zoom
}

// PageSpacing returns the space that follows page i.
func (e *Engine) PageSpacing(i int, zoom float64) float64 {
	if !e.valid(i) {
		return 0
	}
	return e.spacing[i] * zoom
}

// PageOffset returns the scroll-axis position of page i.
func (e *Engine) PageOffset(i int, zoom float64) float64 {
	if !e.valid(i) {
		return 0
	}
	return e.offsets[i] * zoom
}

// SecondaryOffset centres page i on the cross axis.
func (e *Engine) SecondaryOffset(i int, zoom float64) float64 {
	if !e.valid(i) {
		return 0
	}
	horizontal := e.Horizontal()
	return zoom * (e.maxPage.Cross(horizontal) - e.sizes[i].Cross(horizontal)) / 2
}

// PageAtOffset returns the last page whose start, less half of the gap in
// front of it, is at or before offset. Boundaries increase strictly, so a
// binary search replaces the linear scan.
func (e *Engine) PageAtOffset(offset, zoom float64) int {
	n := len(e.boundaries)
	if n == 0 {
		return 0
	}
	count := sort.Search(n, func(i int) bool {
		return e.boundaries[i]*zoom > offset
	})
	page := count - 1
	if page < 0 {
		return 0
	}
	return page
}

// DocumentLength returns the total scroll-axis length.
func (e *Engine) DocumentLength(zoom float64) float64 {
	return e.length * zoom
}

// MaxPageSize returns the largest fitted width and height at zoom 1.
func (e *Engine) MaxPageSize() geom.Size {
	return e.maxPage
}

// PageBounds returns the rect of page i in document space at zoom.
func (e *Engine) PageBounds(i int, zoom float64) geom.Rect {
	if !e.valid(i) {
		return geom.Rect{}
	}
	size := e.ScaledPageSize(i, zoom)
	primary := e.PageOffset(i, zoom)
	cross := e.SecondaryOffset(i, zoom)
	if e.Horizontal() {
		return geom.Rect{Left: primary, Top: cross, Right: primary + size.W, Bottom: cross + size.H}
	}
	return geom.Rect{Left: cross, Top: primary, Right: cross + size.W, Bottom: primary + size.H}
}
