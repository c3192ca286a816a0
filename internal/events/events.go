// Package events is the single typed stream the viewer core reports
// through. Every variant implements Event; subscribers switch on the
// concrete type.
package events

import (
	"sort"
	"sync"

	"github.com/kk-code-lab/rdoc/internal/geom"
)

// Event is one notification from the core.
type Event interface {
	isEvent()
}

// PageChanged reports a new current page.
type PageChanged struct {
	Page  int
	Total int
}

// Scrolled reports the scroll position normalised to [0, 1].
type Scrolled struct {
	Page       int
	Offset     float64
	MoveHandle bool
}

// SearchBegin opens a search session.
type SearchBegin struct {
	Query string
}

// SearchMatchFound reports a page with at least one match.
type SearchMatchFound struct {
	Page        int
	TotalOnPage int
	Query       string
}

// SearchEnd closes a search session.
type SearchEnd struct {
	Query   string
	Aborted bool
	Total   int
}

// SelectionChanged fires while a selection is created or dragged.
type SelectionChanged struct {
	InProgress bool
}

// SelectionEnded carries a finished selection and its packed range.
type SelectionEnded struct {
	Text    string
	Page    int
	RangeID int64
	Rect    geom.Rect
}

// Dirty flags name what a RenderRequest invalidated.
type Dirty uint8

const (
	DirtyOffset Dirty = 1 << iota
	DirtyZoom
	DirtySelection
	DirtySearch
	DirtyLayout
)

// RenderRequest asks the renderer to redraw.
type RenderRequest struct {
	Dirty Dirty
}

// PageError reports a page that failed to open.
type PageError struct {
	Page int
	Err  error
}

// LoadError reports that the document could not be loaded.
type LoadError struct {
	Err error
}

func (PageChanged) isEvent()      {}
func (Scrolled) isEvent()         {}
func (SearchBegin) isEvent()      {}
func (SearchMatchFound) isEvent() {}
func (SearchEnd) isEvent()        {}
func (SelectionChanged) isEvent() {}
func (SelectionEnded) isEvent()   {}
func (RenderRequest) isEvent()    {}
func (PageError) isEvent()        {}
func (LoadError) isEvent()        {}

// Bus fans events out to one subscriber set. Publish runs subscribers
// synchronously on the caller's goroutine, which is always the UI loop.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers ev to every subscriber in subscription order.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
