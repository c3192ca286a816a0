package state

// ===== REDUCER TESTS =====
//
// Tests are split by concern:
// - reducer_view_test.go: resize, scroll, zoom, relayout and recycle
// - reducer_selection_test.go: pointer selection, highlights
// - reducer_search_test.go: search prompt, worker messages, navigation
// - state_test.go: coordinate helpers, page eviction, document loading

import (
	"testing"
	"time"

	"github.com/kk-code-lab/rdoc/internal/config"
	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/highlight"
	"github.com/kk-code-lab/rdoc/internal/search"
	"github.com/kk-code-lab/rdoc/internal/textdoc"
)

var fixturePages = []string{"alpha one", "beta two", "alpha three", "gamma"}

// fixture is a four page document. Every page is 200x100 units and the
// screen is 20x11 cells of 10x20 units, so the view is 200x200 and two
// pages fit on screen at zoom 1.
type fixture struct {
	state   *AppState
	reducer *StateReducer
	actions chan Action
	events  []events.Event
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CellWidth = 10
	cfg.CellHeight = 20
	cfg.MinColumns = 20
	cfg.LinesPerPage = 5
	cfg.Spacing = 0
	return cfg
}

func newFixture(t *testing.T, cfg config.Config, store *highlight.Store) *fixture {
	t.Helper()
	opts := cfg.TextDoc()
	f := &fixture{reducer: NewStateReducer(), actions: make(chan Action, 64)}
	doc, err := document.Load(textdoc.New(fixturePages, opts), document.Options{
		OnPageError: func(page int, err error) {
			f.actions <- PageErrorAction{Page: page, Err: err}
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.state = New(doc, "fixture.txt", cfg, store, func(a Action) { f.actions <- a })
	f.state.Bus.Subscribe(func(ev events.Event) { f.events = append(f.events, ev) })
	t.Cleanup(func() { _ = f.state.Close() })
	f.reduce(t, ResizeAction{Width: 20, Height: 11})
	return f
}

func (f *fixture) reduce(t *testing.T, a Action) {
	t.Helper()
	if _, err := f.reducer.Reduce(f.state, a); err != nil {
		t.Fatalf("Reduce(%T): %v", a, err)
	}
}

// waitSearch feeds dispatched actions back into the reducer until the
// search session stops running.
func (f *fixture) waitSearch(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for f.state.Search.Status() == search.StatusRunning {
		select {
		case a := <-f.actions:
			f.reduce(t, a)
		case <-deadline:
			t.Fatalf("timed out waiting for search")
		}
	}
}
