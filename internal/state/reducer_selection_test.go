package state

import (
	"errors"
	"testing"

	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/highlight"
	"github.com/kk-code-lab/rdoc/internal/selection"
)

func TestCellToChar(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	cases := []struct {
		col, row   int
		page, char int
		ok         bool
	}{
		{2, 0, 0, 2, true},
		{0, 5, 1, 0, true},
		{3, 5, 1, 3, true},
		{19, 0, 0, -1, true},
	}
	for _, c := range cases {
		page, char, ok := f.state.CellToChar(c.col, c.row)
		if page != c.page || char != c.char || ok != c.ok {
			t.Fatalf("CellToChar(%d,%d)=(%d,%d,%v) want (%d,%d,%v)",
				c.col, c.row, page, char, ok, c.page, c.char, c.ok)
		}
	}
}

func TestDragSelectsBothDirections(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.reduce(t, DragStartAction{Col: 2, Row: 0})
	f.reduce(t, DragMoveAction{Col: 4, Row: 0})
	if got := f.state.Selection.Text(); got != "pha" {
		t.Fatalf("forward drag selected %q", got)
	}
	f.reduce(t, DragMoveAction{Col: 0, Row: 0})
	if got := f.state.Selection.Text(); got != "alp" {
		t.Fatalf("backward drag selected %q", got)
	}

	f.events = nil
	f.reduce(t, DragEndAction{})
	var ended bool
	for _, ev := range f.events {
		if e, ok := ev.(events.SelectionEnded); ok && e.Page == 0 {
			ended = true
		}
	}
	if !ended {
		t.Fatalf("expected SelectionEnded, got %v", f.events)
	}

	// A move after the drag ended must not change anything.
	f.reduce(t, DragMoveAction{Col: 8, Row: 0})
	if got := f.state.Selection.Text(); got != "alp" {
		t.Fatalf("selection changed after drag end: %q", got)
	}
}

func TestLongPressSelectsWord(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.reduce(t, LongPressAction{Col: 7, Row: 0})
	if got := f.state.Selection.Text(); got != "one" {
		t.Fatalf("selected %q want one", got)
	}
	f.reduce(t, TapAction{Col: 7, Row: 0})
	if f.state.Selection.Active() {
		t.Fatalf("tap should clear the selection")
	}
}

func TestJumpAndHighlightValidatesRange(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	bad := []JumpAndHighlightAction{
		{Page: 0, Packed: selection.PackRange(3, 3)},
		{Page: 0, Packed: selection.PackRange(4, 2)},
		{Page: 0, Packed: selection.PackRange(-1, 2)},
		{Page: 9, Packed: selection.PackRange(0, 2)},
	}
	for _, a := range bad {
		if _, err := f.reducer.Reduce(f.state, a); !errors.Is(err, ErrInvalidHighlight) {
			t.Fatalf("%+v: expected ErrInvalidHighlight, got %v", a, err)
		}
	}

	f.reduce(t, JumpAndHighlightAction{Page: 2, Packed: selection.PackRange(0, 5)})
	if got := f.state.Selection.Text(); got != "alpha" {
		t.Fatalf("selected %q", got)
	}
	if got := f.state.Viewport.Offset().Y; got != -110 {
		t.Fatalf("highlight not revealed, offset=%v", got)
	}
}

func TestSaveAndCycleHighlights(t *testing.T) {
	store, err := highlight.Open(":memory:", highlight.DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	f := newFixture(t, testConfig(), store)

	f.reduce(t, SaveHighlightAction{})
	if f.state.StatusMessage != "nothing selected" {
		t.Fatalf("status=%q", f.state.StatusMessage)
	}

	f.reduce(t, DragStartAction{Col: 2, Row: 0})
	f.reduce(t, DragMoveAction{Col: 4, Row: 0})
	f.reduce(t, DragEndAction{})
	f.reduce(t, SaveHighlightAction{Note: " greek "})
	if len(f.state.Saved) != 1 || f.state.Saved[0].Note != "greek" {
		t.Fatalf("saved=%+v", f.state.Saved)
	}
	if f.state.Selection.Active() {
		t.Fatalf("saving should clear the selection")
	}
	if got := f.state.SavedOnPage(0); len(got) != 1 {
		t.Fatalf("SavedOnPage(0)=%v", got)
	}

	f.reduce(t, TapAction{Col: 3, Row: 0})
	if f.state.StatusMessage != "highlight: greek" {
		t.Fatalf("tap on highlight status=%q", f.state.StatusMessage)
	}

	f.reduce(t, NextHighlightAction{})
	if got := f.state.Selection.Text(); got != "pha" {
		t.Fatalf("next highlight selected %q", got)
	}

	f.reduce(t, DeleteHighlightAction{ID: f.state.Saved[0].ID})
	if len(f.state.Saved) != 0 {
		t.Fatalf("highlight not deleted: %+v", f.state.Saved)
	}
	f.reduce(t, NextHighlightAction{})
	if f.state.StatusMessage != "no saved highlights" {
		t.Fatalf("status=%q", f.state.StatusMessage)
	}
}

func TestSaveHighlightWithoutStore(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.reduce(t, LongPressAction{Col: 0, Row: 0})
	f.reduce(t, SaveHighlightAction{})
	if f.state.StatusMessage != "highlights are disabled" {
		t.Fatalf("status=%q", f.state.StatusMessage)
	}
}
