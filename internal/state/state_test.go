package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kk-code-lab/rdoc/internal/geom"
	"github.com/kk-code-lab/rdoc/internal/textdoc"
)

func TestScreenCellRoundTrip(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	p := f.state.CellToScreen(3, 4)
	if p != (geom.Point{X: 35, Y: 90}) {
		t.Fatalf("CellToScreen=%+v", p)
	}
	if col, row := f.state.ScreenToCell(p); col != 3 || row != 4 {
		t.Fatalf("ScreenToCell=(%d,%d)", col, row)
	}
	if col, row := f.state.ScreenToCell(geom.Point{X: -1, Y: -21}); col != -1 || row != -2 {
		t.Fatalf("negative points must floor, got (%d,%d)", col, row)
	}
}

func TestPageRectToScreenFollowsScroll(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.reduce(t, ScrollCellsAction{Rows: 2})
	r := f.state.PageRectToScreen(1, geom.Rect{Left: 10, Top: 0, Right: 20, Bottom: 20})
	want := geom.Rect{Left: 10, Top: 60, Right: 20, Bottom: 80}
	if r != want {
		t.Fatalf("rect=%+v want %+v", r, want)
	}
}

func TestFarPagesAreReleased(t *testing.T) {
	cfg := testConfig()
	cfg.EvictDistance = 1
	f := newFixture(t, cfg, nil)
	for page := 0; page < 4; page++ {
		if _, err := f.state.PageText(page); err != nil {
			t.Fatalf("PageText(%d): %v", page, err)
		}
	}
	f.reduce(t, JumpLastPageAction{})
	if got := f.state.OpenPages(); got != 2 {
		t.Fatalf("open pages=%d want 2", got)
	}
}

func TestSelectedPagesAreNotReleased(t *testing.T) {
	cfg := testConfig()
	cfg.EvictDistance = 1
	f := newFixture(t, cfg, nil)
	for page := 0; page < 4; page++ {
		if _, err := f.state.PageText(page); err != nil {
			t.Fatalf("PageText(%d): %v", page, err)
		}
	}
	f.state.Selection.SetSelection(0, 0, 5)
	f.reduce(t, JumpLastPageAction{})
	if got := f.state.OpenPages(); got != 3 {
		t.Fatalf("open pages=%d want 3", got)
	}
	if got := f.state.Selection.Text(); got != "alpha" {
		t.Fatalf("selection lost its text: %q", got)
	}
}

func TestPageErrorIsRecorded(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	boom := errors.New("boom")
	f.reduce(t, PageErrorAction{Page: 2, Err: boom})
	if !errors.Is(f.state.PageErrors[2], boom) {
		t.Fatalf("PageErrors=%v", f.state.PageErrors)
	}
}

func TestOpenDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	body := strings.Repeat("line\n", 12)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := testConfig()
	doc, err := OpenDocument(path, cfg, nil, nil)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	defer doc.Close()
	if doc.PageCount() != 3 {
		t.Fatalf("pages=%d want 3", doc.PageCount())
	}

	cfg.MaxFileSize = "10B"
	if _, err := OpenDocument(path, cfg, nil, nil); !errors.Is(err, textdoc.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
