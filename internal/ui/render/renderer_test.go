package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/config"
	"github.com/kk-code-lab/rdoc/internal/document"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
	"github.com/kk-code-lab/rdoc/internal/textdoc"
)

// newTestView lays out four 20x5 cell pages on a 20x11 simulation screen,
// so exactly two pages are visible above the status line.
func newTestView(t *testing.T) (*Renderer, tcell.SimulationScreen, *statepkg.AppState) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(20, 11)

	cfg := config.Default()
	cfg.CellWidth, cfg.CellHeight = 10, 20
	cfg.MinColumns, cfg.LinesPerPage = 20, 5
	cfg.Spacing = 0

	pages := []string{"alpha one", "beta two", "alpha three", "gamma"}
	doc, err := document.Load(textdoc.New(pages, cfg.TextDoc()), document.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	state := statepkg.New(doc, "/tmp/notes.txt", cfg, nil, func(statepkg.Action) {})
	t.Cleanup(func() { _ = state.Close() })
	if _, err := statepkg.NewStateReducer().Reduce(state, statepkg.ResizeAction{Width: 20, Height: 11}); err != nil {
		t.Fatalf("resize: %v", err)
	}
	return NewRenderer(screen), screen, state
}

func rowText(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		mainc, _, _, _ := screen.GetContent(x, y)
		if mainc == 0 {
			mainc = ' '
		}
		b.WriteRune(mainc)
	}
	return b.String()
}

func background(screen tcell.Screen, x, y int) tcell.Color {
	_, _, style, _ := screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestRenderDrawsVisiblePages(t *testing.T) {
	r, screen, state := newTestView(t)
	r.Render(state)

	if got := rowText(screen, 0); !strings.HasPrefix(got, "alpha one ") {
		t.Fatalf("row 0 = %q", got)
	}
	if got := rowText(screen, 5); !strings.HasPrefix(got, "beta two ") {
		t.Fatalf("row 5 = %q", got)
	}
	if got := background(screen, 15, 3); got != r.theme.PageBg {
		t.Fatalf("page area background = %v", got)
	}
	status := rowText(screen, 10)
	if !strings.HasPrefix(status, "notes.tx") || !strings.Contains(status, "1/4 · 100%") {
		t.Fatalf("status line = %q", status)
	}
}

func TestRenderMarksSelection(t *testing.T) {
	r, screen, state := newTestView(t)
	state.Selection.SetSelection(0, 0, 5)
	r.Render(state)

	for x := 0; x < 5; x++ {
		if got := background(screen, x, 0); got != r.theme.SelectionBg {
			t.Fatalf("cell %d background = %v, want selection", x, got)
		}
	}
	if got := background(screen, 6, 0); got != r.theme.PageBg {
		t.Fatalf("cell 6 background = %v, want page", got)
	}
	if mainc, _, _, _ := screen.GetContent(2, 0); mainc != 'p' {
		t.Fatalf("restyled cell lost its rune: %q", mainc)
	}
}

func TestRenderShowsSearchPrompt(t *testing.T) {
	r, screen, state := newTestView(t)
	state.SearchPromptActive = true
	state.SearchQuery = "alp"
	r.Render(state)

	if got := rowText(screen, 10); !strings.HasPrefix(got, "/alp") {
		t.Fatalf("prompt row = %q", got)
	}
	x, y, visible := screen.GetCursor()
	if !visible || x != 4 || y != 10 {
		t.Fatalf("cursor = (%d,%d,%v)", x, y, visible)
	}
}

func TestRenderShowsPageError(t *testing.T) {
	r, screen, state := newTestView(t)
	state.PageErrors[1] = errors.New("boom")
	r.Render(state)

	if got := rowText(screen, 7); !strings.Contains(got, "page 2") {
		t.Fatalf("error row = %q", got)
	}
	if got := rowText(screen, 5); strings.Contains(got, "beta") {
		t.Fatalf("failed page should not draw text: %q", got)
	}
}

func TestRenderHelpOverlay(t *testing.T) {
	r, screen, state := newTestView(t)
	state.HelpVisible = true
	r.Render(state)
	if got := rowText(screen, 0); !strings.Contains(got, "Help") {
		t.Fatalf("help title row = %q", got)
	}
}

func TestFormatStatusRight(t *testing.T) {
	cases := []struct {
		name string
		st   statepkg.Status
		want string
	}{
		{"plain", statepkg.Status{Page: 2, Pages: 10, Zoom: 1.5}, "3/10 · 150%"},
		{"empty document", statepkg.Status{Zoom: 1}, "-/0 · 100%"},
		{"matches", statepkg.Status{Pages: 3, Zoom: 1, Query: "x", MatchPos: 2, MatchTotal: 7}, "2/7 · 1/3 · 100%"},
		{"running", statepkg.Status{Pages: 3, Zoom: 1, Query: "x", MatchPos: 1, MatchTotal: 12345, Searching: true}, "1/12.3k… · 1/3 · 100%"},
		{"no matches", statepkg.Status{Pages: 3, Zoom: 1, Query: "x"}, "no matches · 1/3 · 100%"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := formatStatusRight(c.st); got != c.want {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
}

func TestTruncateTextToWidth(t *testing.T) {
	r := NewRenderer(nil)
	tests := []struct {
		name   string
		text   string
		width  int
		expect string
	}{
		{"fits without truncation", "file.txt", 20, "file.txt"},
		{"adds ellipsis when needed", "verylongname", 6, "veryl…"},
		{"only ellipsis when width too small", "example", 1, "…"},
		{"multi-byte characters respected", "你好世界", 5, "你好…"},
		{"returns empty when width is zero", "anything", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.truncateTextToWidth(tt.text, tt.width); got != tt.expect {
				t.Fatalf("expected %q, got %q (width %d)", tt.expect, got, tt.width)
			}
		})
	}
	if got := r.truncateLeft("needle in a haystack", 8); got != "…aystack" {
		t.Fatalf("truncateLeft = %q", got)
	}
}

func TestMeasureTextWidth(t *testing.T) {
	r := NewRenderer(nil)
	if got := r.measureTextWidth("abc"); got != 3 {
		t.Fatalf("expected ASCII width 3, got %d", got)
	}
	if got := r.measureTextWidth("你好"); got != 4 {
		t.Fatalf("expected wide rune width 4, got %d", got)
	}
}

func TestFooterHintsFollowContext(t *testing.T) {
	_, _, state := newTestView(t)
	if got := buildFooterHelpText(state); got != "/: search  ?: help  q: quit" {
		t.Fatalf("default hints = %q", got)
	}
	state.Selection.SetSelection(0, 0, 2)
	if got := buildFooterHelpSegments(state); got[0] != "y: yank" || len(got) != 2 {
		t.Fatalf("selection hints = %v", got)
	}
}
