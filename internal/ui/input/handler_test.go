package input

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

// recorder collects emitted actions and hands them out once.
type recorder struct {
	actions []statepkg.Action
}

func (r *recorder) emit(a statepkg.Action) {
	r.actions = append(r.actions, a)
}

func (r *recorder) take() []statepkg.Action {
	out := r.actions
	r.actions = nil
	return out
}

func TestNormalModeKeys(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want statepkg.Action
	}{
		{"down", tcell.NewEventKey(tcell.KeyDown, 0, 0), statepkg.ScrollCellsAction{Rows: 1}},
		{"up", tcell.NewEventKey(tcell.KeyUp, 0, 0), statepkg.ScrollCellsAction{Rows: -1}},
		{"right", tcell.NewEventKey(tcell.KeyRight, 0, 0), statepkg.ScrollCellsAction{Cols: 1}},
		{"page down", tcell.NewEventKey(tcell.KeyPgDn, 0, 0), statepkg.ScrollScreenAction{Forward: true}},
		{"home", tcell.NewEventKey(tcell.KeyHome, 0, 0), statepkg.JumpToPageAction{Page: 0}},
		{"end", tcell.NewEventKey(tcell.KeyEnd, 0, 0), statepkg.JumpLastPageAction{}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, 0), statepkg.ClearAction{}},
		{"recycle", tcell.NewEventKey(tcell.KeyCtrlL, 0, 0), statepkg.RecycleAction{}},
		{"suspend", tcell.NewEventKey(tcell.KeyCtrlZ, 0, 0), statepkg.SuspendAction{}},
		{"zoom in", tcell.NewEventKey(tcell.KeyRune, '+', 0), statepkg.ZoomAction{Delta: zoomStep, Col: -1, Row: -1}},
		{"zoom out", tcell.NewEventKey(tcell.KeyRune, '-', 0), statepkg.ZoomAction{Delta: 1 / zoomStep, Col: -1, Row: -1}},
		{"next page", tcell.NewEventKey(tcell.KeyRune, ' ', 0), statepkg.JumpToPageAction{Page: 1, Snap: true}},
		{"previous page clamps", tcell.NewEventKey(tcell.KeyRune, 'b', 0), statepkg.JumpToPageAction{Page: 0, Snap: true}},
		{"search", tcell.NewEventKey(tcell.KeyRune, '/', 0), statepkg.SearchPromptStartAction{}},
		{"next match", tcell.NewEventKey(tcell.KeyRune, 'n', 0), statepkg.SearchNextAction{}},
		{"previous match", tcell.NewEventKey(tcell.KeyRune, 'N', 0), statepkg.SearchPrevAction{}},
		{"yank", tcell.NewEventKey(tcell.KeyRune, 'y', 0), statepkg.YankSelectionAction{}},
		{"save highlight", tcell.NewEventKey(tcell.KeyRune, 'h', 0), statepkg.SaveHighlightAction{}},
		{"help", tcell.NewEventKey(tcell.KeyRune, '?', 0), statepkg.ToggleHelpAction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			handler := NewInputHandler(rec.emit)
			handler.SetState(&statepkg.AppState{})
			if !handler.ProcessEvent(tt.ev) {
				t.Fatalf("key should not quit")
			}
			if diff := cmp.Diff([]statepkg.Action{tt.want}, rec.take()); diff != "" {
				t.Fatalf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuitKeys(t *testing.T) {
	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', 0),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	} {
		rec := &recorder{}
		handler := NewInputHandler(rec.emit)
		if handler.ProcessEvent(ev) {
			t.Fatalf("%v should quit", ev.Name())
		}
		if got := rec.take(); len(got) != 1 || got[0] != (statepkg.QuitAction{}) {
			t.Fatalf("expected QuitAction")
		}
	}
}

func TestPromptCapturesEveryRune(t *testing.T) {
	rec := &recorder{}
	handler := NewInputHandler(rec.emit)
	handler.SetState(&statepkg.AppState{SearchPromptActive: true})

	for _, r := range "qn/" {
		handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, r, 0))
	}
	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyBackspace2, 0, 0))
	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyEnter, 0, 0))
	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyEscape, 0, 0))

	want := []statepkg.Action{
		statepkg.SearchPromptCharAction{Char: 'q'},
		statepkg.SearchPromptCharAction{Char: 'n'},
		statepkg.SearchPromptCharAction{Char: '/'},
		statepkg.SearchPromptBackspaceAction{},
		statepkg.SearchPromptSubmitAction{},
		statepkg.SearchPromptCancelAction{},
	}
	if diff := cmp.Diff(want, rec.take()); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpSwallowsKeys(t *testing.T) {
	rec := &recorder{}
	handler := NewInputHandler(rec.emit)
	handler.SetState(&statepkg.AppState{HelpVisible: true, SearchPromptActive: true})

	handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, 'n', 0))
	if got := rec.take(); len(got) != 0 {
		t.Fatalf("help should swallow keys, got %v", got)
	}
	if !handler.ProcessEvent(tcell.NewEventKey(tcell.KeyRune, 'q', 0)) {
		t.Fatalf("q closes help instead of quitting")
	}
	if diff := cmp.Diff([]statepkg.Action{statepkg.ToggleHelpAction{}}, rec.take()); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestResizeEvent(t *testing.T) {
	rec := &recorder{}
	handler := NewInputHandler(rec.emit)
	handler.ProcessEvent(tcell.NewEventResize(80, 24))
	if got := rec.take(); len(got) != 1 || got[0] != (statepkg.ResizeAction{Width: 80, Height: 24}) {
		t.Fatalf("got %#v", got)
	}
}
