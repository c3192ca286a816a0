package input

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/search"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

// zoomStep is the factor applied by one +/- key press.
const zoomStep = 1.25

// InputHandler converts tcell events to Actions
type InputHandler struct {
	emit  func(statepkg.Action)
	state *statepkg.AppState // Reference to current state for mode checking
}

// NewInputHandler creates a new input handler. emit runs on the UI
// goroutine and must not block.
func NewInputHandler(emit func(statepkg.Action)) *InputHandler {
	return &InputHandler{
		emit: emit,
	}
}

// SetState sets the state reference for mode checking
func (ih *InputHandler) SetState(state *statepkg.AppState) {
	ih.state = state
}

// ProcessEvent converts a tcell event into actions. It returns false when
// the application should quit.
func (ih *InputHandler) ProcessEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return ih.processKeyEvent(ev)
	case *tcell.EventResize:
		w, h := ev.Size()
		ih.emit(statepkg.ResizeAction{Width: w, Height: h})
		return true
	default:
		return true
	}
}

func (ih *InputHandler) processKeyEvent(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		ih.emit(statepkg.QuitAction{})
		return false
	}

	if ih.state != nil && ih.state.HelpVisible {
		switch {
		case ev.Key() == tcell.KeyEscape:
			ih.emit(statepkg.ToggleHelpAction{})
		case ev.Key() == tcell.KeyRune && (ev.Rune() == '?' || ev.Rune() == 'q'):
			ih.emit(statepkg.ToggleHelpAction{})
		}
		return true
	}

	if ih.state != nil && ih.state.SearchPromptActive {
		ih.processPromptKey(ev)
		return true
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		if ih.state != nil && ih.state.Search != nil && ih.state.Search.Status() == search.StatusRunning {
			ih.emit(statepkg.SearchAbortAction{})
		} else {
			ih.emit(statepkg.ClearAction{})
		}
	case tcell.KeyCtrlZ:
		ih.emit(statepkg.SuspendAction{})
	case tcell.KeyCtrlL:
		ih.emit(statepkg.RecycleAction{})
	case tcell.KeyUp:
		ih.emit(statepkg.ScrollCellsAction{Rows: -1})
	case tcell.KeyDown:
		ih.emit(statepkg.ScrollCellsAction{Rows: 1})
	case tcell.KeyLeft:
		ih.emit(statepkg.ScrollCellsAction{Cols: -1})
	case tcell.KeyRight:
		ih.emit(statepkg.ScrollCellsAction{Cols: 1})
	case tcell.KeyPgUp:
		ih.emit(statepkg.ScrollScreenAction{Forward: false})
	case tcell.KeyPgDn:
		ih.emit(statepkg.ScrollScreenAction{Forward: true})
	case tcell.KeyHome:
		ih.emit(statepkg.JumpToPageAction{Page: 0})
	case tcell.KeyEnd:
		ih.emit(statepkg.JumpLastPageAction{})
	case tcell.KeyRune:
		return ih.processRune(ev.Rune())
	}
	return true
}

func (ih *InputHandler) processPromptKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ih.emit(statepkg.SearchPromptCancelAction{})
	case tcell.KeyEnter:
		ih.emit(statepkg.SearchPromptSubmitAction{})
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		ih.emit(statepkg.SearchPromptBackspaceAction{})
	case tcell.KeyRune:
		ih.emit(statepkg.SearchPromptCharAction{Char: ev.Rune()})
	}
}

func (ih *InputHandler) processRune(r rune) bool {
	switch r {
	case 'q':
		ih.emit(statepkg.QuitAction{})
		return false
	case 'j':
		ih.emit(statepkg.ScrollCellsAction{Rows: 1})
	case 'k':
		ih.emit(statepkg.ScrollCellsAction{Rows: -1})
	case ' ':
		ih.emit(statepkg.JumpToPageAction{Page: ih.currentPage() + 1, Snap: true})
	case 'b':
		ih.emit(statepkg.JumpToPageAction{Page: max(ih.currentPage()-1, 0), Snap: true})
	case 'g':
		ih.emit(statepkg.JumpToPageAction{Page: 0})
	case 'G':
		ih.emit(statepkg.JumpLastPageAction{})
	case 's':
		ih.emit(statepkg.PageSnapAction{})
	case '+', '=':
		ih.emit(statepkg.ZoomAction{Delta: zoomStep, Col: -1, Row: -1})
	case '-':
		ih.emit(statepkg.ZoomAction{Delta: 1 / zoomStep, Col: -1, Row: -1})
	case 'z':
		ih.emit(statepkg.ZoomCycleAction{Col: -1, Row: -1})
	case '0':
		ih.emit(statepkg.ZoomResetAction{})
	case 'f':
		ih.emit(statepkg.CycleFitAction{})
	case 'o':
		ih.emit(statepkg.ToggleOrientationAction{})
	case 'a':
		ih.emit(statepkg.ToggleAutoSpacingAction{})
	case '/':
		ih.emit(statepkg.SearchPromptStartAction{})
	case 'n':
		ih.emit(statepkg.SearchNextAction{})
	case 'N':
		ih.emit(statepkg.SearchPrevAction{})
	case 'w':
		ih.emit(statepkg.ToggleWholeWordAction{})
	case 'y':
		ih.emit(statepkg.YankSelectionAction{})
	case 'h':
		ih.emit(statepkg.SaveHighlightAction{})
	case 'H':
		ih.emit(statepkg.NextHighlightAction{})
	case '?':
		ih.emit(statepkg.ToggleHelpAction{})
	}
	return true
}

func (ih *InputHandler) currentPage() int {
	if ih.state == nil || ih.state.Viewport == nil {
		return 0
	}
	return max(ih.state.Viewport.CurrentPage(), 0)
}
