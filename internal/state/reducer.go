package state

import (
	"errors"
	"fmt"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/geom"
	"github.com/kk-code-lab/rdoc/internal/layout"
	"github.com/kk-code-lab/rdoc/internal/selection"
)

// ErrInvalidHighlight is returned for a packed range that is empty,
// inverted or on a page the document does not have.
var ErrInvalidHighlight = errors.New("invalid highlight range")

// screenScrollFraction is how much of the view a page-up/down moves.
const screenScrollFraction = 0.9

// StateReducer applies actions to an AppState.
type StateReducer struct {
	dragAnchor selection.Endpoint
}

// NewStateReducer creates a new reducer
func NewStateReducer() *StateReducer {
	return &StateReducer{}
}

// Reduce applies one action. It always runs on the UI loop.
func (r *StateReducer) Reduce(state *AppState, action Action) (*AppState, error) {
	switch a := action.(type) {

	// ===== SCROLL & ZOOM =====

	case ResizeAction:
		state.ScreenWidth, state.ScreenHeight = a.Width, a.Height
		v := state.viewSize()
		state.Viewport.Resize(v.W, v.H)
		return state, nil

	case ScrollCellsAction:
		state.Viewport.MoveRelativeTo(-float64(a.Cols)*state.Cell.W, -float64(a.Rows)*state.Cell.H)
		return state, nil

	case ScrollScreenAction:
		v := state.viewSize()
		dist := v.Primary(state.Layout.Horizontal()) * screenScrollFraction
		if a.Forward {
			dist = -dist
		}
		if state.Layout.Horizontal() {
			state.Viewport.MoveRelativeTo(dist, 0)
		} else {
			state.Viewport.MoveRelativeTo(0, dist)
		}
		return state, nil

	case ZoomAction:
		state.Viewport.ZoomCenteredRelativeTo(a.Delta, r.pivot(state, a.Col, a.Row))
		return state, nil

	case ZoomCycleAction:
		state.Viewport.CycleZoom(r.pivot(state, a.Col, a.Row))
		return state, nil

	case ZoomResetAction:
		state.Viewport.ZoomCenteredTo(state.Viewport.Config().MinZoom, r.pivot(state, -1, -1))
		return state, nil

	// ===== PAGES =====

	case JumpToPageAction:
		if a.Snap {
			state.Viewport.JumpToWithSnap(a.Page)
		} else {
			state.Viewport.JumpTo(a.Page)
		}
		return state, nil

	case JumpLastPageAction:
		state.Viewport.JumpTo(state.Doc.PageCount() - 1)
		return state, nil

	case PageSnapAction:
		state.Viewport.PerformPageSnap()
		return state, nil

	case FlingAction:
		state.Viewport.Fling(a.Forward)
		return state, nil

	case SetPositionAction:
		state.Viewport.SetPositionOffset(a.Offset, false)
		return state, nil

	case CycleFitAction:
		cfg := state.Layout.Config()
		cfg.Fit = (cfg.Fit + 1) % 3
		r.relayout(state, cfg)
		state.StatusMessage = "fit " + cfg.Fit.String()
		return state, nil

	case ToggleOrientationAction:
		cfg := state.Layout.Config()
		if cfg.Orientation == layout.Vertical {
			cfg.Orientation = layout.Horizontal
			state.Config.Orientation = "horizontal"
		} else {
			cfg.Orientation = layout.Vertical
			state.Config.Orientation = "vertical"
		}
		r.relayout(state, cfg)
		return state, nil

	case ToggleAutoSpacingAction:
		cfg := state.Layout.Config()
		cfg.AutoSpacing = !cfg.AutoSpacing
		state.Config.AutoSpacing = cfg.AutoSpacing
		r.relayout(state, cfg)
		return state, nil

	// ===== POINTER =====

	case TapAction:
		if state.Selection.Active() {
			state.Selection.Clear()
			return state, nil
		}
		page, char, ok := state.CellToChar(a.Col, a.Row)
		if !ok || char < 0 {
			return state, nil
		}
		for _, h := range state.SavedOnPage(page) {
			if start, end := h.Range(); char >= start && char < end {
				state.StatusMessage = "highlight"
				if h.Note != "" {
					state.StatusMessage += ": " + h.Note
				}
				return state, nil
			}
		}
		return state, nil

	case LongPressAction:
		page, char, ok := state.CellToChar(a.Col, a.Row)
		if !ok || char < 0 {
			return state, nil
		}
		if state.Selection.SelectWordAt(page, char) {
			state.Selection.Finish()
		}
		return state, nil

	case DragStartAction:
		page, char, ok := state.CellToChar(a.Col, a.Row)
		if !ok || char < 0 {
			return state, nil
		}
		if state.Selection.SetSelection(page, char, char+1) {
			state.dragging = true
			r.dragAnchor = selection.Endpoint{Page: page, Char: char}
		}
		return state, nil

	case DragMoveAction:
		if !state.dragging {
			return state, nil
		}
		page, char, ok := state.CellToChar(a.Col, a.Row)
		if !ok || char < 0 {
			return state, nil
		}
		r.dragTo(state, selection.Endpoint{Page: page, Char: char})
		return state, nil

	case DragEndAction:
		if !state.dragging {
			return state, nil
		}
		state.dragging = false
		state.Selection.Finish()
		return state, nil

	case DragHandleAction:
		page, char, ok := state.CellToChar(a.Col, a.Row)
		if !ok || char < 0 {
			return state, nil
		}
		if !a.Start {
			char++
		}
		state.Selection.ExtendSelection(page, char, a.Start)
		return state, nil

	// ===== SEARCH =====

	case SearchPromptStartAction:
		state.SearchPromptActive = true
		state.SearchQuery = ""
		return state, nil

	case SearchPromptCharAction:
		if state.SearchPromptActive {
			state.SearchQuery += string(a.Char)
		}
		return state, nil

	case SearchPromptBackspaceAction:
		if state.SearchPromptActive && state.SearchQuery != "" {
			runes := []rune(state.SearchQuery)
			state.SearchQuery = string(runes[:len(runes)-1])
		}
		return state, nil

	case SearchPromptSubmitAction:
		if !state.SearchPromptActive {
			return state, nil
		}
		state.SearchPromptActive = false
		return r.Reduce(state, SearchStartAction{Query: state.SearchQuery})

	case SearchPromptCancelAction:
		state.SearchPromptActive = false
		state.SearchQuery = ""
		return state, nil

	case SearchStartAction:
		state.LastSearchQuery = a.Query
		state.Search.Start(a.Query, state.SearchFlags)
		return state, nil

	case SearchNextAction:
		return r.navigateSearch(state, true)

	case SearchPrevAction:
		return r.navigateSearch(state, false)

	case SearchAbortAction:
		state.Search.Abort()
		return state, nil

	case ToggleWholeWordAction:
		state.SearchFlags ^= document.FindWholeWord
		state.StatusMessage = "whole word off"
		if state.SearchFlags&document.FindWholeWord != 0 {
			state.StatusMessage = "whole word on"
		}
		if q := state.Search.Query(); q != "" {
			state.Search.Start(q, state.SearchFlags)
		}
		return state, nil

	case SearchMessageAction:
		if state.Search.Apply(a.Message) {
			r.revealFocusedMatch(state)
		}
		return state, nil

	// ===== HIGHLIGHTS =====

	case JumpAndHighlightAction:
		return state, r.jumpAndHighlight(state, a.Page, a.Packed)

	case SaveHighlightAction:
		if state.Highlights == nil {
			state.StatusMessage = "highlights are disabled"
			return state, nil
		}
		page, packed, ok := state.Selection.PackedRange()
		if !ok {
			state.StatusMessage = "nothing selected"
			return state, nil
		}
		if _, err := state.Highlights.Save(state.Path, page, packed, a.Note); err != nil {
			return state, err
		}
		state.reloadHighlights()
		state.Selection.Clear()
		state.StatusMessage = "highlight saved"
		return state, nil

	case NextHighlightAction:
		if len(state.Saved) == 0 {
			state.StatusMessage = "no saved highlights"
			return state, nil
		}
		if state.savedIndex >= len(state.Saved) {
			state.savedIndex = 0
		}
		h := state.Saved[state.savedIndex]
		state.savedIndex = (state.savedIndex + 1) % len(state.Saved)
		return state, r.jumpAndHighlight(state, h.Page, h.Packed)

	case DeleteHighlightAction:
		if state.Highlights == nil {
			return state, nil
		}
		if err := state.Highlights.Delete(a.ID); err != nil {
			return state, err
		}
		state.reloadHighlights()
		return state, nil

	// ===== VIEW =====

	case ClearAction:
		switch {
		case state.HelpVisible:
			state.HelpVisible = false
		case state.SearchPromptActive:
			return r.Reduce(state, SearchPromptCancelAction{})
		case state.Selection.Active():
			state.Selection.Clear()
		case state.Search.Query() != "":
			state.Search.Clear()
		}
		state.StatusMessage = ""
		return state, nil

	case ToggleHelpAction:
		state.HelpVisible = !state.HelpVisible
		return state, nil

	case RecycleAction:
		r.recycle(state)
		return state, nil

	case PageErrorAction:
		state.Bus.Publish(events.PageError{Page: a.Page, Err: a.Err})
		return state, nil
	}

	return state, nil
}

func (r *StateReducer) pivot(state *AppState, col, row int) geom.Point {
	if col < 0 || row < 0 {
		v := state.viewSize()
		return geom.Point{X: v.W / 2, Y: v.H / 2}
	}
	return state.CellToScreen(col, row)
}

func (r *StateReducer) relayout(state *AppState, cfg layout.Config) {
	state.Config.Fit = cfg.Fit.String()
	state.Viewport.Relayout(cfg)
}

// dragTo extends the selection so that both the anchor character and the
// target character are covered. The endpoint that moves away from the
// other is set first, so the range is never inverted in between.
func (r *StateReducer) dragTo(state *AppState, target selection.Endpoint) {
	anchor := r.dragAnchor
	if target.Before(anchor) {
		state.Selection.ExtendSelection(target.Page, target.Char, true)
		state.Selection.ExtendSelection(anchor.Page, anchor.Char+1, false)
		return
	}
	state.Selection.ExtendSelection(target.Page, target.Char+1, false)
	state.Selection.ExtendSelection(anchor.Page, anchor.Char, true)
}

func (r *StateReducer) navigateSearch(state *AppState, forward bool) (*AppState, error) {
	if state.Search.Query() == "" {
		if state.LastSearchQuery == "" {
			return state, nil
		}
		return r.Reduce(state, SearchStartAction{Query: state.LastSearchQuery})
	}
	var moved bool
	if forward {
		moved = state.Search.NavigateNext()
	} else {
		moved = state.Search.NavigatePrevious()
	}
	if !moved {
		if forward {
			state.StatusMessage = "no more matches"
		} else {
			state.StatusMessage = "no earlier matches"
		}
		return state, nil
	}
	state.StatusMessage = ""
	r.revealFocusedMatch(state)
	return state, nil
}

func (r *StateReducer) revealFocusedMatch(state *AppState) {
	m, ok := state.Search.Focused()
	if !ok {
		return
	}
	var bounds geom.Rect
	for _, rect := range m.Rects {
		bounds = bounds.Union(rect)
	}
	if bounds.Empty() {
		state.Viewport.JumpTo(m.Page)
		return
	}
	r.reveal(state, m.Page, bounds)
}

// reveal scrolls the smallest amount that brings a page rect into view and
// centres it along an axis where it was off screen.
func (r *StateReducer) reveal(state *AppState, page int, natural geom.Rect) {
	sr := state.PageRectToScreen(page, natural)
	v := state.viewSize()
	center := sr.Center()
	var dx, dy float64
	if sr.Left < 0 || sr.Right > v.W {
		dx = v.W/2 - center.X
	}
	if sr.Top < 0 || sr.Bottom > v.H {
		dy = v.H/2 - center.Y
	}
	if dx == 0 && dy == 0 {
		return
	}
	state.Viewport.MoveRelativeTo(dx, dy)
}

func (r *StateReducer) jumpAndHighlight(state *AppState, page int, packed int64) error {
	start, end := selection.UnpackRange(packed)
	if start < 0 || end <= start || page < 0 || page >= state.Doc.PageCount() {
		return fmt.Errorf("%w: page %d [%d, %d)", ErrInvalidHighlight, page, start, end)
	}
	if !state.Selection.SetSelection(page, start, end) {
		return fmt.Errorf("%w: page %d", ErrInvalidHighlight, page)
	}
	var bounds geom.Rect
	for _, rect := range state.Selection.RectsForPage(page) {
		bounds = bounds.Union(rect)
	}
	if bounds.Empty() {
		state.Viewport.JumpTo(page)
		return nil
	}
	r.reveal(state, page, bounds)
	return nil
}

// recycle drops every open page and derived view, then lays the document
// out again at the same reading position.
func (r *StateReducer) recycle(state *AppState) {
	pos := state.Viewport.PositionOffset()
	cfg := state.Layout.Config()

	state.dragging = false
	state.Selection.Clear()
	state.Search.Clear()
	for page := range state.touched {
		state.Doc.ReleasePage(page)
		delete(state.touched, page)
	}
	state.Viewport.Reset()

	state.Layout = layout.New(cfg, state.Doc.NaturalSizes())
	state.Viewport.Attach(state.Layout)
	state.Viewport.SetPositionOffset(pos, false)
	debuglog.Printf("state", "recycled at position %.3f", pos)
}
