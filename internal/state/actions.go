package state

import "github.com/kk-code-lab/rdoc/internal/search"

// Action is the base interface for all state mutations
type Action interface{}

// ===== SCROLL & ZOOM ACTIONS =====

// ScrollCellsAction scrolls by whole terminal cells.
type ScrollCellsAction struct {
	Cols int
	Rows int
}

// ScrollScreenAction scrolls by a fraction of the view.
type ScrollScreenAction struct {
	Forward bool
}

type ZoomAction struct {
	Delta float64
	// Pivot in terminal cells; negative means the view centre.
	Col int
	Row int
}

type ZoomCycleAction struct {
	Col int
	Row int
}

type ZoomResetAction struct{}

// ===== PAGE ACTIONS =====

type JumpToPageAction struct {
	Page int
	Snap bool
}

type JumpLastPageAction struct{}
type PageSnapAction struct{}
type FlingAction struct {
	Forward bool
}

type SetPositionAction struct {
	Offset float64
}

type CycleFitAction struct{}
type ToggleOrientationAction struct{}
type ToggleAutoSpacingAction struct{}

// ===== POINTER ACTIONS =====

type TapAction struct {
	Col int
	Row int
}

// LongPressAction selects the word under the pointer.
type LongPressAction struct {
	Col int
	Row int
}

type DragStartAction struct {
	Col int
	Row int
}

type DragMoveAction struct {
	Col int
	Row int
}

type DragEndAction struct{}

// DragHandleAction moves one end of an existing selection.
type DragHandleAction struct {
	Col   int
	Row   int
	Start bool
}

// ===== SEARCH ACTIONS =====

type SearchPromptStartAction struct{}
type SearchPromptCharAction struct {
	Char rune
}
type SearchPromptBackspaceAction struct{}
type SearchPromptSubmitAction struct{}
type SearchPromptCancelAction struct{}

type SearchStartAction struct {
	Query string
}
type SearchNextAction struct{}
type SearchPrevAction struct{}
type SearchAbortAction struct{}
type ToggleWholeWordAction struct{}

// SearchMessageAction carries worker output into the UI loop.
type SearchMessageAction struct {
	Message search.Message
}

// ===== HIGHLIGHT ACTIONS =====

// JumpAndHighlightAction shows a packed range on a page as the selection.
type JumpAndHighlightAction struct {
	Page   int
	Packed int64
}

type SaveHighlightAction struct {
	Note string
}

type NextHighlightAction struct{}
type DeleteHighlightAction struct {
	ID string
}

// ===== VIEW ACTIONS =====

type ResizeAction struct {
	Width  int
	Height int
}

type ClearAction struct{}
type ToggleHelpAction struct{}

// RecycleAction resets every component and lays the document out again at
// the same reading position.
type RecycleAction struct{}

type PageErrorAction struct {
	Page int
	Err  error
}

// ===== APPLICATION ACTIONS =====

type QuitAction struct{}
type SuspendAction struct{}
type YankSelectionAction struct{}
