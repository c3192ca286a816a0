package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/config"
	"github.com/kk-code-lab/rdoc/internal/highlight"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
	inputui "github.com/kk-code-lab/rdoc/internal/ui/input"
	renderui "github.com/kk-code-lab/rdoc/internal/ui/render"
)

// Options describe what to open.
type Options struct {
	Path   string
	Config config.Config
	// Pages restricts and reorders the document; nil shows every page.
	Pages []int
	// Store persists highlights; nil disables them.
	Store *highlight.Store
	// Search starts a search as soon as the document is shown.
	Search string
	// Page is the page to show first.
	Page int
}

// Application represents the running app.
type Application struct {
	screen         tcell.Screen
	state          *statepkg.AppState
	reducer        *statepkg.StateReducer
	renderer       *renderui.Renderer
	input          *inputui.InputHandler
	actionCh       chan statepkg.Action
	queued         []statepkg.Action
	shouldQuit     bool
	clipboardCmd   []string
	clipboardAvail bool
	mouse          mouseState
}

// Close cleans up resources.
func (app *Application) Close() error {
	if app.screen != nil {
		app.screen.Fini()
	}
	if app.state != nil {
		return app.state.Close()
	}
	return nil
}

// State exposes the state for inspection after Run returns.
func (app *Application) State() *statepkg.AppState {
	return app.state
}

func (app *Application) dispatch(action statepkg.Action) {
	select {
	case app.actionCh <- action:
	default:
		go func() { app.actionCh <- action }()
	}
}

// enqueue records an action raised on the UI goroutine. Only the loop
// appends to and drains the queue, so input never waits on actionCh.
func (app *Application) enqueue(action statepkg.Action) {
	app.queued = append(app.queued, action)
}

// newApplication wires an application around an initialised screen.
func newApplication(screen tcell.Screen, opts Options) (*Application, error) {
	app := &Application{
		screen:   screen,
		reducer:  statepkg.NewStateReducer(),
		renderer: renderui.NewRenderer(screen),
		actionCh: make(chan statepkg.Action, 64),
	}
	app.clipboardCmd, app.clipboardAvail = detectClipboard()

	doc, err := statepkg.OpenDocument(opts.Path, opts.Config, opts.Pages, app.dispatch)
	if err != nil {
		return nil, err
	}
	app.state = statepkg.New(doc, opts.Path, opts.Config, opts.Store, app.dispatch)
	app.input = inputui.NewInputHandler(app.enqueue)
	app.input.SetState(app.state)

	w, h := screen.Size()
	if _, err := app.reducer.Reduce(app.state, statepkg.ResizeAction{Width: w, Height: h}); err != nil {
		_ = app.state.Close()
		return nil, err
	}
	if opts.Page > 0 {
		app.handleAction(statepkg.JumpToPageAction{Page: opts.Page, Snap: true})
	}
	if opts.Search != "" {
		app.handleAction(statepkg.SearchStartAction{Query: opts.Search})
	}
	return app, nil
}

// NewApplication opens the document and takes over the terminal.
func NewApplication(opts Options) (*Application, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	app, err := newApplication(screen, opts)
	if err != nil {
		screen.Fini()
		return nil, err
	}
	return app, nil
}
