package app

import (
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

const (
	doubleClickThreshold = 300 * time.Millisecond
	wheelRows            = 3
	wheelCols            = 3
	wheelZoomStep        = 1.1
)

// mouseState tracks one press of the primary button.
type mouseState struct {
	down          bool
	dragging      bool
	pressCol      int
	pressRow      int
	lastClickTime time.Time
	lastClickCol  int
	lastClickRow  int
}

func (app *Application) Run() {
	defer app.screen.Fini()
	flushPendingInput()

	app.render()
	renderPending := false

	eventChan := make(chan tcell.Event)
	go func() {
		for {
			ev := app.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	var sigContCh chan os.Signal
	if sigs := contSignals(); len(sigs) > 0 {
		sigContCh = make(chan os.Signal, 1)
		signal.Notify(sigContCh, sigs...)
		defer signal.Stop(sigContCh)
	}

	const animationInterval = 50 * time.Millisecond
	var animationTimer *time.Timer
	var animationCh <-chan time.Time

	startAnimation := func() {
		if animationTimer == nil {
			animationTimer = time.NewTimer(animationInterval)
		} else {
			if !animationTimer.Stop() {
				select {
				case <-animationTimer.C:
				default:
				}
			}
			animationTimer.Reset(animationInterval)
		}
		animationCh = animationTimer.C
	}

	stopAnimation := func() {
		if animationTimer == nil {
			return
		}
		if !animationTimer.Stop() {
			select {
			case <-animationTimer.C:
			default:
			}
		}
		animationCh = nil
	}

	for !app.shouldQuit {
		if renderPending {
			app.render()
			renderPending = false
		}

		if app.shouldAnimate() {
			startAnimation()
		} else {
			stopAnimation()
		}

		select {
		case ev, ok := <-eventChan:
			if !ok {
				app.shouldQuit = true
				break
			}
			if app.handleEvent(ev) {
				renderPending = true
			}
		case <-animationCh:
			renderPending = true
		case action := <-app.actionCh:
			if app.handleAction(action) {
				renderPending = true
			}
		case <-sigContCh:
			if app.resumeAfterStop() {
				renderPending = true
			}
		}

		if app.processActions() {
			renderPending = true
		}
	}

	stopAnimation()
}

// render draws the state and marks the document as shown once the first
// frame is on screen.
func (app *Application) render() {
	app.renderer.Render(app.state)
	app.state.Viewport.MarkShown()
	app.state.Dirty = 0
}

func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey, *tcell.EventResize:
		if !app.input.ProcessEvent(ev) {
			app.shouldQuit = true
		}
	case *tcell.EventMouse:
		app.handleMouse(ev)
	case *tcell.EventInterrupt:
		return true
	default:
		return false
	}
	return true
}

// handleMouse turns button and wheel events into pointer actions. A press
// that moves becomes a drag, a press released in place a tap, and two taps
// on the same cell a long press.
func (app *Application) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()
	mods := ev.Modifiers()

	switch {
	case buttons&tcell.WheelUp != 0:
		app.wheel(x, y, mods, 0, -wheelRows, wheelZoomStep)
		return
	case buttons&tcell.WheelDown != 0:
		app.wheel(x, y, mods, 0, wheelRows, 1/wheelZoomStep)
		return
	case buttons&tcell.WheelLeft != 0:
		app.wheel(x, y, mods, -wheelCols, 0, 0)
		return
	case buttons&tcell.WheelRight != 0:
		app.wheel(x, y, mods, wheelCols, 0, 0)
		return
	}

	m := &app.mouse
	if buttons&tcell.Button1 != 0 {
		if !m.down {
			if y >= app.state.ScreenHeight-1 {
				return
			}
			m.down, m.dragging = true, false
			m.pressCol, m.pressRow = x, y
			return
		}
		if x == m.pressCol && y == m.pressRow && !m.dragging {
			return
		}
		if !m.dragging {
			m.dragging = true
			app.enqueue(statepkg.DragStartAction{Col: m.pressCol, Row: m.pressRow})
		}
		app.enqueue(statepkg.DragMoveAction{Col: x, Row: y})
		return
	}

	if !m.down {
		return
	}
	m.down = false
	if m.dragging {
		m.dragging = false
		app.enqueue(statepkg.DragEndAction{})
		return
	}

	now := time.Now()
	double := m.lastClickCol == m.pressCol && m.lastClickRow == m.pressRow &&
		now.Sub(m.lastClickTime) <= doubleClickThreshold
	m.lastClickTime, m.lastClickCol, m.lastClickRow = now, m.pressCol, m.pressRow
	if double {
		m.lastClickTime = time.Time{}
		app.enqueue(statepkg.LongPressAction{Col: m.pressCol, Row: m.pressRow})
		return
	}
	app.enqueue(statepkg.TapAction{Col: m.pressCol, Row: m.pressRow})
}

func (app *Application) wheel(x, y int, mods tcell.ModMask, cols, rows int, zoom float64) {
	if mods&tcell.ModCtrl != 0 && zoom != 0 {
		app.enqueue(statepkg.ZoomAction{Delta: zoom, Col: x, Row: y})
		return
	}
	app.enqueue(statepkg.ScrollCellsAction{Cols: cols, Rows: rows})
}

// processActions applies queued input first, then whatever background
// work has posted, without waiting for more.
func (app *Application) processActions() bool {
	changed := false
	for len(app.queued) > 0 {
		action := app.queued[0]
		app.queued = app.queued[1:]
		if app.handleAction(action) {
			changed = true
		}
	}
	for {
		select {
		case action := <-app.actionCh:
			if app.handleAction(action) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (app *Application) shouldAnimate() bool {
	if app.state == nil || app.state.LastYankTime.IsZero() {
		return false
	}
	return time.Since(app.state.LastYankTime) < 100*time.Millisecond
}

func (app *Application) handleAction(action statepkg.Action) bool {
	if action == nil {
		return false
	}

	switch action.(type) {
	case statepkg.QuitAction:
		app.shouldQuit = true
		return false
	case statepkg.SuspendAction:
		app.suspendToShell()
		app.resumeAfterStop()
		return true
	case statepkg.YankSelectionAction:
		return app.handleClipboard()
	}

	if _, err := app.reducer.Reduce(app.state, action); err != nil {
		debuglog.Printf("app", "%T: %v", action, err)
		app.state.LastError = err
	}
	return true
}
