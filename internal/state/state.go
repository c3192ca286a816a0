package state

import (
	"fmt"
	"time"

	"github.com/kk-code-lab/rdoc/internal/config"
	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/geom"
	"github.com/kk-code-lab/rdoc/internal/highlight"
	"github.com/kk-code-lab/rdoc/internal/layout"
	"github.com/kk-code-lab/rdoc/internal/search"
	"github.com/kk-code-lab/rdoc/internal/selection"
	"github.com/kk-code-lab/rdoc/internal/textdoc"
	"github.com/kk-code-lab/rdoc/internal/viewport"
)

// CellMetrics is the size of one terminal cell in screen units.
type CellMetrics struct {
	W float64
	H float64
}

// AppState is the single source of truth of the viewer. Everything in it
// is owned by the UI loop; background work reaches it only through
// dispatched actions.
type AppState struct {
	Path   string
	Config config.Config

	Doc        *document.Document
	Layout     *layout.Engine
	Viewport   *viewport.Mapper
	Selection  *selection.Model
	Search     *search.Controller
	Highlights *highlight.Store
	Bus        *events.Bus

	// Dimensions, in terminal cells. The bottom row is the status line.
	Cell         CellMetrics
	ScreenWidth  int
	ScreenHeight int

	// Search prompt
	SearchPromptActive bool
	SearchQuery        string
	LastSearchQuery    string
	SearchFlags        document.FindFlags

	// Saved highlights of this document, in page order.
	Saved      []highlight.Highlight
	savedIndex int

	HelpVisible   bool
	PageErrors    map[int]error
	LastError     error
	StatusMessage string
	LastYankTime  time.Time
	Dirty         events.Dirty

	dragging       bool
	touched        map[int]struct{}
	dispatchAction func(Action)
	unsubscribe    func()
}

// OpenDocument reads a text file and loads it as a document. Page open
// failures are routed back to the UI loop through dispatch.
func OpenDocument(path string, cfg config.Config, pages []int, dispatch func(Action)) (*document.Document, error) {
	provider, err := textdoc.Open(path, cfg.TextDoc())
	if err != nil {
		return nil, err
	}
	doc, err := document.Load(provider, document.Options{
		UserPages: pages,
		OnPageError: func(page int, err error) {
			if dispatch != nil {
				dispatch(PageErrorAction{Page: page, Err: err})
			}
		},
	})
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// New wires the components around doc. store may be nil when highlights are
// disabled; dispatch must be safe to call from any goroutine.
func New(doc *document.Document, path string, cfg config.Config, store *highlight.Store, dispatch func(Action)) *AppState {
	s := &AppState{
		Path:           path,
		Config:         cfg,
		Doc:            doc,
		Highlights:     store,
		Bus:            events.NewBus(),
		Cell:           CellMetrics{W: cfg.CellWidth, H: cfg.CellHeight},
		SearchFlags:    cfg.FindFlags(),
		PageErrors:     make(map[int]error),
		touched:        make(map[int]struct{}),
		dispatchAction: dispatch,
	}
	if s.Cell.W <= 0 || s.Cell.H <= 0 {
		def := textdoc.DefaultOptions()
		s.Cell = CellMetrics{W: def.CellWidth, H: def.CellHeight}
	}
	emit := s.Bus.Publish
	s.Layout = layout.New(cfg.Layout(), doc.NaturalSizes())
	s.Viewport = viewport.New(cfg.Viewport(), emit)
	s.Selection = selection.New(doc, cfg.Selection(), emit)
	s.Search = search.New(doc, func(m search.Message) {
		s.dispatch(SearchMessageAction{Message: m})
	}, emit)
	s.unsubscribe = s.Bus.Subscribe(s.onEvent)
	s.Viewport.Attach(s.Layout)
	s.reloadHighlights()
	return s
}

// SetDispatch replaces the dispatcher used for asynchronous work.
func (s *AppState) SetDispatch(fn func(Action)) {
	s.dispatchAction = fn
}

func (s *AppState) dispatch(a Action) {
	if s.dispatchAction != nil {
		s.dispatchAction(a)
	}
}

// Close stops the search worker and releases the document.
func (s *AppState) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.Search.Close()
	return s.Doc.Close()
}

func (s *AppState) onEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.RenderRequest:
		s.Dirty |= e.Dirty
	case events.PageChanged:
		s.Dirty |= events.DirtyOffset
		s.evictFarPages(e.Page)
	case events.SearchBegin:
		s.StatusMessage = fmt.Sprintf("searching %q…", e.Query)
	case events.SearchEnd:
		switch {
		case e.Aborted:
			s.StatusMessage = "search aborted"
		case e.Total == 0:
			s.StatusMessage = fmt.Sprintf("no matches for %q", e.Query)
		default:
			s.StatusMessage = ""
		}
		s.Dirty |= events.DirtySearch
	case events.SelectionEnded:
		debuglog.Printf("state", "selection ended page=%d range=%d", e.Page, e.RangeID)
	case events.PageError:
		s.PageErrors[e.Page] = e.Err
		s.Dirty |= events.DirtyLayout
	case events.LoadError:
		s.LastError = e.Err
	}
}

// viewSize returns the document area in screen units.
func (s *AppState) viewSize() geom.Size {
	rows := s.ScreenHeight - 1
	if rows < 0 {
		rows = 0
	}
	return geom.Size{W: float64(s.ScreenWidth) * s.Cell.W, H: float64(rows) * s.Cell.H}
}

// CellToScreen returns the centre of a terminal cell in screen units.
func (s *AppState) CellToScreen(col, row int) geom.Point {
	return geom.Point{
		X: (float64(col) + 0.5) * s.Cell.W,
		Y: (float64(row) + 0.5) * s.Cell.H,
	}
}

// ScreenToCell returns the terminal cell containing a screen point.
func (s *AppState) ScreenToCell(p geom.Point) (col, row int) {
	return floorDiv(p.X, s.Cell.W), floorDiv(p.Y, s.Cell.H)
}

func floorDiv(v, unit float64) int {
	if unit <= 0 {
		return 0
	}
	q := v / unit
	n := int(q)
	if q < 0 && float64(n) != q {
		n--
	}
	return n
}

// pageScale converts natural page units into layout units at zoom 1.
func (s *AppState) pageScale(page int) float64 {
	natural := s.Doc.NaturalSize(page)
	if natural.W <= 0 {
		return 1
	}
	return s.Layout.PageSize(page).W / natural.W
}

// PageRectToScreen maps a rect in natural page units to screen units.
func (s *AppState) PageRectToScreen(page int, r geom.Rect) geom.Rect {
	return s.Viewport.PageToScreen(page, r.Scale(s.pageScale(page)))
}

// ScreenToPage maps a screen point to a page and a point in natural page
// units.
func (s *AppState) ScreenToPage(p geom.Point) (int, geom.Point, bool) {
	page, local, ok := s.Viewport.ScreenToPage(p)
	if !ok {
		return page, local, false
	}
	scale := s.pageScale(page)
	if scale <= 0 {
		return page, local, false
	}
	return page, geom.Point{X: local.X / scale, Y: local.Y / scale}, true
}

// CellToChar resolves a terminal cell to the character under it. It
// returns ok=false when the cell is outside every page.
func (s *AppState) CellToChar(col, row int) (page, char int, ok bool) {
	page, local, inside := s.ScreenToPage(s.CellToScreen(col, row))
	if !inside {
		return page, -1, false
	}
	return page, s.Selection.HitTest(page, local, s.Cell.W), true
}

// PageText returns the text of a page for rendering and marks the page as
// recently used.
func (s *AppState) PageText(page int) (*document.PageText, error) {
	t, err := s.Doc.Text(page)
	if err == nil {
		s.touched[page] = struct{}{}
	}
	return t, err
}

// evictFarPages releases pages far from the current one. Pages inside the
// selection stay open so the selection keeps its text identity.
func (s *AppState) evictFarPages(current int) {
	limit := s.Config.EvictDistance
	if limit <= 0 {
		return
	}
	r, active := s.Selection.Range()
	for page := range s.touched {
		if page-current <= limit && current-page <= limit {
			continue
		}
		if active && page >= r.Start.Page && page <= r.End.Page {
			continue
		}
		s.Doc.ReleasePage(page)
		delete(s.touched, page)
		debuglog.Printf("state", "released page %d (current %d)", page, current)
	}
}

// OpenPages returns how many pages are held open by the viewer.
func (s *AppState) OpenPages() int {
	return len(s.touched)
}

func (s *AppState) reloadHighlights() {
	if s.Highlights == nil {
		s.Saved = nil
		return
	}
	saved, err := s.Highlights.List(s.Path)
	if err != nil {
		s.LastError = err
		return
	}
	s.Saved = saved
	if s.savedIndex >= len(s.Saved) {
		s.savedIndex = 0
	}
}

// SavedOnPage returns the stored highlights of a page.
func (s *AppState) SavedOnPage(page int) []highlight.Highlight {
	var out []highlight.Highlight
	for _, h := range s.Saved {
		if h.Page == page {
			out = append(out, h)
		}
	}
	return out
}

// Status summarises the view for the status line.
type Status struct {
	Page        int
	Pages       int
	Zoom        float64
	MatchPos    int
	MatchTotal  int
	Searching   bool
	Query       string
	HasSelected bool
}

// Status returns the values shown in the status line.
func (s *AppState) Status() Status {
	st := Status{
		Page:        s.Viewport.CurrentPage(),
		Pages:       s.Doc.PageCount(),
		Zoom:        s.Viewport.Zoom(),
		Searching:   s.Search.Status() == search.StatusRunning,
		Query:       s.Search.Query(),
		HasSelected: s.Selection.Active(),
	}
	if st.Page < 0 {
		st.Page = 0
	}
	if s.Search.Query() != "" {
		st.MatchPos = s.Search.Position()
		st.MatchTotal = s.Search.Total()
	}
	return st
}
