// Package textdoc serves plain-text files as paginated documents. Pages
// break on form feeds and on a line limit; every character sits in a
// monospace cell, which gives it a glyph box the viewer can select and
// highlight like text extracted from a real page.
package textdoc

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"

	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/geom"
	"github.com/kk-code-lab/rdoc/internal/textutil"
)

// ErrBinary is returned by Open for content that does not look like text.
var ErrBinary = errors.New("not a text file")

// ErrTooLarge is returned by Open for files above Options.MaxBytes.
var ErrTooLarge = errors.New("file too large")

// Options control pagination and cell geometry.
type Options struct {
	LinesPerPage int
	MinColumns   int
	CellWidth    float64
	CellHeight   float64
	TabWidth     int
	// MaxBytes rejects larger files in Open. Zero means no limit.
	MaxBytes int64
}

// DefaultOptions returns the layout used by the viewer.
func DefaultOptions() Options {
	return Options{
		LinesPerPage: 48,
		MinColumns:   64,
		CellWidth:    8,
		CellHeight:   16,
		TabWidth:     textutil.DefaultTabWidth,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.MinColumns <= 0 {
		o.MinColumns = def.MinColumns
	}
	if o.CellWidth <= 0 {
		o.CellWidth = def.CellWidth
	}
	if o.CellHeight <= 0 {
		o.CellHeight = def.CellHeight
	}
	if o.TabWidth <= 0 {
		o.TabWidth = def.TabWidth
	}
	return o
}

type cell struct {
	line  int
	col   int
	width int
}

type page struct {
	text   string
	runes  []rune
	folded []rune
	cells  []cell
	lines  int
	cols   int
}

type searchKey struct {
	needle    []rune
	folded    []rune
	matchCase bool
}

type cursor struct {
	page  int
	key   *searchKey
	flags document.FindFlags
	start int
	end   int
}

// Provider implements document.Provider over in-memory pages.
type Provider struct {
	opts  Options
	pages []*page

	mu      sync.Mutex
	closed  bool
	next    uint64
	opened  map[document.PageHandle]int
	texts   map[document.TextHandle]int
	keys    map[document.KeyHandle]*searchKey
	cursors map[document.Cursor]*cursor
}

// Open reads and paginates a text file.
func Open(path string, opts Options) (*Provider, error) {
	if opts.MaxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > opts.MaxBytes {
			return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size())
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !looksLikeText(content) {
		return nil, fmt.Errorf("%s: %w", path, ErrBinary)
	}
	opts = opts.normalized()
	return New(Paginate(decodeContent(content), opts), opts), nil
}

// New builds a provider whose pages are exactly the given strings.
func New(pages []string, opts Options) *Provider {
	opts = opts.normalized()
	p := &Provider{
		opts:    opts,
		opened:  make(map[document.PageHandle]int),
		texts:   make(map[document.TextHandle]int),
		keys:    make(map[document.KeyHandle]*searchKey),
		cursors: make(map[document.Cursor]*cursor),
	}
	for _, text := range pages {
		p.pages = append(p.pages, layoutPage(text))
	}
	return p
}

// Paginate splits text into pages on form feeds and every LinesPerPage lines.
func Paginate(text string, opts Options) []string {
	opts = opts.normalized()
	var pages []string
	for _, section := range strings.Split(text, "\f") {
		section = textutil.ExpandTabs(section, opts.TabWidth)
		lines := strings.Split(strings.TrimSuffix(section, "\n"), "\n")
		if opts.LinesPerPage <= 0 || len(lines) <= opts.LinesPerPage {
			pages = append(pages, strings.Join(lines, "\n"))
			continue
		}
		for start := 0; start < len(lines); start += opts.LinesPerPage {
			end := start + opts.LinesPerPage
			if end > len(lines) {
				end = len(lines)
			}
			pages = append(pages, strings.Join(lines[start:end], "\n"))
		}
	}
	return pages
}

func layoutPage(text string) *page {
	pg := &page{text: text, runes: []rune(text)}
	pg.cells = make([]cell, len(pg.runes))
	pg.folded = make([]rune, len(pg.runes))
	folder := cases.Fold()
	line, col := 0, 0
	for i, r := range pg.runes {
		pg.folded[i] = foldRune(folder, r)
		if r == '\n' {
			pg.cells[i] = cell{line: line, col: col}
			if col > pg.cols {
				pg.cols = col
			}
			line++
			col = 0
			continue
		}
		w := runewidth.RuneWidth(r)
		pg.cells[i] = cell{line: line, col: col, width: w}
		col += w
	}
	if col > pg.cols {
		pg.cols = col
	}
	pg.lines = line + 1
	return pg
}

// foldRune case-folds one rune, keeping it when folding would change the
// character count so match offsets stay aligned with the page text.
// A Caser is stateful, so each caller brings its own.
func foldRune(folder cases.Caser, r rune) rune {
	if r < 0x80 {
		return unicode.ToLower(r)
	}
	folded := []rune(folder.String(string(r)))
	if len(folded) == 1 {
		return folded[0]
	}
	return unicode.ToLower(r)
}

func (p *Provider) PageCount() int {
	return len(p.pages)
}

func (p *Provider) NaturalSize(index int) (geom.Size, error) {
	if index < 0 || index >= len(p.pages) {
		return geom.Size{}, fmt.Errorf("page %d out of range", index)
	}
	pg := p.pages[index]
	cols := pg.cols
	if cols < p.opts.MinColumns {
		cols = p.opts.MinColumns
	}
	lines := pg.lines
	if p.opts.LinesPerPage > lines {
		lines = p.opts.LinesPerPage
	}
	return geom.Size{W: float64(cols) * p.opts.CellWidth, H: float64(lines) * p.opts.CellHeight}, nil
}

// CellSize returns the size of one character cell in page units.
func (p *Provider) CellSize() geom.Size {
	return geom.Size{W: p.opts.CellWidth, H: p.opts.CellHeight}
}

func (p *Provider) handle() uint64 {
	p.next++
	return p.next
}

func (p *Provider) OpenPage(index int) (document.PageHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, document.ErrClosed
	}
	if index < 0 || index >= len(p.pages) {
		return 0, fmt.Errorf("page %d out of range", index)
	}
	h := document.PageHandle(p.handle())
	p.opened[h] = index
	return h, nil
}

func (p *Provider) ClosePage(h document.PageHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.opened, h)
}

func (p *Provider) OpenText(h document.PageHandle) (document.TextHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	index, ok := p.opened[h]
	if !ok {
		return 0, fmt.Errorf("page handle %d not open", h)
	}
	t := document.TextHandle(p.handle())
	p.texts[t] = index
	return t, nil
}

func (p *Provider) CloseText(t document.TextHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.texts, t)
}

func (p *Provider) pageForText(t document.TextHandle) *page {
	p.mu.Lock()
	defer p.mu.Unlock()
	index, ok := p.texts[t]
	if !ok {
		return nil
	}
	return p.pages[index]
}

func (p *Provider) Text(t document.TextHandle) string {
	pg := p.pageForText(t)
	if pg == nil {
		return ""
	}
	return pg.text
}

func (p *Provider) cellRect(c cell) geom.Rect {
	left := float64(c.col) * p.opts.CellWidth
	top := float64(c.line) * p.opts.CellHeight
	return geom.Rect{
		Left:   left,
		Top:    top,
		Right:  left + float64(c.width)*p.opts.CellWidth,
		Bottom: top + p.opts.CellHeight,
	}
}

func (p *Provider) CharRects(_ document.PageHandle, t document.TextHandle, start, count int) []geom.Rect {
	pg := p.pageForText(t)
	if pg == nil || count <= 0 {
		return nil
	}
	if start < 0 {
		count += start
		start = 0
	}
	end := start + count
	if end > len(pg.cells) {
		end = len(pg.cells)
	}
	if start >= end {
		return nil
	}
	rects := make([]geom.Rect, 0, end-start)
	for _, c := range pg.cells[start:end] {
		rects = append(rects, p.cellRect(c))
	}
	return rects
}

func (p *Provider) CharPosition(_ document.PageHandle, t document.TextHandle, index int, loose bool) (geom.Rect, bool) {
	pg := p.pageForText(t)
	if pg == nil || index < 0 || index >= len(pg.cells) {
		return geom.Rect{}, false
	}
	r := p.cellRect(pg.cells[index])
	if !loose {
		r.Top += p.opts.CellHeight / 5
	}
	return r, true
}

func (p *Provider) CharIndexAt(_ document.PageHandle, t document.TextHandle, pt geom.Point, tolerance float64) int {
	pg := p.pageForText(t)
	if pg == nil || pt.Y < 0 {
		return -1
	}
	line := int(pt.Y / p.opts.CellHeight)
	best, bestDist := -1, tolerance
	for i, c := range pg.cells {
		if c.line != line {
			continue
		}
		r := p.cellRect(c)
		if r.Width() == 0 {
			r.Right = r.Left + p.opts.CellWidth
		}
		var dist float64
		switch {
		case pt.X < r.Left:
			dist = r.Left - pt.X
		case pt.X >= r.Right:
			dist = pt.X - r.Right
		}
		if dist == 0 {
			return i
		}
		if dist <= bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func (p *Provider) CompileKey(query string) (document.KeyHandle, error) {
	if query == "" {
		return 0, errors.New("empty search key")
	}
	needle := []rune(query)
	key := &searchKey{needle: needle, folded: make([]rune, len(needle))}
	folder := cases.Fold()
	for i, r := range needle {
		key.folded[i] = foldRune(folder, r)
		if unicode.IsUpper(r) {
			key.matchCase = true
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, document.ErrClosed
	}
	k := document.KeyHandle(p.handle())
	p.keys[k] = key
	return k, nil
}

func (p *Provider) ReleaseKey(k document.KeyHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, k)
}

// LiveKeys reports how many compiled keys have not been released.
func (p *Provider) LiveKeys() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func (p *Provider) FindStart(t document.TextHandle, k document.KeyHandle, flags document.FindFlags, from int) (document.Cursor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	index, ok := p.texts[t]
	key := p.keys[k]
	if !ok || key == nil {
		return 0, false
	}
	c := &cursor{page: index, key: key, flags: flags}
	if !p.seek(c, from) {
		return 0, false
	}
	h := document.Cursor(p.handle())
	p.cursors[h] = c
	return h, true
}

func (p *Provider) FindNext(h document.Cursor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.cursors[h]
	if c == nil {
		return false
	}
	return p.seek(c, c.end)
}

func (p *Provider) MatchRange(h document.Cursor) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.cursors[h]
	if c == nil {
		return 0, 0
	}
	return c.start, c.end
}

func (p *Provider) CloseFind(h document.Cursor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cursors, h)
}

func (p *Provider) seek(c *cursor, from int) bool {
	pg := p.pages[c.page]
	hay, needle := pg.folded, c.key.folded
	if c.key.matchCase || c.flags&document.FindMatchCase != 0 {
		hay, needle = pg.runes, c.key.needle
	}
	if from < 0 {
		from = 0
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		if !runesEqual(hay[i:i+len(needle)], needle) {
			continue
		}
		if c.flags&document.FindWholeWord != 0 && !isWordBounded(pg.runes, i, i+len(needle)) {
			continue
		}
		c.start, c.end = i, i+len(needle)
		return true
	}
	return false
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isWordBounded(runes []rune, start, end int) bool {
	if start > 0 && isWordRune(runes[start-1]) {
		return false
	}
	if end < len(runes) && isWordRune(runes[end]) {
		return false
	}
	return true
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.opened = make(map[document.PageHandle]int)
	p.texts = make(map[document.TextHandle]int)
	p.keys = make(map[document.KeyHandle]*searchKey)
	p.cursors = make(map[document.Cursor]*cursor)
	return nil
}

var _ document.Provider = (*Provider)(nil)
