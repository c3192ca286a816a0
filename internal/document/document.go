package document

import (
	"fmt"
	"sync"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/geom"
)

// Options configure how a document is presented.
type Options struct {
	// UserPages reorders the page stack. Entries are provider page indices
	// and may repeat. Nil shows every page in natural order.
	UserPages []int
	// OnPageError is called once per provider page that fails to open,
	// with the user page through which the failure was hit.
	OnPageError func(page int, err error)
}

// Span is a half-open character range.
type Span struct {
	Start int
	End   int
}

// PageText is the extracted text of one opened page. ID changes every time
// the page is reopened, so holders can tell a stale reference from a live one.
type PageText struct {
	Page    int
	ID      uint64
	Content string

	runes []rune
	page  PageHandle
	text  TextHandle
}

// Len returns the number of characters.
func (t *PageText) Len() int {
	if t == nil {
		return 0
	}
	return len(t.runes)
}

// Slice returns the characters in [start, end), clamped to the text.
func (t *PageText) Slice(start, end int) string {
	if t == nil {
		return ""
	}
	start = clamp(start, 0, len(t.runes))
	end = clamp(end, 0, len(t.runes))
	if end <= start {
		return ""
	}
	return string(t.runes[start:end])
}

// RuneAt returns the character at index, or 0 when out of range.
func (t *PageText) RuneAt(index int) rune {
	if t == nil || index < 0 || index >= len(t.runes) {
		return 0
	}
	return t.runes[index]
}

type pageSlot struct {
	handle PageHandle
	text   *PageText
	err    error
}

// Document owns every handle opened through it and closes each exactly once.
type Document struct {
	provider    Provider
	sizes       []geom.Size
	userPages   []int
	onPageError func(int, error)

	mu     sync.Mutex
	closed bool
	nextID uint64
	pages  map[int]*pageSlot
	keys   map[KeyHandle]struct{}
}

// Load reads the page count and every natural size up front. Any failure
// is a DocumentLoadError.
func Load(p Provider, opts Options) (*Document, error) {
	if p == nil {
		return nil, &DocumentLoadError{Err: fmt.Errorf("no content provider")}
	}
	count := p.PageCount()
	if count < 0 {
		return nil, &DocumentLoadError{Err: fmt.Errorf("invalid page count %d", count)}
	}
	sizes := make([]geom.Size, count)
	for i := 0; i < count; i++ {
		size, err := p.NaturalSize(i)
		if err != nil {
			return nil, &DocumentLoadError{Err: fmt.Errorf("page %d size: %w", i, err)}
		}
		if size.Empty() {
			return nil, &DocumentLoadError{Err: fmt.Errorf("page %d has zero size", i)}
		}
		sizes[i] = size
	}
	var userPages []int
	if opts.UserPages != nil {
		userPages = make([]int, len(opts.UserPages))
		for i, native := range opts.UserPages {
			if native < 0 || native >= count {
				return nil, &DocumentLoadError{Err: fmt.Errorf("user page %d refers to missing page %d", i, native)}
			}
			userPages[i] = native
		}
	}
	debuglog.Printf("document", "loaded pages=%d user=%d", count, len(userPages))
	return &Document{
		provider:    p,
		sizes:       sizes,
		userPages:   userPages,
		onPageError: opts.OnPageError,
		pages:       make(map[int]*pageSlot),
		keys:        make(map[KeyHandle]struct{}),
	}, nil
}

// PageCount returns the number of pages in the displayed stack.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	if d.userPages != nil {
		return len(d.userPages)
	}
	return len(d.sizes)
}

// DocumentPage maps a user page to a provider page, or -1 when out of range.
func (d *Document) DocumentPage(user int) int {
	if d == nil {
		return -1
	}
	if d.userPages != nil {
		if user < 0 || user >= len(d.userPages) {
			return -1
		}
		return d.userPages[user]
	}
	if user < 0 || user >= len(d.sizes) {
		return -1
	}
	return user
}

// ValidPage clamps a user page into [0, PageCount-1].
func (d *Document) ValidPage(user int) int {
	n := d.PageCount()
	if n == 0 || user < 0 {
		return 0
	}
	if user >= n {
		return n - 1
	}
	return user
}

// NaturalSize returns the unscaled size of a user page.
func (d *Document) NaturalSize(user int) geom.Size {
	native := d.DocumentPage(user)
	if native < 0 {
		return geom.Size{}
	}
	return d.sizes[native]
}

// NaturalSizes returns the sizes of the displayed stack in order.
func (d *Document) NaturalSizes() []geom.Size {
	n := d.PageCount()
	out := make([]geom.Size, n)
	for i := 0; i < n; i++ {
		out[i] = d.NaturalSize(i)
	}
	return out
}

// OpenPage opens the page once and caches the handle. A failed page stays
// failed until the document is reloaded.
func (d *Document) OpenPage(user int) (PageHandle, error) {
	native := d.DocumentPage(user)
	if native < 0 {
		return 0, ErrPageRange
	}
	d.mu.Lock()
	slot, reported, err := d.openLocked(native)
	d.mu.Unlock()
	d.report(user, reported)
	if err != nil {
		return 0, err
	}
	return slot.handle, nil
}

// PageHasError reports whether the page failed to open.
func (d *Document) PageHasError(user int) bool {
	native := d.DocumentPage(user)
	if native < 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.pages[native]
	return slot != nil && slot.err != nil
}

// Text returns the page text, opening the page and its text on first use.
func (d *Document) Text(user int) (*PageText, error) {
	native := d.DocumentPage(user)
	if native < 0 {
		return nil, ErrPageRange
	}
	d.mu.Lock()
	text, reported, err := d.textLocked(native)
	d.mu.Unlock()
	d.report(user, reported)
	return text, err
}

// textLocked returns the live text of a native page. A text that cannot
// be opened fails the whole page, like a page that cannot be opened.
func (d *Document) textLocked(native int) (*PageText, error, error) {
	slot, reported, err := d.openLocked(native)
	if err != nil {
		return nil, reported, err
	}
	if slot.text != nil {
		return slot.text, nil, nil
	}
	th, err := d.provider.OpenText(slot.handle)
	if err != nil {
		perr := &PageOpenError{Page: native, Err: fmt.Errorf("open text: %w", err)}
		d.closeSlotLocked(slot)
		slot.err = perr
		debuglog.Printf("document", "page %d text failed: %v", native, err)
		return nil, perr, perr
	}
	d.nextID++
	content := d.provider.Text(th)
	slot.text = &PageText{
		Page:    native,
		ID:      d.nextID,
		Content: content,
		runes:   []rune(content),
		page:    slot.handle,
		text:    th,
	}
	return slot.text, nil, nil
}

// ReleasePage closes the handles of a page. The next access reopens it
// under a fresh text identity.
func (d *Document) ReleasePage(user int) {
	native := d.DocumentPage(user)
	if native < 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.pages[native]
	if slot == nil || slot.err != nil || d.closed {
		return
	}
	d.closeSlotLocked(slot)
	delete(d.pages, native)
}

// Current reports whether t is still the live text of its page.
func (d *Document) Current(t *PageText) bool {
	if t == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentLocked(t)
}

func (d *Document) currentLocked(t *PageText) bool {
	if d.closed {
		return false
	}
	slot := d.pages[t.Page]
	return slot != nil && slot.text == t
}

// CharRects returns glyph boxes for [start, start+count) of a live text.
func (d *Document) CharRects(t *PageText, start, count int) []geom.Rect {
	if t == nil || count <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.currentLocked(t) {
		return nil
	}
	return d.provider.CharRects(t.page, t.text, start, count)
}

// CharPosition returns the box of one character of a live text.
func (d *Document) CharPosition(t *PageText, index int, loose bool) (geom.Rect, bool) {
	if t == nil || index < 0 || index >= t.Len() {
		return geom.Rect{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.currentLocked(t) {
		return geom.Rect{}, false
	}
	return d.provider.CharPosition(t.page, t.text, index, loose)
}

// CharIndexAt returns the character under a page-local point, or -1.
func (d *Document) CharIndexAt(t *PageText, p geom.Point, tolerance float64) int {
	if t == nil {
		return -1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.currentLocked(t) {
		return -1
	}
	return d.provider.CharIndexAt(t.page, t.text, p, tolerance)
}

// CompileKey prepares a search key. The document releases any key still
// live when it is closed.
func (d *Document) CompileKey(query string) (KeyHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	k, err := d.provider.CompileKey(query)
	if err != nil {
		return 0, fmt.Errorf("compile search key: %w", err)
	}
	d.keys[k] = struct{}{}
	return k, nil
}

// ReleaseKey frees a compiled key. Unknown or already released keys are ignored.
func (d *Document) ReleaseKey(k KeyHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[k]; !ok {
		return
	}
	delete(d.keys, k)
	if !d.closed {
		d.provider.ReleaseKey(k)
	}
}

// FindMatches collects every match of k in t starting at from, in text order.
func (d *Document) FindMatches(t *PageText, k KeyHandle, flags FindFlags, from int) []Span {
	if t == nil || k == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.currentLocked(t) {
		return nil
	}
	return d.findLocked(t, k, flags, from)
}

// FindMatchesOnPage resolves the live text of a page and searches it under
// one lock, so a concurrent ReleasePage cannot leave the search holding a
// stale text.
func (d *Document) FindMatchesOnPage(user int, k KeyHandle, flags FindFlags, from int) ([]Span, error) {
	native := d.DocumentPage(user)
	if native < 0 {
		return nil, ErrPageRange
	}
	d.mu.Lock()
	t, reported, err := d.textLocked(native)
	var spans []Span
	if err == nil && k != 0 {
		spans = d.findLocked(t, k, flags, from)
	}
	d.mu.Unlock()
	d.report(user, reported)
	return spans, err
}

func (d *Document) findLocked(t *PageText, k KeyHandle, flags FindFlags, from int) []Span {
	if _, ok := d.keys[k]; !ok {
		return nil
	}
	cursor, ok := d.provider.FindStart(t.text, k, flags, from)
	if !ok {
		return nil
	}
	defer d.provider.CloseFind(cursor)
	var spans []Span
	for {
		start, end := d.provider.MatchRange(cursor)
		if end > start {
			spans = append(spans, Span{Start: start, End: end})
		}
		if !d.provider.FindNext(cursor) {
			break
		}
	}
	return spans
}

// Close disposes every open handle and the provider. It is safe to call twice.
func (d *Document) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	for native, slot := range d.pages {
		if slot.err == nil {
			d.closeSlotLocked(slot)
		}
		delete(d.pages, native)
	}
	for k := range d.keys {
		d.provider.ReleaseKey(k)
		delete(d.keys, k)
	}
	d.closed = true
	if err := d.provider.Close(); err != nil {
		return fmt.Errorf("close provider: %w", err)
	}
	return nil
}

func (d *Document) openLocked(native int) (*pageSlot, error, error) {
	if d.closed {
		return nil, nil, ErrClosed
	}
	if slot, ok := d.pages[native]; ok {
		if slot.err != nil {
			return nil, nil, slot.err
		}
		return slot, nil, nil
	}
	h, err := d.provider.OpenPage(native)
	if err != nil {
		perr := &PageOpenError{Page: native, Err: err}
		d.pages[native] = &pageSlot{err: perr}
		debuglog.Printf("document", "page %d failed: %v", native, err)
		return nil, perr, perr
	}
	slot := &pageSlot{handle: h}
	d.pages[native] = slot
	return slot, nil, nil
}

func (d *Document) closeSlotLocked(slot *pageSlot) {
	if slot.text != nil {
		d.provider.CloseText(slot.text.text)
		slot.text = nil
	}
	if slot.handle != 0 {
		d.provider.ClosePage(slot.handle)
		slot.handle = 0
	}
}

// report hands a fresh page failure to OnPageError under the user page
// that hit it.
func (d *Document) report(user int, err error) {
	if err == nil || d.onPageError == nil {
		return
	}
	d.onPageError(user, err)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
