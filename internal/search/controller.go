// Package search runs page-by-page text searches on a background worker and
// lets the UI walk the results. The worker only reads the document and
// posts messages; every piece of controller state is owned by the UI
// context and changed in Apply or the navigation methods.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/events"
	"github.com/kk-code-lab/rdoc/internal/geom"
)

// Source is the part of a document the controller needs.
type Source interface {
	PageCount() int
	ValidPage(user int) int
	Text(page int) (*document.PageText, error)
	CompileKey(query string) (document.KeyHandle, error)
	ReleaseKey(k document.KeyHandle)
	FindMatches(t *document.PageText, k document.KeyHandle, flags document.FindFlags, from int) []document.Span
	FindMatchesOnPage(page int, k document.KeyHandle, flags document.FindFlags, from int) ([]document.Span, error)
	CharRects(t *document.PageText, start, count int) []geom.Rect
}

// Status is the state of the current session.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusFinished
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// Match is one hit with its glyph boxes in page-local units.
type Match struct {
	Page    int
	Start   int
	End     int
	Rects   []geom.Rect
	AnchorX float64
	AnchorY float64
}

// Record marks a page with at least one hit. Its matches are materialised
// on first use.
type Record struct {
	Page      int
	FindStart int
	Count     int

	matches  []Match
	expanded bool
	textID   uint64
}

// MessageKind tags a worker message.
type MessageKind int

const (
	MessageRecord MessageKind = iota
	MessageDone
)

// Message carries worker output to the UI context.
type Message struct {
	Session uint64
	Kind    MessageKind
	Record  *Record
	Err     error
}

type session struct {
	id     uint64
	query  string
	flags  document.FindFlags
	ctx    context.Context
	cancel context.CancelFunc

	keyMu  sync.Mutex
	key    document.KeyHandle
	closed bool
}

// keyHandle compiles the key on first use. A closed session never
// compiles again.
func (s *session) keyHandle(src Source) (document.KeyHandle, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	if s.closed {
		return 0, context.Canceled
	}
	if s.key != 0 {
		return s.key, nil
	}
	k, err := src.CompileKey(s.query)
	if err != nil {
		return 0, err
	}
	s.key = k
	return k, nil
}

// releaseKey frees the compiled key. Releasing twice is a no-op.
func (s *session) releaseKey(src Source, close bool) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	if close {
		s.closed = true
	}
	if s.key == 0 {
		return
	}
	src.ReleaseKey(s.key)
	s.key = 0
}

type cursor struct {
	page  int
	index int
	valid bool
}

// Controller owns one search session at a time.
type Controller struct {
	src  Source
	post func(Message)
	emit func(events.Event)

	tasks chan func()
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	cancelMu sync.Mutex
	token    uint64
	cancel   context.CancelFunc

	current *session
	status  Status
	records map[int]*Record
	pages   []int
	cursor  cursor
	total   int
	// position is the one-based ordinal of the cursor, kept in step with
	// navigation and record changes.
	position int
}

// New starts the worker. post must hand messages to the UI context, where
// they are passed to Apply. emit may be nil.
func New(src Source, post func(Message), emit func(events.Event)) *Controller {
	c := &Controller{
		src:     src,
		post:    post,
		emit:    emit,
		tasks:   make(chan func(), 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		records: make(map[int]*Record),
	}
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case task := <-c.tasks:
			task()
		case <-c.stop:
			return
		}
	}
}

func (c *Controller) submit(task func()) {
	select {
	case c.tasks <- task:
	default:
		go func() {
			select {
			case c.tasks <- task:
			case <-c.stop:
			}
		}()
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.emit != nil {
		c.emit(ev)
	}
}

func (c *Controller) setCancel(cancel context.CancelFunc) uint64 {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	c.token++
	c.cancel = cancel
	return c.token
}

func (c *Controller) clearCancel(token uint64) {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.token == token {
		c.cancel = nil
	}
}

func (c *Controller) cancelOngoingSearch() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Status returns the state of the current session.
func (c *Controller) Status() Status { return c.status }

// Query returns the query of the current session.
func (c *Controller) Query() string {
	if c.current == nil {
		return ""
	}
	return c.current.query
}

// Total returns the number of hits reported so far.
func (c *Controller) Total() int { return c.total }

// Start begins a new session and returns at once. A running session is
// aborted first. An empty query just clears the results.
func (c *Controller) Start(query string, flags document.FindFlags) {
	query = strings.TrimSpace(query)
	c.Abort()
	c.retire()
	if query == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	token := c.setCancel(cancel)
	s := &session{id: token, query: query, flags: flags, ctx: ctx, cancel: cancel}
	c.current = s
	c.status = StatusRunning
	c.publish(events.SearchBegin{Query: query})
	debuglog.Printf("search", "session %d start query=%q", s.id, query)

	c.submit(func() {
		defer c.clearCancel(token)
		c.scan(s)
	})
}

// Abort stops the running session. Results published so far stay.
func (c *Controller) Abort() {
	s := c.current
	if s == nil {
		return
	}
	s.cancel()
	s.releaseKey(c.src, false)
	if c.status == StatusRunning {
		c.status = StatusAborted
		debuglog.Printf("search", "session %d aborted", s.id)
		c.publish(events.SearchEnd{Query: s.query, Aborted: true, Total: c.total})
	}
}

// Clear aborts the session and drops its results.
func (c *Controller) Clear() {
	had := c.current != nil
	c.Abort()
	c.retire()
	if had {
		c.publish(events.RenderRequest{Dirty: events.DirtySearch})
	}
}

func (c *Controller) retire() {
	if c.current != nil {
		c.current.releaseKey(c.src, true)
	}
	c.current = nil
	c.status = StatusIdle
	c.records = make(map[int]*Record)
	c.pages = nil
	c.cursor = cursor{}
	c.total = 0
	c.position = 0
}

// Close clears the session and stops the worker.
func (c *Controller) Close() {
	c.Clear()
	c.cancelOngoingSearch()
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// scan runs on the worker. Cancellation is checked once per page.
func (c *Controller) scan(s *session) {
	if s.ctx.Err() != nil {
		return
	}
	key, err := s.keyHandle(c.src)
	if err != nil {
		c.post(Message{Session: s.id, Kind: MessageDone, Err: err})
		return
	}
	n := c.src.PageCount()
	for page := 0; page < n; page++ {
		if s.ctx.Err() != nil {
			c.post(Message{Session: s.id, Kind: MessageDone, Err: s.ctx.Err()})
			return
		}
		spans, err := c.src.FindMatchesOnPage(page, key, s.flags, 0)
		if err != nil || len(spans) == 0 {
			continue
		}
		c.post(Message{Session: s.id, Kind: MessageRecord, Record: &Record{
			Page:      page,
			FindStart: spans[0].Start,
			Count:     len(spans),
		}})
	}
	c.post(Message{Session: s.id, Kind: MessageDone})
}

// Apply folds a worker message into the controller. Messages from earlier
// sessions, or arriving after an abort, are dropped. It reports whether
// the focused match changed.
func (c *Controller) Apply(msg Message) bool {
	s := c.current
	if s == nil || msg.Session != s.id || c.status != StatusRunning {
		return false
	}
	switch msg.Kind {
	case MessageRecord:
		r := msg.Record
		if r == nil || c.records[r.Page] != nil {
			return false
		}
		c.records[r.Page] = r
		i := sort.SearchInts(c.pages, r.Page)
		c.pages = append(c.pages, 0)
		copy(c.pages[i+1:], c.pages[i:])
		c.pages[i] = r.Page
		c.total += r.Count
		if c.cursor.valid && r.Page < c.cursor.page {
			c.position += r.Count
		}
		c.publish(events.SearchMatchFound{Page: r.Page, TotalOnPage: r.Count, Query: s.query})
		c.publish(events.RenderRequest{Dirty: events.DirtySearch})
		if !c.cursor.valid {
			c.cursor = cursor{page: r.Page, valid: true}
			c.position = c.countBefore(r.Page) + 1
			return true
		}
	case MessageDone:
		if msg.Err != nil {
			c.status = StatusAborted
		} else {
			c.status = StatusFinished
		}
		debuglog.Printf("search", "session %d done status=%s total=%d", s.id, c.status, c.total)
		c.publish(events.SearchEnd{Query: s.query, Aborted: msg.Err != nil, Total: c.total})
	}
	return false
}

// Record returns the record of page, or nil.
func (c *Controller) Record(page int) *Record {
	return c.records[page]
}

// Pages returns the pages that have hits, in order.
func (c *Controller) Pages() []int {
	return append([]int(nil), c.pages...)
}

// MatchesOnPage expands the record of page into matches on first use, and
// again whenever the page text has been reopened since.
func (c *Controller) MatchesOnPage(page int) []Match {
	r := c.records[page]
	if r == nil || c.current == nil {
		return nil
	}
	text, err := c.src.Text(page)
	if err != nil {
		return nil
	}
	if r.expanded && r.textID == text.ID {
		return r.matches
	}
	key, err := c.current.keyHandle(c.src)
	if err != nil {
		return nil
	}
	spans := c.src.FindMatches(text, key, c.current.flags, r.FindStart)
	matches := make([]Match, 0, len(spans))
	for _, sp := range spans {
		m := Match{Page: page, Start: sp.Start, End: sp.End}
		m.Rects = c.src.CharRects(text, sp.Start, sp.End-sp.Start)
		if len(m.Rects) > 0 {
			m.AnchorX = m.Rects[0].Left
			m.AnchorY = m.Rects[0].Top
		}
		matches = append(matches, m)
	}
	c.total += len(matches) - r.Count
	if c.cursor.valid && page < c.cursor.page {
		c.position += len(matches) - r.Count
	}
	r.Count = len(matches)
	r.matches = matches
	r.expanded = true
	r.textID = text.ID
	return r.matches
}

// Focused returns the match under the cursor.
func (c *Controller) Focused() (Match, bool) {
	if !c.cursor.valid {
		return Match{}, false
	}
	ms := c.MatchesOnPage(c.cursor.page)
	if c.cursor.index < 0 || c.cursor.index >= len(ms) {
		return Match{}, false
	}
	return ms[c.cursor.index], true
}

// Cursor returns the page and in-page index of the focused match.
func (c *Controller) Cursor() (page, index int, ok bool) {
	return c.cursor.page, c.cursor.index, c.cursor.valid
}

func (c *Controller) focus(page, index int) {
	c.cursor = cursor{page: page, index: index, valid: true}
	c.position = c.countBefore(page) + index + 1
	c.publish(events.RenderRequest{Dirty: events.DirtySearch})
}

// NavigateNext moves to the next match, crossing to the next page with
// hits when the current page is exhausted. It returns false at the last
// match of the document.
func (c *Controller) NavigateNext() bool {
	if !c.cursor.valid {
		return false
	}
	if c.cursor.index+1 < len(c.MatchesOnPage(c.cursor.page)) {
		c.focus(c.cursor.page, c.cursor.index+1)
		return true
	}
	for i := sort.SearchInts(c.pages, c.cursor.page+1); i < len(c.pages); i++ {
		page := c.pages[i]
		if len(c.MatchesOnPage(page)) > 0 {
			c.focus(page, 0)
			return true
		}
	}
	return false
}

// NavigatePrevious is the mirror of NavigateNext and lands on the last
// match of the previous page with hits.
func (c *Controller) NavigatePrevious() bool {
	if !c.cursor.valid {
		return false
	}
	if c.cursor.index > 0 {
		c.focus(c.cursor.page, c.cursor.index-1)
		return true
	}
	for i := sort.SearchInts(c.pages, c.cursor.page) - 1; i >= 0; i-- {
		page := c.pages[i]
		if ms := c.MatchesOnPage(page); len(ms) > 0 {
			c.focus(page, len(ms)-1)
			return true
		}
	}
	return false
}

// NavigateTo focuses match index on page after checking the record is
// still there and its matches are current.
func (c *Controller) NavigateTo(page, index int) bool {
	page = c.src.ValidPage(page)
	if c.records[page] == nil {
		return false
	}
	ms := c.MatchesOnPage(page)
	if index < 0 || index >= len(ms) {
		return false
	}
	c.focus(page, index)
	return true
}

// NavigateToOrdinal focuses the nth match of the whole document, counting
// from zero.
func (c *Controller) NavigateToOrdinal(n int) bool {
	if n < 0 {
		return false
	}
	for _, page := range c.pages {
		ms := c.MatchesOnPage(page)
		if n < len(ms) {
			c.focus(page, n)
			return true
		}
		n -= len(ms)
	}
	return false
}

// countBefore sums the match counts of the records before page.
func (c *Controller) countBefore(page int) int {
	n := 0
	for _, p := range c.pages {
		if p >= page {
			break
		}
		n += c.records[p].Count
	}
	return n
}

// Position returns the one-based ordinal of the focused match, or 0 when
// nothing is focused.
func (c *Controller) Position() int {
	if !c.cursor.valid {
		return 0
	}
	return c.position
}
