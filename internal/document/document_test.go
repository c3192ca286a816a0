package document

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kk-code-lab/rdoc/internal/geom"
)

type fakeProvider struct {
	mu        sync.Mutex
	texts     []string
	sizes     []geom.Size
	failPages map[int]bool
	failText  map[int]bool
	opens     map[int]int
	closed    map[PageHandle]int
	released  map[KeyHandle]int
	closeErr  error
	closes    int
	next      uint64
	handles   map[PageHandle]int
	textPages map[TextHandle]int
	keys      map[KeyHandle]string
	cursors   map[Cursor][2]int
	cursorKey map[Cursor]struct {
		page int
		key  string
	}
}

func newFakeProvider(texts ...string) *fakeProvider {
	f := &fakeProvider{
		texts:     texts,
		failPages: map[int]bool{},
		failText:  map[int]bool{},
		opens:     map[int]int{},
		closed:    map[PageHandle]int{},
		released:  map[KeyHandle]int{},
		handles:   map[PageHandle]int{},
		textPages: map[TextHandle]int{},
		keys:      map[KeyHandle]string{},
		cursors:   map[Cursor][2]int{},
		cursorKey: map[Cursor]struct {
			page int
			key  string
		}{},
	}
	for range texts {
		f.sizes = append(f.sizes, geom.Size{W: 100, H: 200})
	}
	return f
}

func (f *fakeProvider) id() uint64 { f.next++; return f.next }

func (f *fakeProvider) PageCount() int { return len(f.texts) }

func (f *fakeProvider) NaturalSize(page int) (geom.Size, error) {
	return f.sizes[page], nil
}

func (f *fakeProvider) OpenPage(page int) (PageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens[page]++
	if f.failPages[page] {
		return 0, errors.New("corrupt page")
	}
	h := PageHandle(f.id())
	f.handles[h] = page
	return h, nil
}

func (f *fakeProvider) ClosePage(h PageHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[h]++
}

func (f *fakeProvider) OpenText(h PageHandle) (TextHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failText[f.handles[h]] {
		return 0, errors.New("no text layer")
	}
	t := TextHandle(f.id())
	f.textPages[t] = f.handles[h]
	return t, nil
}

func (f *fakeProvider) CloseText(TextHandle) {}

func (f *fakeProvider) Text(t TextHandle) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[f.textPages[t]]
}

func (f *fakeProvider) CharRects(_ PageHandle, _ TextHandle, start, count int) []geom.Rect {
	out := make([]geom.Rect, count)
	for i := range out {
		x := float64(start + i)
		out[i] = geom.Rect{Left: x, Top: 0, Right: x + 1, Bottom: 1}
	}
	return out
}

func (f *fakeProvider) CharPosition(_ PageHandle, _ TextHandle, index int, _ bool) (geom.Rect, bool) {
	x := float64(index)
	return geom.Rect{Left: x, Right: x + 1, Bottom: 1}, true
}

func (f *fakeProvider) CharIndexAt(_ PageHandle, _ TextHandle, p geom.Point, _ float64) int {
	return int(p.X)
}

func (f *fakeProvider) CompileKey(q string) (KeyHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := KeyHandle(f.id())
	f.keys[k] = q
	return k, nil
}

func (f *fakeProvider) ReleaseKey(k KeyHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[k]++
}

func (f *fakeProvider) FindStart(t TextHandle, k KeyHandle, _ FindFlags, from int) (Cursor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := f.textPages[t]
	key := f.keys[k]
	c := Cursor(f.id())
	f.cursorKey[c] = struct {
		page int
		key  string
	}{page, key}
	return c, f.seekLocked(c, from)
}

func (f *fakeProvider) seekLocked(c Cursor, from int) bool {
	info := f.cursorKey[c]
	text := f.texts[info.page]
	if from > len(text) {
		return false
	}
	idx := strings.Index(text[from:], info.key)
	if idx < 0 {
		return false
	}
	start := from + idx
	f.cursors[c] = [2]int{start, start + len(info.key)}
	return true
}

func (f *fakeProvider) FindNext(c Cursor) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seekLocked(c, f.cursors[c][1])
}

func (f *fakeProvider) MatchRange(c Cursor) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.cursors[c]
	return r[0], r[1]
}

func (f *fakeProvider) CloseFind(Cursor) {}

func (f *fakeProvider) Close() error {
	f.closes++
	return f.closeErr
}

func TestLoadRejectsZeroSizedPage(t *testing.T) {
	p := newFakeProvider("a", "b")
	p.sizes[1] = geom.Size{W: 0, H: 10}
	_, err := Load(p, Options{})
	var loadErr *DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected DocumentLoadError, got %v", err)
	}
}

func TestLoadRejectsInvalidUserPages(t *testing.T) {
	p := newFakeProvider("a", "b")
	if _, err := Load(p, Options{UserPages: []int{0, 2}}); err == nil {
		t.Fatalf("expected error for user page referring to missing page")
	}
}

func TestDocumentPageRemap(t *testing.T) {
	p := newFakeProvider("zero", "one", "two")
	doc, err := Load(p, Options{UserPages: []int{2, 0, 0}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		user int
		want int
	}{
		{-1, -1},
		{0, 2},
		{1, 0},
		{2, 0},
		{3, -1},
	}
	for _, tt := range tests {
		if got := doc.DocumentPage(tt.user); got != tt.want {
			t.Fatalf("DocumentPage(%d)=%d want %d", tt.user, got, tt.want)
		}
	}
	if got := doc.ValidPage(10); got != 2 {
		t.Fatalf("ValidPage(10)=%d want 2", got)
	}
	if got := doc.ValidPage(-4); got != 0 {
		t.Fatalf("ValidPage(-4)=%d want 0", got)
	}

	text, err := doc.Text(0)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text.Content != "two" || text.Page != 2 {
		t.Fatalf("unexpected text %+v", text)
	}

	// Repeated user pages share one handle.
	a, _ := doc.Text(1)
	b, _ := doc.Text(2)
	if a != b {
		t.Fatalf("expected repeated page to share cached text")
	}
	if p.opens[0] != 1 {
		t.Fatalf("expected page 0 to be opened once, got %d", p.opens[0])
	}
}

func TestConcurrentOpenOpensOnce(t *testing.T) {
	p := newFakeProvider("a", "b", "c")
	doc, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := doc.Text(1); err != nil {
				t.Errorf("Text: %v", err)
			}
		}()
	}
	wg.Wait()
	if p.opens[1] != 1 {
		t.Fatalf("expected a single open, got %d", p.opens[1])
	}
}

func TestPageOpenErrorIsStickyAndReportedOnce(t *testing.T) {
	p := newFakeProvider("a", "b")
	p.failPages[1] = true
	var reported []int
	doc, err := Load(p, Options{OnPageError: func(page int, err error) {
		reported = append(reported, page)
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := doc.OpenPage(1)
		var perr *PageOpenError
		if !errors.As(err, &perr) || perr.Page != 1 {
			t.Fatalf("expected PageOpenError for page 1, got %v", err)
		}
	}
	if diff := cmp.Diff([]int{1}, reported); diff != "" {
		t.Fatalf("page error reports mismatch (-want +got):\n%s", diff)
	}
	if !doc.PageHasError(1) || doc.PageHasError(0) {
		t.Fatalf("unexpected PageHasError state")
	}
	if p.opens[1] != 1 {
		t.Fatalf("failed page reopened %d times", p.opens[1])
	}
	if _, err := doc.Text(0); err != nil {
		t.Fatalf("healthy page should still open: %v", err)
	}
}

func TestPageErrorsAreReportedByUserPage(t *testing.T) {
	p := newFakeProvider("n0", "n1", "n2", "n3")
	p.failPages[3] = true
	var reported []int
	doc, err := Load(p, Options{
		UserPages:   []int{3, 0, 1, 2},
		OnPageError: func(page int, err error) { reported = append(reported, page) },
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := doc.Text(0); err == nil {
		t.Fatalf("expected user page 0 to fail")
	}
	if diff := cmp.Diff([]int{0}, reported); diff != "" {
		t.Fatalf("page error reports mismatch (-want +got):\n%s", diff)
	}
	if !doc.PageHasError(0) || doc.PageHasError(3) {
		t.Fatalf("PageHasError(0)=%v PageHasError(3)=%v", doc.PageHasError(0), doc.PageHasError(3))
	}
}

func TestTextOpenFailureIsStickyAndReported(t *testing.T) {
	p := newFakeProvider("a", "b")
	p.failText[1] = true
	var reported []int
	doc, err := Load(p, Options{OnPageError: func(page int, err error) {
		reported = append(reported, page)
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < 3; i++ {
		var perr *PageOpenError
		if _, err := doc.Text(1); !errors.As(err, &perr) {
			t.Fatalf("expected PageOpenError, got %v", err)
		}
	}
	if diff := cmp.Diff([]int{1}, reported); diff != "" {
		t.Fatalf("page error reports mismatch (-want +got):\n%s", diff)
	}
	if !doc.PageHasError(1) {
		t.Fatalf("page without text should be marked failed")
	}
	if p.opens[1] != 1 {
		t.Fatalf("failed page reopened %d times", p.opens[1])
	}
	for h, page := range p.handles {
		if page == 1 && p.closed[h] != 1 {
			t.Fatalf("handle of the failed page closed %d times", p.closed[h])
		}
	}
}

func TestOutOfRangeQueriesAreNeutral(t *testing.T) {
	doc, err := Load(newFakeProvider("a"), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := doc.Text(5); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
	if got := doc.NaturalSize(-1); got != (geom.Size{}) {
		t.Fatalf("expected zero size, got %+v", got)
	}
	if rects := doc.CharRects(nil, 0, 3); rects != nil {
		t.Fatalf("expected nil rects for nil text")
	}
}

func TestReleasePageRefreshesIdentity(t *testing.T) {
	doc, err := Load(newFakeProvider("hello"), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first, _ := doc.Text(0)
	doc.ReleasePage(0)
	if doc.Current(first) {
		t.Fatalf("released text should no longer be current")
	}
	if rects := doc.CharRects(first, 0, 2); rects != nil {
		t.Fatalf("stale text must not reach the provider")
	}
	second, _ := doc.Text(0)
	if second.ID <= first.ID {
		t.Fatalf("expected a fresh identity, got %d after %d", second.ID, first.ID)
	}
}

func TestFindMatchesInTextOrder(t *testing.T) {
	doc, err := Load(newFakeProvider("abcabcab"), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	key, err := doc.CompileKey("ab")
	if err != nil {
		t.Fatalf("CompileKey: %v", err)
	}
	text, _ := doc.Text(0)
	got := doc.FindMatches(text, key, 0, 0)
	want := []Span{{0, 2}, {3, 5}, {6, 8}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	if got := doc.FindMatches(text, key, 0, 4); len(got) != 1 {
		t.Fatalf("expected one match after index 4, got %v", got)
	}
}

func TestFindMatchesOnPageSurvivesRelease(t *testing.T) {
	doc, err := Load(newFakeProvider("needle here"), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	key, err := doc.CompileKey("needle")
	if err != nil {
		t.Fatalf("CompileKey: %v", err)
	}
	stale, _ := doc.Text(0)
	doc.ReleasePage(0)
	if got := doc.FindMatches(stale, key, 0, 0); got != nil {
		t.Fatalf("stale text must not be searched, got %v", got)
	}
	got, err := doc.FindMatchesOnPage(0, key, 0, 0)
	if err != nil {
		t.Fatalf("FindMatchesOnPage: %v", err)
	}
	if diff := cmp.Diff([]Span{{0, 6}}, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	if _, err := doc.FindMatchesOnPage(4, key, 0, 0); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestCloseReleasesEverythingOnce(t *testing.T) {
	p := newFakeProvider("a", "b")
	p.closeErr = fmt.Errorf("boom")
	doc, err := Load(p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, _ := doc.OpenPage(0)
	key, _ := doc.CompileKey("a")
	if err := doc.Close(); err == nil {
		t.Fatalf("expected provider close error to surface")
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if p.closed[h] != 1 || p.released[key] != 1 || p.closes != 1 {
		t.Fatalf("expected single close/release, got page=%d key=%d provider=%d", p.closed[h], p.released[key], p.closes)
	}
	doc.ReleaseKey(key)
	if p.released[key] != 1 {
		t.Fatalf("release after close must be a no-op")
	}
	if _, err := doc.Text(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
