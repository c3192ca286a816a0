// Package document wraps a page content provider with the bookkeeping the
// viewer needs: user page remapping, a lazily filled page/text handle cache
// guarded by one lock, and the error taxonomy for load and page failures.
package document

import "github.com/kk-code-lab/rdoc/internal/geom"

// Opaque handles handed out by a Provider. Zero is never a valid handle.
type (
	PageHandle uint64
	TextHandle uint64
	KeyHandle  uint64
	Cursor     uint64
)

// FindFlags tune a text search.
type FindFlags uint8

const (
	FindMatchCase FindFlags = 1 << iota
	FindWholeWord
)

// Provider is the content collaborator: something that knows page sizes,
// page text and glyph geometry. Implementations need not be reentrant;
// Document serialises every call that touches page or text handles.
//
// Character indices are rune offsets into the string returned by Text.
type Provider interface {
	PageCount() int
	NaturalSize(page int) (geom.Size, error)

	OpenPage(page int) (PageHandle, error)
	ClosePage(h PageHandle)
	OpenText(h PageHandle) (TextHandle, error)
	CloseText(t TextHandle)
	Text(t TextHandle) string

	// CharRects returns one rect per character in [start, start+count).
	CharRects(h PageHandle, t TextHandle, start, count int) []geom.Rect
	// CharPosition returns the glyph box of one character. When loose is
	// set the box covers the full line height instead of the ink extent.
	CharPosition(h PageHandle, t TextHandle, index int, loose bool) (geom.Rect, bool)
	// CharIndexAt returns the character under p, or -1.
	CharIndexAt(h PageHandle, t TextHandle, p geom.Point, tolerance float64) int

	CompileKey(query string) (KeyHandle, error)
	ReleaseKey(k KeyHandle)
	// FindStart positions a cursor on the first match at or after from.
	FindStart(t TextHandle, k KeyHandle, flags FindFlags, from int) (Cursor, bool)
	// FindNext advances the cursor; false once the matches are exhausted.
	FindNext(c Cursor) bool
	// MatchRange reports the current match as [start, end).
	MatchRange(c Cursor) (start, end int)
	CloseFind(c Cursor)

	Close() error
}
