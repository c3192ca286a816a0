package document

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a disposed document.
	ErrClosed = errors.New("document closed")
	// ErrPageRange is returned when a page index does not name a page.
	ErrPageRange = errors.New("page index out of range")
)

// PageOpenError reports a single page that failed to open or decode. The
// rest of the document stays usable. Page is the provider page index; the
// OnPageError callback receives the user page separately.
type PageOpenError struct {
	Page int
	Err  error
}

func (e *PageOpenError) Error() string {
	return fmt.Sprintf("open page %d: %v", e.Page, e.Err)
}

func (e *PageOpenError) Unwrap() error { return e.Err }

// DocumentLoadError reports that the document as a whole could not be
// loaded and must be discarded.
type DocumentLoadError struct {
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load document: %v", e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }
