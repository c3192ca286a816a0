// Package highlight persists saved selections in a sqlite database. A
// highlight is stored as a page and a packed character range, the same
// form the selection model hands out, so restoring one is a jump plus a
// SetSelection.
package highlight

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/selection"
)

// ErrNotFound is returned by Delete for an unknown id.
var ErrNotFound = errors.New("highlight not found")

// ErrInvalidRange is returned by Save for an empty or inverted range.
var ErrInvalidRange = errors.New("invalid highlight range")

// Highlight is one saved selection.
type Highlight struct {
	ID      string
	Doc     string
	Page    int
	Packed  int64
	Note    string
	Created time.Time
}

// Range unpacks the character range of the highlight.
func (h Highlight) Range() (start, end int) {
	return selection.UnpackRange(h.Packed)
}

// Config holds store settings.
type Config struct {
	// CacheKB is the sqlite page cache size. Default: 2048
	CacheKB int
	// BusyTimeout bounds how long a writer waits for a lock. Default: 2s
	BusyTimeout time.Duration
}

// DefaultConfig returns the settings used by the viewer.
func DefaultConfig() Config {
	return Config{CacheKB: 2048, BusyTimeout: 2 * time.Second}
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS highlights (
    id TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    page INTEGER NOT NULL,
    packed INTEGER NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    created INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_highlights_doc_page ON highlights(doc, page);
`

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "rdoc", "highlights.db"), nil
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory store.
func Open(path string, cfg Config) (*Store, error) {
	if cfg.CacheKB <= 0 {
		cfg.CacheKB = DefaultConfig().CacheKB
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultConfig().BusyTimeout
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create highlight directory: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&"
	} else {
		dsn += "?"
	}
	dsn += fmt.Sprintf("_pragma=cache_size(-%d)&_pragma=busy_timeout(%d)", cfg.CacheKB, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open highlight database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect highlight database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create highlight schema: %w", err)
	}
	if err := checkSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	debuglog.Printf("highlight", "opened %s", path)
	return &Store{db: db}, nil
}

func checkSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
		if err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > schemaVersion:
		return fmt.Errorf("highlight database has schema %d, newer than %d", version, schemaVersion)
	}
	return nil
}

// Save stores a highlight and returns it with its new id.
func (s *Store) Save(doc string, page int, packed int64, note string) (Highlight, error) {
	start, end := selection.UnpackRange(packed)
	if page < 0 || start < 0 || end <= start {
		return Highlight{}, ErrInvalidRange
	}
	h := Highlight{
		ID:      uuid.NewString(),
		Doc:     doc,
		Page:    page,
		Packed:  packed,
		Note:    strings.TrimSpace(note),
		Created: time.Now().UTC().Truncate(time.Millisecond),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO highlights (id, doc, page, packed, note, created) VALUES (?, ?, ?, ?, ?, ?)",
		h.ID, h.Doc, h.Page, h.Packed, h.Note, h.Created.UnixMilli(),
	)
	if err != nil {
		return Highlight{}, fmt.Errorf("save highlight: %w", err)
	}
	return h, nil
}

// List returns the highlights of doc ordered by page and range start.
func (s *Store) List(doc string) ([]Highlight, error) {
	return s.query(`
		SELECT id, doc, page, packed, note, created
		FROM highlights
		WHERE doc = ?
		ORDER BY page, packed, created
	`, doc)
}

// ListPage returns the highlights on one page of doc.
func (s *Store) ListPage(doc string, page int) ([]Highlight, error) {
	return s.query(`
		SELECT id, doc, page, packed, note, created
		FROM highlights
		WHERE doc = ? AND page = ?
		ORDER BY packed, created
	`, doc, page)
}

func (s *Store) query(q string, args ...any) ([]Highlight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var out []Highlight
	for rows.Next() {
		var h Highlight
		var created int64
		if err := rows.Scan(&h.ID, &h.Doc, &h.Page, &h.Packed, &h.Note, &created); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		h.Created = time.UnixMilli(created).UTC()
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	return out, nil
}

// Delete removes a highlight by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM highlights WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
