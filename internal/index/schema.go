// Package index keeps the SQLite graph index of the vault: pages, blocks, their
// properties and references. It is the document store behind the day queries.
package index

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/daymark/internal/query"
	"github.com/starford/daymark/internal/settings"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	path          TEXT PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	original_name TEXT NOT NULL,
	is_journal    INTEGER NOT NULL DEFAULT 0,
	journal_day   INTEGER NOT NULL DEFAULT 0,
	checksum      TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pages_name ON pages(name);
CREATE INDEX IF NOT EXISTS idx_pages_journal_day ON pages(journal_day) WHERE is_journal = 1;

CREATE TABLE IF NOT EXISTS entries (
	id               TEXT PRIMARY KEY,
	path             TEXT NOT NULL REFERENCES pages(path) ON DELETE CASCADE,
	is_page          INTEGER NOT NULL DEFAULT 0,
	pre_block        INTEGER NOT NULL DEFAULT 0,
	parent_id        TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL DEFAULT 0,
	line             INTEGER NOT NULL DEFAULT 0,
	id_pinned        INTEGER NOT NULL DEFAULT 0,
	content          TEXT NOT NULL DEFAULT '',
	marker           TEXT NOT NULL DEFAULT '',
	scheduled_day    INTEGER NOT NULL DEFAULT 0,
	scheduled_time   TEXT NOT NULL DEFAULT '',
	scheduled_repeat TEXT NOT NULL DEFAULT '',
	deadline_day     INTEGER NOT NULL DEFAULT 0,
	deadline_time    TEXT NOT NULL DEFAULT '',
	deadline_repeat  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path);
CREATE INDEX IF NOT EXISTS idx_entries_marker ON entries(marker) WHERE marker <> '';
CREATE INDEX IF NOT EXISTS idx_entries_scheduled ON entries(scheduled_day) WHERE scheduled_day > 0;
CREATE INDEX IF NOT EXISTS idx_entries_deadline ON entries(deadline_day) WHERE deadline_day > 0;

CREATE TABLE IF NOT EXISTS entry_properties (
	entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL,
	value    TEXT NOT NULL,
	UNIQUE(entry_id, name, position)
);

CREATE INDEX IF NOT EXISTS idx_entry_properties_name ON entry_properties(name);

CREATE TABLE IF NOT EXISTS entry_refs (
	entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	target   TEXT NOT NULL,
	UNIQUE(entry_id, target)
);

CREATE INDEX IF NOT EXISTS idx_entry_refs_target ON entry_refs(target);
`

// metaLayoutKey stores the naming rules the current rows were parsed with.
const metaLayoutKey = "layout"

// DB wraps a read-write and a query-only sql.DB with index operations.
type DB struct {
	conn  *sql.DB
	ro    *sql.DB
	dates settings.Context
}

var _ query.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema. Pages are
// parsed under dates; when the journal naming rules change every page is
// re-indexed on the next sync.
func Open(dsn string, dates settings.Context) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}

	ro, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_query_only=true")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: open query-only db: %w", err)
	}

	db := &DB{conn: conn, ro: ro, dates: dates}
	if err := db.checkLayout(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes both connections.
func (db *DB) Close() error {
	return errors.Join(db.ro.Close(), db.conn.Close())
}

// Ping verifies the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Dates returns the date context pages are parsed under.
func (db *DB) Dates() settings.Context {
	return db.dates
}

func (db *DB) checkLayout() error {
	layout := db.dates.JournalFileFormat + "|" + db.dates.DateFormat + "|" + db.dates.Location.String()
	var stored string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaLayoutKey).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("index: read layout: %w", err)
	}
	if stored == layout {
		return nil
	}
	if _, err := db.conn.Exec(`UPDATE pages SET checksum = ''`); err != nil {
		return fmt.Errorf("index: reset checksums: %w", err)
	}
	if _, err := db.conn.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaLayoutKey, layout); err != nil {
		return fmt.Errorf("index: write layout: %w", err)
	}
	return nil
}
