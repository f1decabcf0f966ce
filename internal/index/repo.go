package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/parser"
)

// UpsertDocument replaces a page and all its blocks, properties and references
// within a transaction.
func (db *DB) UpsertDocument(doc *parser.Document, checksum string, updatedAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	p := doc.Page
	_, err = tx.Exec(`
		INSERT INTO pages (path, id, name, original_name, is_journal, journal_day, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id            = excluded.id,
			name          = excluded.name,
			original_name = excluded.original_name,
			is_journal    = excluded.is_journal,
			journal_day   = excluded.journal_day,
			checksum      = excluded.checksum,
			updated_at    = excluded.updated_at
	`, doc.Path, p.ID, p.Name, p.OriginalName, p.IsJournal, p.JournalDay, checksum, updatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page %s: %w", doc.Path, err)
	}

	// Cascades to properties and references.
	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, doc.Path); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO entries (
			id, path, is_page, pre_block, parent_id, position, line, id_pinned, content, marker,
			scheduled_day, scheduled_time, scheduled_repeat,
			deadline_day, deadline_time, deadline_repeat
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer entryStmt.Close()

	propStmt, err := tx.Prepare(`INSERT OR IGNORE INTO entry_properties (entry_id, name, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare property insert: %w", err)
	}
	defer propStmt.Close()

	refStmt, err := tx.Prepare(`INSERT OR IGNORE INTO entry_refs (entry_id, target) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare ref insert: %w", err)
	}
	defer refStmt.Close()

	for _, e := range doc.Entries() {
		res, err := entryStmt.Exec(e.ID, doc.Path, e.IsPage, e.PreBlock, e.ParentID, e.Position, e.Line, e.IDPinned,
			e.Content, e.Marker,
			scheduleDay(e.Scheduled), scheduleTime(e.Scheduled), scheduleRepeat(e.Scheduled),
			scheduleDay(e.Deadline), scheduleTime(e.Deadline), scheduleRepeat(e.Deadline))
		if err != nil {
			return fmt.Errorf("index: insert entry %s: %w", e.ID, err)
		}
		// A pinned id already used by another file keeps its first owner.
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		for name, values := range e.Properties {
			for i, v := range values {
				if _, err := propStmt.Exec(e.ID, name, i, v); err != nil {
					return fmt.Errorf("index: insert property: %w", err)
				}
			}
		}
		for _, target := range e.Refs {
			if _, err := refStmt.Exec(e.ID, target); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page and everything on it.
func (db *DB) DeletePage(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete page %s: %w", path, err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a page file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed page file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func scheduleDay(s *models.Schedule) int {
	if s == nil {
		return 0
	}
	return s.Day
}

func scheduleTime(s *models.Schedule) string {
	if s == nil {
		return ""
	}
	return s.Time
}

func scheduleRepeat(s *models.Schedule) string {
	if s == nil {
		return ""
	}
	return s.Repeat
}
