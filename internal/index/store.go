package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/query"
)

const entryColumns = `
	e.id AS id, e.is_page AS is_page, e.pre_block AS pre_block, e.parent_id AS parent_id,
	e.position AS position, e.line AS line, e.id_pinned AS id_pinned,
	e.content AS content, e.marker AS marker,
	e.scheduled_day AS scheduled_day, e.scheduled_time AS scheduled_time, e.scheduled_repeat AS scheduled_repeat,
	e.deadline_day AS deadline_day, e.deadline_time AS deadline_time, e.deadline_repeat AS deadline_repeat,
	p.id AS page_id, p.name AS page_name, p.original_name AS page_original_name,
	p.is_journal AS page_is_journal, p.journal_day AS page_journal_day, p.path AS page_path`

const entryFrom = ` FROM entries e JOIN pages p ON p.path = e.path `

// Markers excluded from the schedule templates.
const (
	closedMarkers    = `('DONE', 'CANCELED', 'CANCELLED')`
	cancelledMarkers = `('CANCELED', 'CANCELLED')`
)

// maxParams keeps IN lists under SQLite's host parameter limit.
const maxParams = 500

type scanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// EntryByName returns the page with the given name (case-insensitive).
func (db *DB) EntryByName(ctx context.Context, name string) (models.Entry, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	return db.one(ctx, `SELECT`+entryColumns+entryFrom+`WHERE e.is_page = 1 AND p.name = ?`, key, "page "+name)
}

// EntryByID returns the page or block with the given id.
func (db *DB) EntryByID(ctx context.Context, id string) (models.Entry, error) {
	return db.one(ctx, `SELECT`+entryColumns+entryFrom+`WHERE e.id = ?`, strings.ToLower(strings.TrimSpace(id)), "entry "+id)
}

func (db *DB) one(ctx context.Context, q string, arg any, what string) (models.Entry, error) {
	row := db.conn.QueryRowContext(ctx, q, arg)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, fmt.Errorf("index: %s: %w", what, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("index: %s: %w", what, err)
	}
	out := []models.Entry{e}
	if err := hydrate(ctx, db.conn, out); err != nil {
		return models.Entry{}, err
	}
	return out[0], nil
}

// Run executes a structured query template.
func (db *DB) Run(ctx context.Context, q query.Query) ([]query.Row, error) {
	var (
		src  string
		args []any
	)
	switch q.Template {
	case query.JournalRefs:
		src = `SELECT p.journal_day AS day, '' AS kind,` + entryColumns + `
			FROM entry_refs r
			JOIN entries e ON e.id = r.entry_id
			JOIN pages p ON p.path = e.path
			WHERE p.is_journal = 1 AND e.is_page = 0
			  AND r.target IN (?, (SELECT name FROM pages WHERE id = ?))
			ORDER BY p.journal_day, e.position`
		args = []any{q.Target, q.Target}

	case query.PropertyEntries:
		src = `SELECT 0 AS day, '' AS kind,` + entryColumns + entryFrom + `
			WHERE e.is_page = 0
			  AND EXISTS (SELECT 1 FROM entry_properties ep WHERE ep.entry_id = e.id AND ep.name = ?)
			ORDER BY p.path, e.position`
		args = []any{strings.ToLower(q.Property)}

	case query.JournalPagesWithChildren:
		src = `SELECT p.journal_day AS day, '' AS kind,` + entryColumns + entryFrom + `
			WHERE e.is_page = 1 AND p.is_journal = 1
			  AND p.journal_day BETWEEN ? AND ?
			  AND EXISTS (SELECT 1 FROM entries c WHERE c.path = p.path AND c.is_page = 0)
			ORDER BY p.journal_day`
		args = []any{q.From, q.To}

	case query.JournalTasks:
		src = `SELECT p.journal_day AS day, '' AS kind,` + entryColumns + entryFrom + `
			WHERE e.is_page = 0 AND e.marker <> '' AND p.is_journal = 1
			  AND p.journal_day BETWEEN ? AND ?
			ORDER BY p.journal_day, e.position`
		args = []any{q.From, q.To}

	case query.ScheduledEntries:
		src = `SELECT * FROM (
				SELECT e.scheduled_day AS day, 'scheduled' AS kind,` + entryColumns + entryFrom + `
				WHERE e.scheduled_day > 0 AND e.marker NOT IN ` + closedMarkers + `
				UNION ALL
				SELECT e.deadline_day AS day, 'deadline' AS kind,` + entryColumns + entryFrom + `
				WHERE e.deadline_day > 0 AND e.marker NOT IN ` + closedMarkers + `
			) ORDER BY day, kind DESC, page_path, position`

	case query.ScheduledInRange:
		src = `SELECT * FROM (
				SELECT e.scheduled_day AS day, 'scheduled' AS kind,` + entryColumns + entryFrom + `
				WHERE e.scheduled_day BETWEEN ? AND ? AND e.marker NOT IN ` + cancelledMarkers + `
				UNION ALL
				SELECT e.deadline_day AS day, 'deadline' AS kind,` + entryColumns + entryFrom + `
				WHERE e.deadline_day BETWEEN ? AND ? AND e.marker NOT IN ` + cancelledMarkers + `
			) ORDER BY day, kind DESC, page_path, position`
		args = []any{q.From, q.To, q.From, q.To}

	default:
		return nil, fmt.Errorf("index: unknown template %s", q.Template)
	}

	rows, err := db.conn.QueryContext(ctx, src, args...)
	if err != nil {
		return nil, fmt.Errorf("index: %s: %w", q.Template, err)
	}
	defer rows.Close()

	var (
		out     []query.Row
		entries []models.Entry
	)
	for rows.Next() {
		var (
			day  int
			kind string
		)
		e, err := scanEntry(rows, &day, &kind)
		if err != nil {
			return nil, fmt.Errorf("index: %s: scan: %w", q.Template, err)
		}
		out = append(out, query.Row{Day: day, Kind: query.Kind(kind)})
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: %s: %w", q.Template, err)
	}
	if err := hydrate(ctx, db.conn, entries); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Entry = entries[i]
	}
	return out, nil
}

// RunRaw executes a read-only SELECT/WITH statement on the query-only
// connection. The first column of every row must be an entry id; the matching
// entries are returned in row order without duplicates.
func (db *DB) RunRaw(ctx context.Context, src string) ([]models.Entry, error) {
	if err := query.CheckRaw(src); err != nil {
		return nil, err
	}
	rows, err := db.ro.QueryContext(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("index: raw query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("index: raw query: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns", query.ErrRawQueryRejected)
	}

	var ids []string
	seen := make(map[string]struct{})
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("index: raw query: scan: %w", err)
		}
		id := strings.ToLower(asString(*dest[0].(*any)))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: raw query: %w", err)
	}
	return db.entriesByID(ctx, ids)
}

func (db *DB) entriesByID(ctx context.Context, ids []string) ([]models.Entry, error) {
	byID := make(map[string]models.Entry, len(ids))
	for start := 0; start < len(ids); start += maxParams {
		chunk := ids[start:min(start+maxParams, len(ids))]
		rows, err := db.conn.QueryContext(ctx,
			`SELECT`+entryColumns+entryFrom+`WHERE e.id IN (`+placeholders(len(chunk))+`)`, toArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("index: entries by id: %w", err)
		}
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("index: entries by id: scan: %w", err)
			}
			byID[e.ID] = e
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("index: entries by id: %w", err)
		}
	}

	out := make([]models.Entry, 0, len(byID))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	if err := hydrate(ctx, db.conn, out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanEntry(s scanner, lead ...any) (models.Entry, error) {
	var (
		e                          models.Entry
		isPage, preBlock, pinned   bool
		pageJournal                bool
		sDay, dDay                 int
		sTime, sRepeat, dTime, dRe string
	)
	dest := append(lead,
		&e.ID, &isPage, &preBlock, &e.ParentID, &e.Position, &e.Line, &pinned, &e.Content, &e.Marker,
		&sDay, &sTime, &sRepeat, &dDay, &dTime, &dRe,
		&e.PageID, &e.PageName, &e.PageOriginalName, &pageJournal, &e.JournalDay, &e.Path)
	if err := s.Scan(dest...); err != nil {
		return models.Entry{}, err
	}
	e.PreBlock = preBlock
	e.IDPinned = pinned
	if isPage {
		e.IsPage = true
		e.Name = e.PageName
		e.OriginalName = e.PageOriginalName
		e.IsJournal = pageJournal
	}
	if !pageJournal {
		e.JournalDay = 0
	}
	if sDay > 0 {
		e.Scheduled = &models.Schedule{Day: sDay, Time: sTime, Repeat: sRepeat}
	}
	if dDay > 0 {
		e.Deadline = &models.Schedule{Day: dDay, Time: dTime, Repeat: dRe}
	}
	return e, nil
}

// hydrate loads properties and references for entries in place.
func hydrate(ctx context.Context, q queryer, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	index := make(map[string][]int, len(entries))
	var ids []string
	for i, e := range entries {
		if _, ok := index[e.ID]; !ok {
			ids = append(ids, e.ID)
		}
		index[e.ID] = append(index[e.ID], i)
	}

	for start := 0; start < len(ids); start += maxParams {
		chunk := ids[start:min(start+maxParams, len(ids))]
		in := placeholders(len(chunk))
		args := toArgs(chunk)

		props, err := q.QueryContext(ctx,
			`SELECT entry_id, name, value FROM entry_properties WHERE entry_id IN (`+in+`) ORDER BY entry_id, name, position`, args...)
		if err != nil {
			return fmt.Errorf("index: load properties: %w", err)
		}
		for props.Next() {
			var id, name, value string
			if err := props.Scan(&id, &name, &value); err != nil {
				props.Close()
				return fmt.Errorf("index: scan property: %w", err)
			}
			for _, i := range index[id] {
				if entries[i].Properties == nil {
					entries[i].Properties = make(map[string][]string)
				}
				entries[i].Properties[name] = append(entries[i].Properties[name], value)
			}
		}
		err = props.Err()
		props.Close()
		if err != nil {
			return fmt.Errorf("index: load properties: %w", err)
		}

		refs, err := q.QueryContext(ctx,
			`SELECT entry_id, target FROM entry_refs WHERE entry_id IN (`+in+`) ORDER BY rowid`, args...)
		if err != nil {
			return fmt.Errorf("index: load refs: %w", err)
		}
		for refs.Next() {
			var id, target string
			if err := refs.Scan(&id, &target); err != nil {
				refs.Close()
				return fmt.Errorf("index: scan ref: %w", err)
			}
			for _, i := range index[id] {
				entries[i].Refs = append(entries[i].Refs, target)
			}
		}
		err = refs.Err()
		refs.Close()
		if err != nil {
			return fmt.Errorf("index: load refs: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
