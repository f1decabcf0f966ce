package query

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/daymark/internal/models"
)

var errNotFound = errors.New("not found")

type fakeStore struct {
	byName map[string]models.Entry
	byID   map[string]models.Entry
	rows   []Row
	runErr error
	rawErr error
	raw    []models.Entry
}

func (f *fakeStore) EntryByName(_ context.Context, name string) (models.Entry, error) {
	if e, ok := f.byName[name]; ok {
		return e, nil
	}
	return models.Entry{}, errNotFound
}

func (f *fakeStore) EntryByID(_ context.Context, id string) (models.Entry, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return models.Entry{}, errNotFound
}

func (f *fakeStore) Run(context.Context, Query) ([]Row, error) {
	return f.rows, f.runErr
}

func (f *fakeStore) RunRaw(context.Context, string) ([]models.Entry, error) {
	return f.raw, f.rawErr
}

func newEngine(s Store) (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEngine(s, slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func TestEngine_StructuredAbsorbsErrors(t *testing.T) {
	e, logs := newEngine(&fakeStore{runErr: errors.New("disk on fire")})
	if rows := e.Structured(context.Background(), Query{Template: JournalTasks}); len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}
	for _, want := range []string{"disk on fire", "journal_tasks"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q: %s", want, logs.String())
		}
	}
}

func TestEngine_Structured(t *testing.T) {
	want := []Row{{Day: 20240301, Entry: models.Entry{ID: "a"}}}
	e, _ := newEngine(&fakeStore{rows: want})
	if got := e.Structured(context.Background(), Query{Template: JournalRefs, Target: "x"}); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %+v, want %+v", got, want)
	}
}

func TestEngine_Raw(t *testing.T) {
	e, logs := newEngine(&fakeStore{rawErr: ErrRawQueryRejected})
	got, ok := e.Raw(context.Background(), "DELETE FROM entries")
	if ok || len(got) != 0 {
		t.Errorf("Raw = %v, %v; want nothing, false", got, ok)
	}
	if !strings.Contains(logs.String(), "raw query failed") {
		t.Errorf("log = %s", logs.String())
	}

	e, _ = newEngine(&fakeStore{raw: []models.Entry{{ID: "j"}}})
	got, ok = e.Raw(context.Background(), "SELECT id FROM entries")
	if !ok || len(got) != 1 {
		t.Errorf("Raw = %v, %v; want one entry", got, ok)
	}
}

func TestEngine_Lookup(t *testing.T) {
	const id = "65f1c2aa-1111-4222-8333-444455556666"
	s := &fakeStore{
		byName: map[string]models.Entry{"Project": {ID: "p", IsPage: true}},
		byID:   map[string]models.Entry{id: {ID: id}, "p": {ID: "p"}},
	}
	e, _ := newEngine(s)
	ctx := context.Background()

	if got, ok := e.Lookup(ctx, "Project"); !ok || !got.IsPage {
		t.Errorf("Lookup(Project) = %+v, %v", got, ok)
	}
	if got, ok := e.Lookup(ctx, "65F1C2AA-1111-4222-8333-444455556666"); !ok || got.ID != id {
		t.Errorf("Lookup(uuid) = %+v, %v", got, ok)
	}
	if _, ok := e.Lookup(ctx, "nobody"); ok {
		t.Error("Lookup(nobody) should fail")
	}
	if _, ok := e.Lookup(ctx, "  "); ok {
		t.Error("Lookup(blank) should fail")
	}
}

func TestCheckRaw(t *testing.T) {
	ok := []string{
		"SELECT id FROM entries",
		"  with x as (select 1) select id from entries;",
	}
	for _, src := range ok {
		if err := CheckRaw(src); err != nil {
			t.Errorf("CheckRaw(%q): %v", src, err)
		}
	}
	bad := []string{
		"",
		"DELETE FROM entries",
		"SELECT 1; DROP TABLE entries",
		"PRAGMA query_only = 0",
	}
	for _, src := range bad {
		if err := CheckRaw(src); !errors.Is(err, ErrRawQueryRejected) {
			t.Errorf("CheckRaw(%q) err = %v", src, err)
		}
	}
}
