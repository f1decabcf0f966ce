package pageservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/settings"
	"github.com/starford/daymark/internal/storage"
)

func setup(t *testing.T) (*Service, *storage.FS, *index.DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"), settings.UTC())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(store, db), store, db
}

func write(t *testing.T, svc *Service, store *storage.FS, path, content string) {
	t.Helper()
	if err := store.Write(path, []byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := svc.IndexFile(path, []byte(content)); err != nil {
		t.Fatal(err)
	}
}

func TestPinIDs(t *testing.T) {
	svc, store, db := setup(t)
	ctx := context.Background()
	content := "- TODO a\n  SCHEDULED: <2024-05-10 Fri>\n- b\n- TODO c\n  DEADLINE: <2024-05-12 Sun>\n"
	write(t, svc, store, "pages/p.md", content)

	first, _ := db.EntryByID(ctx, derived(t, db, "pages/p.md", "TODO a\nSCHEDULED: <2024-05-10 Fri>"))
	third, _ := db.EntryByID(ctx, derived(t, db, "pages/p.md", "TODO c\nDEADLINE: <2024-05-12 Sun>"))

	if err := svc.PinIDs(ctx, []models.Entry{first, third}); err != nil {
		t.Fatalf("PinIDs: %v", err)
	}

	data, _ := store.Read("pages/p.md")
	want := "- TODO a\n  id:: " + first.ID + "\n  SCHEDULED: <2024-05-10 Fri>\n- b\n- TODO c\n  id:: " + third.ID + "\n  DEADLINE: <2024-05-12 Sun>\n"
	if string(data) != want {
		t.Errorf("file =\n%s\nwant\n%s", data, want)
	}

	pinned, err := db.EntryByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !pinned.IDPinned || pinned.Scheduled == nil {
		t.Errorf("reindexed entry = %+v", pinned)
	}
}

func TestPinIDs_SkipsPinnedAndPages(t *testing.T) {
	svc, store, _ := setup(t)
	write(t, svc, store, "pages/p.md", "- a\n")
	err := svc.PinIDs(context.Background(), []models.Entry{
		{ID: "x", IDPinned: true, Path: "pages/p.md", Line: 1},
		{ID: "y", IsPage: true, Path: "pages/p.md"},
		{ID: "z", PreBlock: true, Path: "pages/p.md", Line: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := store.Read("pages/p.md")
	if string(data) != "- a\n" {
		t.Errorf("file changed: %q", data)
	}
}

func TestPinIDs_Conflict(t *testing.T) {
	svc, store, _ := setup(t)
	write(t, svc, store, "pages/p.md", "- a\n")
	// Edit behind the index's back.
	if err := os.WriteFile(filepath.Join(store.Root(), "pages", "p.md"), []byte("- a\n- new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := svc.PinIDs(context.Background(), []models.Entry{{ID: "65f1c2aa-1111-4222-8333-444455556666", Path: "pages/p.md", Line: 1}})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestPinIDs_MissingFile(t *testing.T) {
	svc, _, _ := setup(t)
	err := svc.PinIDs(context.Background(), []models.Entry{{ID: "x", Path: "pages/gone.md", Line: 1}})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

// derived finds the id of the block on path with the given content.
func derived(t *testing.T, db *index.DB, path, content string) string {
	t.Helper()
	entries, err := db.RunRaw(context.Background(),
		"SELECT id FROM entries WHERE path = '"+path+"' AND content = '"+strings.ReplaceAll(content, "'", "''")+"'")
	if err != nil || len(entries) != 1 {
		t.Fatalf("block %q: %v %v", content, entries, err)
	}
	return entries[0].ID
}
