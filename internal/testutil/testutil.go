// Package testutil provides shared test helpers for setting up vaults, index
// databases and a day aggregator over them.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/pageservice"
	"github.com/starford/daymark/internal/query"
	"github.com/starford/daymark/internal/settings"
	"github.com/starford/daymark/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T, dates settings.Context) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "daymark-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name(), dates)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory holding files (path → content).
func TestVault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return vaultDir, store
}

// Env is an indexed vault with the services built over it.
type Env struct {
	Store *storage.FS
	DB    *index.DB
	Pages *pageservice.Service
	Days  *days.Aggregator
}

// NewEnv indexes files under cfg and wires a day aggregator that pins event
// ids into the vault. cfg's location must resolve; tests usually set "UTC".
func NewEnv(t *testing.T, cfg settings.Days, files map[string]string) *Env {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("days config: %v", err)
	}
	dates, err := cfg.Context()
	if err != nil {
		t.Fatal(err)
	}
	_, store := TestVault(t, files)
	db := TestDB(t, dates)
	if _, err := index.Sync(db, store, Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	pages := pageservice.NewService(store, db)
	agg := days.New(query.NewEngine(db, Logger()), cfg, dates, Logger(), days.WithIDPinner(pages))
	return &Env{Store: store, DB: db, Pages: pages, Days: agg}
}

// UTCDays returns the default day configuration pinned to UTC.
func UTCDays(slots ...settings.PropertySlot) settings.Days {
	cfg := settings.NewDefaultDays()
	cfg.Location = "UTC"
	cfg.Properties = slots
	return cfg
}
