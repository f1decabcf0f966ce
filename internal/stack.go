package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/pageservice"
	"github.com/starford/daymark/internal/query"
	"github.com/starford/daymark/internal/storage"
)

// Stack is an opened, synced index with the services built over it.
type Stack struct {
	Config *Config
	Logger *slog.Logger
	Store  *storage.FS
	DB     *index.DB
	Pages  *pageservice.Service
	Days   *days.Aggregator
	// Synced reports what the sync at Open changed.
	Synced index.SyncStats
}

// Open loads the options, installs the logger, syncs the vault into the index
// and wires the day aggregator. The caller must Close the stack.
func Open(opts ...Option) (*Stack, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("property_slots", len(cfg.Days.ActiveSlots())),
		slog.String("log_level", cfg.App.LogLevel.String()))

	dates, err := cfg.Days.Context()
	if err != nil {
		return nil, fmt.Errorf("resolve date context: %w", err)
	}

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path, dates)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	stats, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync done",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed),
			slog.Int("failed", stats.Failed))
	}

	pages := pageservice.NewService(store, db)
	engine := query.NewEngine(db, logger)
	agg := days.New(engine, cfg.Days, dates, logger, days.WithIDPinner(pages))

	return &Stack{
		Config: cfg,
		Logger: logger,
		Store:  store,
		DB:     db,
		Pages:  pages,
		Days:   agg,
		Synced: stats,
	}, nil
}

// Reconcile re-syncs the vault into the index.
func (s *Stack) Reconcile() (index.SyncStats, error) {
	stats, err := index.Sync(s.DB, s.Store, s.Logger)
	if err != nil {
		return stats, fmt.Errorf("reconcile: %w", err)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("reconcile: %d files failed: %w", stats.Failed, errSyncIncomplete)
	}
	return stats, nil
}

var errSyncIncomplete = errors.New("sync incomplete")

// Close releases the index.
func (s *Stack) Close() error {
	return s.DB.Close()
}
