package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/daymark/internal/models"
)

// Engine wraps a Store and absorbs its faults: every failure is logged and
// turned into an empty result.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates an Engine over store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Structured runs a structured query.
func (e *Engine) Structured(ctx context.Context, q Query) []Row {
	rows, err := e.store.Run(ctx, q)
	if err != nil {
		e.logger.Error("structured query failed",
			slog.String("template", q.Template.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return rows
}

// Raw runs a raw read-only query. The second result is false when the query
// failed, so callers can tell "no rows" from "broken query".
func (e *Engine) Raw(ctx context.Context, src string) ([]models.Entry, bool) {
	entries, err := e.store.RunRaw(ctx, src)
	if err != nil {
		e.logger.Error("raw query failed", slog.String("error", err.Error()))
		return nil, false
	}
	return entries, true
}

// Lookup resolves a target to an entry: a uuid is looked up as an id first,
// anything else as a page name and then as an id.
func (e *Engine) Lookup(ctx context.Context, target string) (models.Entry, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return models.Entry{}, false
	}
	if _, err := uuid.Parse(target); err == nil {
		if ent, err := e.store.EntryByID(ctx, strings.ToLower(target)); err == nil {
			return ent, true
		}
	}
	ent, err := e.store.EntryByName(ctx, target)
	if err == nil {
		return ent, true
	}
	e.logger.Debug("target lookup by name failed",
		slog.String("target", target),
		slog.String("error", err.Error()))
	if ent, err := e.store.EntryByID(ctx, target); err == nil {
		return ent, true
	}
	return models.Entry{}, false
}
