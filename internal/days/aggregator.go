// Package days builds day maps: calendar days annotated with journal links,
// task and content signals, schedule markers and configured date properties.
//
// Every aggregation runs a fixed sequence of stages. Each stage returns a
// delta map that the aggregator merges into the result in stage order; a
// stage whose store query fails contributes nothing and later stages still
// run. Aggregation itself never fails.
package days

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/parser"
	"github.com/starford/daymark/internal/query"
	"github.com/starford/daymark/internal/recurrence"
	"github.com/starford/daymark/internal/settings"
)

// IDPinner writes derived entry ids back into the vault so that external
// calendars keep a stable handle on synced events.
type IDPinner interface {
	PinIDs(ctx context.Context, entries []models.Entry) error
}

// Aggregator builds day maps from the document store.
type Aggregator struct {
	engine *query.Engine
	cfg    settings.Days
	dates  settings.Context
	logger *slog.Logger
	pinner IDPinner
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithIDPinner pins the ids of entries returned by EventsForRange.
func WithIDPinner(p IDPinner) Option {
	return func(a *Aggregator) { a.pinner = p }
}

// New creates an Aggregator. cfg supplies the property slots and schedule
// display settings, dates the calendar they are interpreted in.
func New(engine *query.Engine, cfg settings.Days, dates settings.Context, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{engine: engine, cfg: cfg, dates: dates, logger: logger}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Dates returns the date context day keys are computed in.
func (a *Aggregator) Dates() settings.Context {
	return a.dates
}

// MonthOptions select the month and the sources of a month map.
type MonthOptions struct {
	Year  int
	Month time.Month
	// WithAllProperties scans the whole store for configured properties
	// instead of reading them off the target entry only.
	WithAllProperties bool
	// WithJournalFill adds contentful, task and schedule signals.
	WithJournalFill bool
	// DateFormat overrides the configured format property values are parsed with.
	DateFormat string
}

// Month builds the day map for one month. A Dynamic target always scans all
// properties and fills journal signals. A target that does not resolve to an
// entry yields an empty map.
func (a *Aggregator) Month(ctx context.Context, target Target, opts MonthOptions) Map {
	r := a.newRun(opts.Year, opts.Month, opts.DateFormat)
	out := Map{}

	withAll, withJournal := opts.WithAllProperties, opts.WithJournalFill
	var subject *models.Entry

	switch t := target.(type) {
	case Dynamic:
		withAll, withJournal = true, true
		if t.Current != "" {
			e, ok := a.engine.Lookup(ctx, t.Current)
			if !ok {
				a.logger.Info("days: current page not found", slog.String("target", t.Current))
				return out
			}
			subject = &e
		}
	case Named:
		e, ok := a.engine.Lookup(ctx, t.Name)
		if !ok {
			a.logger.Info("days: target not found", slog.String("target", t.Name))
			return out
		}
		subject = &e
	case Custom:
		out.Merge(r.customQuery(ctx, t.Query))
	default:
		withAll = true
	}

	if subject != nil {
		out.Merge(r.directRefs(ctx, *subject))
	}
	switch {
	case withAll:
		out.Merge(r.properties(ctx))
	case subject != nil:
		out.Merge(r.subjectProperties(*subject))
	}
	if subject != nil && subject.IsPage && subject.IsJournal {
		delta := Map{}
		delta.markCurrent(r.dates.FromDayNumber(subject.JournalDay))
		out.Merge(delta)
	}
	if withJournal {
		out.Merge(r.journalFill(ctx))
		out.Merge(r.tasks(ctx))
		if a.cfg.ShowSchedule {
			out.Merge(r.schedule(ctx))
		}
	}
	return out
}

// Year builds the day map of a whole year together with a title for it. Only
// journal days are collected: those referencing the target entry, or the
// journal pages a custom query returns. Days outside the year are dropped.
func (a *Aggregator) Year(ctx context.Context, target Target, year int, dateFormat string) (Map, string) {
	r := a.newRun(year, time.January, dateFormat)
	out := Map{}
	var title string

	switch t := target.(type) {
	case Custom:
		title = t.Title
		if title == "" {
			title = t.Query
		}
		out.Merge(r.customQuery(ctx, t.Query))
	case Named:
		title = t.Name
		if e, ok := a.engine.Lookup(ctx, t.Name); ok {
			title = label(e)
			out.Merge(r.directRefs(ctx, e))
		}
	case Dynamic:
		title = t.Current
		if t.Current == "" {
			return out, title
		}
		if e, ok := a.engine.Lookup(ctx, t.Current); ok {
			title = label(e)
			out.Merge(r.directRefs(ctx, e))
		}
	default:
		return out, ""
	}

	start := r.dates.MonthStart(year, time.January)
	return out.Clip(start, start.AddDate(1, 0, 0)), title
}

// run carries the per-call state of one aggregation.
type run struct {
	a      *Aggregator
	dates  settings.Context
	window recurrence.Window
	// fillFrom and fillTo bound journal and schedule signals: the month padded
	// by six days on either side so partial leading and trailing weeks show.
	fillFrom time.Time
	fillTo   time.Time
}

const fillPadding = 6

func (a *Aggregator) newRun(year int, month time.Month, dateFormat string) *run {
	dates := a.dates
	if f := strings.TrimSpace(dateFormat); f != "" {
		dates.DateFormat = f
	}
	w := recurrence.MonthWindow(year, month, dates.Location)
	return &run{
		a:        a,
		dates:    dates,
		window:   w,
		fillFrom: w.Start.AddDate(0, 0, -fillPadding),
		fillTo:   w.End.AddDate(0, 0, fillPadding-1),
	}
}

// label is the display name of an entry.
func label(e models.Entry) string {
	switch {
	case e.IsPage:
		return e.OriginalName
	case e.PreBlock:
		return e.PageOriginalName
	default:
		return parser.DisplayText(e.Content)
	}
}
