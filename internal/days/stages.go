package days

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/query"
	"github.com/starford/daymark/internal/recurrence"
	"github.com/starford/daymark/internal/settings"
)

// maxConcurrentScans bounds in-flight property scans per aggregation.
const maxConcurrentScans = 4

// directRefs links journal days to the entries on them that reference the
// subject. A block subject on a journal page also links its own day.
func (r *run) directRefs(ctx context.Context, subject models.Entry) Map {
	delta := Map{}
	if !subject.IsPage && subject.JournalDay != 0 {
		delta.Link(r.dates.FromDayNumber(subject.JournalDay), subject.ID)
	}
	rows := r.a.engine.Structured(ctx, query.Query{Template: query.JournalRefs, Target: subject.ID})
	for _, row := range rows {
		delta.Link(r.dates.FromDayNumber(row.Day), row.Entry.ID)
	}
	return delta
}

// customQuery links the days of the journal pages a raw query selects.
func (r *run) customQuery(ctx context.Context, src string) Map {
	delta := Map{}
	entries, ok := r.a.engine.Raw(ctx, src)
	if !ok {
		r.a.logger.Warn("days: custom query contributed nothing")
		return delta
	}
	for _, e := range entries {
		if !e.IsPage || !e.IsJournal || e.JournalDay == 0 {
			continue
		}
		delta.Link(r.dates.FromDayNumber(e.JournalDay), e.ID)
	}
	return delta
}

// properties scans the store for every active slot. Scans run concurrently;
// their deltas are merged in slot order.
func (r *run) properties(ctx context.Context) Map {
	slots := r.a.cfg.ActiveSlots()
	deltas := make([]Map, len(slots))

	var g errgroup.Group
	g.SetLimit(maxConcurrentScans)
	for i, slot := range slots {
		g.Go(func() error {
			deltas[i] = r.propertyScan(ctx, slot)
			return nil
		})
	}
	_ = g.Wait()

	out := Map{}
	for _, d := range deltas {
		out.Merge(d)
	}
	return out
}

func (r *run) propertyScan(ctx context.Context, slot settings.PropertySlot) Map {
	delta := Map{}
	rows := r.a.engine.Structured(ctx, query.Query{Template: query.PropertyEntries, Property: slot.Name})
	for _, row := range rows {
		e := row.Entry
		ann := Annotation{DisplayName: label(e), Color: slot.DisplayColor(), JumpTarget: e.JumpTarget()}
		r.annotateValues(delta, slot, e.Properties[strings.ToLower(slot.Name)], ann)
	}
	return delta
}

// subjectProperties reads the configured properties off the subject only.
func (r *run) subjectProperties(subject models.Entry) Map {
	jump := subject.ID
	if subject.IsPage {
		jump = subject.Name
	}
	delta := Map{}
	for _, slot := range r.a.cfg.ActiveSlots() {
		ann := Annotation{DisplayName: label(subject), Color: slot.DisplayColor(), JumpTarget: jump}
		r.annotateValues(delta, slot, subject.Properties[strings.ToLower(slot.Name)], ann)
	}
	return delta
}

// annotateValues annotates the day of every parseable value and, for
// repeating slots, the repeats of that day the month needs.
func (r *run) annotateValues(delta Map, slot settings.PropertySlot, values []string, ann Annotation) {
	for _, v := range values {
		day, err := r.dates.ParseValue(v)
		if err != nil {
			r.a.logger.Debug("days: skipping property value",
				slog.String("property", slot.Name),
				slog.String("value", v),
				slog.String("error", err.Error()))
			continue
		}
		delta.Annotate(day, ann)
		if slot.Repeat == "" {
			continue
		}
		for _, t := range recurrence.ExpandString(day, slot.Repeat, slot.Bounds(r.dates.Location), r.window) {
			delta.Annotate(t, ann)
		}
	}
}

// journalFill marks journal days that have content.
func (r *run) journalFill(ctx context.Context) Map {
	delta := Map{}
	rows := r.a.engine.Structured(ctx, query.Query{
		Template: query.JournalPagesWithChildren,
		From:     r.dates.DayNumber(r.fillFrom),
		To:       r.dates.DayNumber(r.fillTo),
	})
	for _, row := range rows {
		delta.markContentful(r.dates.FromDayNumber(row.Day))
	}
	return delta
}

// tasks marks journal days holding a block with a task marker.
func (r *run) tasks(ctx context.Context) Map {
	delta := Map{}
	rows := r.a.engine.Structured(ctx, query.Query{
		Template: query.JournalTasks,
		From:     r.dates.DayNumber(r.fillFrom),
		To:       r.dates.DayNumber(r.fillTo),
	})
	for _, row := range rows {
		delta.markTask(r.dates.FromDayNumber(row.Day))
	}
	return delta
}

// schedule annotates open scheduled and deadline blocks. Repeating timestamps
// are expanded into the month without a count or end limit.
func (r *run) schedule(ctx context.Context) Map {
	delta := Map{}
	unbounded := recurrence.Bounds{MaxOccurrences: recurrence.Unlimited, End: recurrence.NoEnd(r.dates.Location)}
	for _, row := range r.a.engine.Structured(ctx, query.Query{Template: query.ScheduledEntries}) {
		e := row.Entry
		sched, color := e.Scheduled, r.a.cfg.ScheduledColor
		if row.Kind == query.KindDeadline {
			sched, color = e.Deadline, r.a.cfg.DeadlineColor
		}
		if color == "" {
			color = settings.DefaultColor
		}
		ann := Annotation{DisplayName: label(e), Color: color, JumpTarget: e.JumpTarget()}

		day := r.dates.FromDayNumber(row.Day)
		if within(day, r.fillFrom, r.fillTo) {
			delta.Annotate(day, ann)
		}
		if sched == nil || sched.Repeat == "" {
			continue
		}
		for _, t := range recurrence.ExpandString(day, sched.Repeat, unbounded, r.window) {
			delta.Annotate(t, ann)
		}
	}
	return delta
}

// within reports whether t lies in [from, to].
func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
