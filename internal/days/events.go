package days

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/query"
)

// eventDuration is the length of an event with a time of day.
const eventDuration = time.Hour

// Event is a scheduled or deadline block exported to calendar sync.
type Event struct {
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	AllDay    bool   `json:"allDay"`
	Kind      string `json:"kind"`
	Repeat    string `json:"repeat,omitempty"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// EventsForRange returns the events of blocks scheduled or due between start
// and end (inclusive days), keyed by entry id. Cancelled blocks are skipped.
// A block matching on both timestamps is reported once, for its earliest day
// in range. Timed events last an hour; all-day events span their day.
func (a *Aggregator) EventsForRange(ctx context.Context, start, end time.Time) map[string]Event {
	rows := a.engine.Structured(ctx, query.Query{
		Template: query.ScheduledInRange,
		From:     a.dates.DayNumber(start),
		To:       a.dates.DayNumber(end),
	})

	out := make(map[string]Event, len(rows))
	var unpinned []models.Entry
	for _, row := range rows {
		e := row.Entry
		if _, ok := out[e.ID]; ok {
			continue
		}
		sched := e.Scheduled
		if row.Kind == query.KindDeadline {
			sched = e.Deadline
		}
		if sched == nil {
			continue
		}

		from, allDay := a.eventStart(row.Day, *sched)
		to := from.Add(eventDuration)
		if allDay {
			to = from.AddDate(0, 0, 1)
		}
		out[e.ID] = Event{
			Title:     label(e),
			StartTime: from.Format(time.RFC3339),
			EndTime:   to.Format(time.RFC3339),
			AllDay:    allDay,
			Kind:      string(row.Kind),
			Repeat:    sched.Repeat,
			Start:     from,
			End:       to,
		}
		if !e.IDPinned && !e.PreBlock && !e.IsPage {
			unpinned = append(unpinned, e)
		}
	}

	if a.pinner != nil && len(unpinned) > 0 {
		if err := a.pinner.PinIDs(ctx, unpinned); err != nil {
			a.logger.Warn("days: pin event ids failed", slog.String("error", err.Error()))
		}
	}
	return out
}

// eventStart resolves the start of a timestamp on day. A time that does not
// parse is treated as all-day.
func (a *Aggregator) eventStart(day int, s models.Schedule) (time.Time, bool) {
	midnight := a.dates.FromDayNumber(day)
	if s.AllDay() {
		return midnight, true
	}
	hm, err := time.Parse("15:04", s.Time)
	if err != nil {
		return midnight, true
	}
	y, m, d := midnight.Date()
	return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, midnight.Location()), false
}
