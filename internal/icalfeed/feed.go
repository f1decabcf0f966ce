// Package icalfeed renders scheduled and deadline events as an iCalendar feed.
package icalfeed

import (
	"fmt"
	"io"
	"slices"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/recurrence"
)

// ProductID identifies the feed producer.
const ProductID = "-//daymark//days//EN"

// Render writes events as a VCALENDAR. Event UIDs are the entry ids; a
// repeating timestamp becomes an RRULE anchored at the event start.
func Render(w io.Writer, events map[string]days.Event, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("daymark")

	ids := make([]string, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		e := events[id]
		ev := cal.AddEvent(id)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(e.Title)
		ev.SetProperty(ics.ComponentPropertyCategories, e.Kind)
		if e.AllDay {
			ev.SetAllDayStartAt(e.Start)
			ev.SetAllDayEndAt(e.End)
		} else {
			ev.SetStartAt(e.Start)
			ev.SetEndAt(e.End)
		}
		if e.Repeat == "" {
			continue
		}
		rule, err := RRule(e.Repeat)
		if err != nil {
			// Unknown repeaters export as a single occurrence.
			continue
		}
		ev.AddRrule(rule)
	}

	return cal.SerializeTo(w)
}

// RRule converts a repeater such as "1w" into an RRULE value without DTSTART.
func RRule(repeat string) (string, error) {
	r, err := recurrence.ParseRule(repeat)
	if err != nil {
		return "", fmt.Errorf("icalfeed: %w", err)
	}
	var freq rrule.Frequency
	switch r.Unit {
	case recurrence.Year:
		freq = rrule.YEARLY
	case recurrence.Month:
		freq = rrule.MONTHLY
	case recurrence.Week:
		freq = rrule.WEEKLY
	default:
		freq = rrule.DAILY
	}
	opt := rrule.ROption{Freq: freq, Interval: r.Quantity}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("icalfeed: rrule %q: %w", repeat, err)
	}
	return opt.RRuleString(), nil
}
