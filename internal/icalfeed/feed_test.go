package icalfeed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/starford/daymark/internal/days"
)

func TestRRule(t *testing.T) {
	got, err := RRule("2w")
	if err != nil || got != "FREQ=WEEKLY;INTERVAL=2" {
		t.Errorf("RRule(2w) = %q, %v", got, err)
	}

	got, err = RRule("1y")
	if err != nil {
		t.Fatalf("RRule(1y): %v", err)
	}
	r, err := rrule.StrToRRule(got)
	if err != nil {
		t.Fatalf("StrToRRule(%q): %v", got, err)
	}
	if r.OrigOptions.Freq != rrule.YEARLY {
		t.Errorf("freq = %v, want YEARLY", r.OrigOptions.Freq)
	}

	if _, err := RRule("3x"); err == nil {
		t.Error("expected error for 3x")
	}
}

func TestRender(t *testing.T) {
	start := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC)
	events := map[string]days.Event{
		"b-timed":  {Title: "Standup", Kind: "scheduled", Repeat: "1w", Start: start, End: start.Add(time.Hour)},
		"a-allday": {Title: "Ship it", Kind: "deadline", AllDay: true, Start: day, End: day.AddDate(0, 0, 1)},
		"c-bad":    {Title: "Odd", Kind: "scheduled", Repeat: "3x", Start: start, End: start.Add(time.Hour)},
	}

	var buf bytes.Buffer
	if err := Render(&buf, events, start); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"PRODID:" + ProductID, "RRULE:FREQ=WEEKLY;INTERVAL=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "RRULE:"); n != 1 {
		t.Errorf("RRULE count = %d, want 1", n)
	}
	if strings.Index(out, "UID:a-allday") > strings.Index(out, "UID:b-timed") {
		t.Error("events should be sorted by id")
	}

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	if n := len(cal.Events()); n != 3 {
		t.Fatalf("events = %d, want 3", n)
	}
	for _, ev := range cal.Events() {
		if ev.Id() != "a-allday" {
			continue
		}
		if v := ev.GetProperty(ics.ComponentPropertySummary).Value; v != "Ship it" {
			t.Errorf("summary = %q", v)
		}
		if v := ev.GetProperty(ics.ComponentPropertyDtStart).Value; v != "20240521" {
			t.Errorf("dtstart = %q", v)
		}
	}
}
