package recurrence

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func days(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format("2006-01-02"))
	}
	return out
}

func unbounded() Bounds {
	return Bounds{MaxOccurrences: Unlimited, End: NoEnd(time.UTC)}
}

func expectDays(t *testing.T, got []time.Time, want ...string) {
	t.Helper()
	if g := days(got); !slices.Equal(g, want) {
		t.Errorf("occurrences = %v, want %v", g, want)
	}
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("2w")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r != (Rule{Quantity: 2, Unit: Week}) || r.String() != "2w" {
		t.Errorf("rule = %+v (%s)", r, r)
	}

	cases := map[string]error{
		"3x":                   ErrInvalidUnit,
		"xd":                   ErrInvalidQuantity,
		"0d":                   ErrInvalidQuantity,
		"10000d":               ErrInvalidQuantity,
		"9223372036854775807d": ErrInvalidQuantity,
		"d":                    ErrInvalidRule,
	}
	for in, want := range cases {
		if _, err := ParseRule(in); !errors.Is(err, want) {
			t.Errorf("ParseRule(%q) err = %v, want %v", in, err, want)
		}
	}
	if _, err := ParseRule("9999d"); err != nil {
		t.Errorf("ParseRule(9999d): %v", err)
	}
}

func TestExpand_InvalidRuleYieldsNothing(t *testing.T) {
	got := ExpandString(date(2024, 1, 1), "3x", unbounded(), MonthWindow(2024, time.March, time.UTC))
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", days(got))
	}
}

func TestExpand_HugeQuantityTerminates(t *testing.T) {
	w := MonthWindow(2024, time.March, time.UTC)
	done := make(chan []time.Time, 1)
	go func() {
		out := ExpandString(date(2024, 3, 1), "4611686018427387904d", unbounded(), w)
		out = append(out, ExpandString(date(2024, 3, 1), "9223372036854775807d", unbounded(), w)...)
		// A rule built by hand bypasses ParseRule.
		out = append(out, Expand(date(2024, 3, 1), Rule{Quantity: 1 << 62, Unit: Day}, unbounded(), w)...)
		done <- out
	}()
	select {
	case got := <-done:
		if len(got) != 0 {
			t.Errorf("got %v, want nothing", days(got))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expand did not return")
	}
}

func TestExpand_LargestQuantity(t *testing.T) {
	got := Expand(date(2000, 1, 1), Rule{MaxQuantity, Day}, unbounded(), MonthWindow(2024, time.May, time.UTC))
	// 2000-01-01 + 9999 days = 2027-05-18, past the window.
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", days(got))
	}
}

func TestExpand_YearlyFastForward(t *testing.T) {
	got := Expand(date(2020, 1, 1), Rule{1, Year}, unbounded(), MonthWindow(2024, time.March, time.UTC))
	// The fast-forward lands on 2024-01-01 before the window and is still emitted;
	// 2025-01-01 is past the window and stops the walk.
	expectDays(t, got, "2024-01-01")
}

func TestExpand_WeeklyInsideMonth(t *testing.T) {
	got := Expand(date(2024, 5, 6), Rule{1, Week}, unbounded(), MonthWindow(2024, time.May, time.UTC))
	expectDays(t, got, "2024-05-13", "2024-05-20", "2024-05-27")
}

func TestExpand_WeeklyFromPastMonth(t *testing.T) {
	got := Expand(date(2024, 1, 3), Rule{2, Week}, unbounded(), MonthWindow(2024, time.March, time.UTC))
	// 2024-01-03 + 8w = 2024-02-28 is the fast-forward repeat.
	expectDays(t, got, "2024-02-28", "2024-03-13", "2024-03-27")
}

func TestExpand_MonthEndClamps(t *testing.T) {
	got := Expand(date(2024, 1, 31), Rule{1, Month}, unbounded(), MonthWindow(2024, time.April, time.UTC))
	expectDays(t, got, "2024-03-31", "2024-04-30")
}

func TestExpand_RespectsMaxOccurrences(t *testing.T) {
	b := Bounds{MaxOccurrences: 2, End: NoEnd(time.UTC)}
	got := Expand(date(2024, 5, 1), Rule{1, Week}, b, MonthWindow(2024, time.May, time.UTC))
	expectDays(t, got, "2024-05-08", "2024-05-15")

	// The cap also bounds the fast-forward: only the second repeat is reachable.
	got = Expand(date(2024, 1, 1), Rule{1, Week}, b, MonthWindow(2024, time.May, time.UTC))
	expectDays(t, got, "2024-01-15")
}

func TestExpand_ZeroCountDisablesRepeat(t *testing.T) {
	b := Bounds{MaxOccurrences: 0, End: NoEnd(time.UTC)}
	if got := Expand(date(2024, 1, 1), Rule{1, Day}, b, MonthWindow(2024, time.January, time.UTC)); len(got) != 0 {
		t.Errorf("got %v, want nothing", days(got))
	}
}

func TestExpand_EndDateIsExclusive(t *testing.T) {
	b := Bounds{MaxOccurrences: Unlimited, End: date(2024, 5, 15)}
	got := Expand(date(2024, 5, 1), Rule{1, Week}, b, MonthWindow(2024, time.May, time.UTC))
	expectDays(t, got, "2024-05-08")
}

func TestExpand_EndBeforeWindow(t *testing.T) {
	b := Bounds{MaxOccurrences: Unlimited, End: date(2024, 2, 10)}
	got := Expand(date(2024, 1, 1), Rule{1, Week}, b, MonthWindow(2024, time.March, time.UTC))
	// Fast-forward stops at the end date boundary; nothing reaches March.
	expectDays(t, got, "2024-02-05")

	// A repeat landing exactly on the end date is excluded.
	b.End = date(2024, 2, 5)
	got = Expand(date(2024, 1, 1), Rule{1, Week}, b, MonthWindow(2024, time.March, time.UTC))
	expectDays(t, got)
}

func TestExpand_AnchorAfterWindow(t *testing.T) {
	got := Expand(date(2024, 6, 1), Rule{1, Day}, unbounded(), MonthWindow(2024, time.May, time.UTC))
	expectDays(t, got)
}

func TestExpand_Properties(t *testing.T) {
	anchors := []time.Time{date(2019, 2, 28), date(2023, 12, 31), date(2024, 3, 10), date(2024, 2, 29)}
	rules := []Rule{{1, Day}, {3, Day}, {1, Week}, {2, Week}, {1, Month}, {5, Month}, {1, Year}}
	caps := []int{1, 3, 10, Unlimited}
	ends := []time.Time{date(2024, 3, 20), date(2025, 1, 1), NoEnd(time.UTC)}
	w := MonthWindow(2024, time.March, time.UTC)

	for _, a := range anchors {
		for _, r := range rules {
			for _, c := range caps {
				for _, e := range ends {
					got := Expand(a, r, Bounds{MaxOccurrences: c, End: e}, w)
					if len(got) > c {
						t.Errorf("%s from %s: %d occurrences over cap %d", r, a, len(got), c)
					}
					for i, occ := range got {
						if !occ.Before(e) {
							t.Errorf("occurrence %s not before end %s", occ, e)
						}
						if !occ.After(a) {
							t.Errorf("occurrence %s not after anchor %s", occ, a)
						}
						if i > 0 && !occ.After(got[i-1]) {
							t.Errorf("not strictly increasing: %v", days(got))
						}
						if i == 0 && occ.Before(w.Start) {
							// Only the fast-forward repeat may precede the window.
							continue
						}
						if occ.Before(w.Start) || !occ.Before(w.End) {
							t.Errorf("%s outside window (rule %s)", occ, r)
						}
					}
				}
			}
		}
	}
}

func TestDiff_CalendarArithmetic(t *testing.T) {
	cases := []struct {
		unit Unit
		a, b time.Time
		want int
	}{
		{Year, date(2024, 3, 1), date(2020, 1, 1), 4},
		{Year, date(2023, 12, 31), date(2020, 1, 1), 3},
		{Month, date(2024, 3, 1), date(2024, 1, 31), 1},
		{Month, date(2024, 2, 28), date(2024, 1, 31), 0},
		{Week, date(2024, 5, 1), date(2024, 5, 20), -2},
		{Day, date(2024, 3, 11), date(2024, 3, 1), 10},
	}
	for _, c := range cases {
		if got := c.unit.Diff(c.a, c.b); got != c.want {
			t.Errorf("%c.Diff(%s, %s) = %d, want %d", c.unit, c.a.Format("2006-01-02"), c.b.Format("2006-01-02"), got, c.want)
		}
	}
}
