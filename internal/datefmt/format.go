package datefmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekOptions controls local week numbering for the w, ww and YYYY tokens.
type WeekOptions struct {
	// StartsOn is the first day of the week.
	StartsOn time.Weekday
	// FirstWeekContainsDate is the January day that always falls in week 1
	// (1 for the US convention, 4 for ISO 8601).
	FirstWeekContainsDate int
}

// Format renders t with a date-fns style pattern.
func Format(t time.Time, layout string, week WeekOptions) (string, error) {
	toks, err := tokens(layout)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, tok := range toks {
		switch tok.kind {
		case tokLiteral:
			b.WriteString(tok.lit)
		case tokYear:
			b.WriteString(strconv.Itoa(t.Year()))
		case tokYear2:
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case tokYear4:
			fmt.Fprintf(&b, "%04d", t.Year())
		case tokWeekYear4:
			fmt.Fprintf(&b, "%04d", WeekYear(t, week))
		case tokMonth:
			b.WriteString(strconv.Itoa(int(t.Month())))
		case tokMonth2:
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case tokMonthAbbr:
			b.WriteString(monthNames[t.Month()-1][:3])
		case tokMonthName:
			b.WriteString(monthNames[t.Month()-1])
		case tokDay:
			b.WriteString(strconv.Itoa(t.Day()))
		case tokDay2:
			fmt.Fprintf(&b, "%02d", t.Day())
		case tokDayOrdinal:
			b.WriteString(Ordinal(t.Day()))
		case tokWeekdayAbbr:
			b.WriteString(weekdayNames[t.Weekday()][:3])
		case tokWeekdayName:
			b.WriteString(weekdayNames[t.Weekday()])
		case tokWeek:
			b.WriteString(strconv.Itoa(Week(t, week)))
		case tokWeek2:
			fmt.Fprintf(&b, "%02d", Week(t, week))
		}
	}
	return b.String(), nil
}

// Ordinal returns n with its English ordinal suffix (1st, 2nd, 11th, 23rd).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// StartOfWeek returns midnight of the first day of the week containing t.
func StartOfWeek(t time.Time, startsOn time.Weekday) time.Time {
	diff := (7 + int(t.Weekday()) - int(startsOn)) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-diff, 0, 0, 0, 0, t.Location())
}

// WeekYear returns the local week-numbering year of t.
func WeekYear(t time.Time, opts WeekOptions) int {
	fwcd := opts.FirstWeekContainsDate
	if fwcd < 1 || fwcd > 7 {
		fwcd = 1
	}
	y := t.Year()
	nextStart := StartOfWeek(time.Date(y+1, time.January, fwcd, 0, 0, 0, 0, t.Location()), opts.StartsOn)
	thisStart := StartOfWeek(time.Date(y, time.January, fwcd, 0, 0, 0, 0, t.Location()), opts.StartsOn)
	switch {
	case !t.Before(nextStart):
		return y + 1
	case !t.Before(thisStart):
		return y
	default:
		return y - 1
	}
}

// Week returns the local week number of t.
func Week(t time.Time, opts WeekOptions) int {
	fwcd := opts.FirstWeekContainsDate
	if fwcd < 1 || fwcd > 7 {
		fwcd = 1
	}
	wy := WeekYear(t, opts)
	first := StartOfWeek(time.Date(wy, time.January, fwcd, 0, 0, 0, 0, t.Location()), opts.StartsOn)
	start := StartOfWeek(t, opts.StartsOn)
	// Calendar-day difference so DST shifts do not skew the count.
	days := dayNumber(start) - dayNumber(first)
	return days/7 + 1
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
