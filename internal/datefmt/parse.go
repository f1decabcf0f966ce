package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	linkWrapRe = regexp.MustCompile(`^\[\[(.*)\]\]\s*$`)

	monthNames = []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	weekdayNames = []string{
		"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
	}

	parsers = mustCache[*matcher]()
)

type matcher struct {
	re    *regexp.Regexp
	kinds []tokenKind // capture group order
}

// StripLink removes a surrounding [[...]] page link from a raw property value.
func StripLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := linkWrapRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

// Parse parses raw as a date in the local time zone. See ParseIn.
func Parse(raw, layout string) (time.Time, error) {
	return ParseIn(raw, layout, time.Local)
}

// ParseIn parses raw, optionally wrapped in [[...]], against layout and returns local
// midnight of that day in loc. Values that match the pattern but name a day that does
// not exist (day 32, Feb 30) yield ErrInvalidDate.
func ParseIn(raw, layout string, loc *time.Location) (time.Time, error) {
	m, err := matcherFor(layout)
	if err != nil {
		return time.Time{}, err
	}
	value := StripLink(raw)
	groups := m.re.FindStringSubmatch(value)
	if groups == nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidDate, value, layout)
	}

	year, month, day := -1, -1, -1
	for i, kind := range m.kinds {
		g := groups[i+1]
		switch kind {
		case tokYear, tokYear4:
			year, _ = strconv.Atoi(g)
		case tokYear2:
			yy, _ := strconv.Atoi(g)
			year = 2000 + yy
		case tokMonth, tokMonth2:
			month, _ = strconv.Atoi(g)
		case tokMonthAbbr, tokMonthName:
			month = monthIndex(g)
		case tokDay, tokDay2, tokDayOrdinal:
			day, _ = strconv.Atoi(g)
		}
	}
	if year <= 0 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if day > DaysIn(year, time.Month(month)) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), nil
}

// CheckPattern reports an error unless layout is supported and parses back
// the dates it formats.
func CheckPattern(layout string) error {
	sample, err := Format(time.Date(2024, time.November, 23, 0, 0, 0, 0, time.UTC), layout, WeekOptions{})
	if err != nil {
		return err
	}
	if _, err := ParseIn(sample, layout, time.UTC); err != nil {
		return fmt.Errorf("%w: %q does not read back %q", ErrUnsupportedPattern, layout, sample)
	}
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func matcherFor(layout string) (*matcher, error) {
	if m, ok := parsers.Get(layout); ok {
		return m, nil
	}
	toks, err := tokens(layout)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`(?i)^`)
	var kinds []tokenKind
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			b.WriteString(regexp.QuoteMeta(t.lit))
			continue
		case tokYear:
			b.WriteString(`(\d{1,4})`)
		case tokYear2:
			b.WriteString(`(\d{2})`)
		case tokYear4, tokWeekYear4:
			b.WriteString(`(\d{4})`)
		case tokMonth, tokDay, tokWeek:
			b.WriteString(`(\d{1,2})`)
		case tokMonth2, tokDay2, tokWeek2:
			b.WriteString(`(\d{2})`)
		case tokDayOrdinal:
			b.WriteString(`(\d{1,2})(?:st|nd|rd|th)`)
		case tokMonthAbbr:
			b.WriteString(`(` + alternation(monthNames, 3) + `)`)
		case tokMonthName:
			b.WriteString(`(` + alternation(monthNames, 0) + `)`)
		case tokWeekdayAbbr:
			b.WriteString(`(` + alternation(weekdayNames, 3) + `)`)
		case tokWeekdayName:
			b.WriteString(`(` + alternation(weekdayNames, 0) + `)`)
		}
		kinds = append(kinds, t.kind)
	}
	b.WriteString(`$`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPattern, err)
	}
	m := &matcher{re: re, kinds: kinds}
	parsers.Add(layout, m)
	return m, nil
}

// alternation joins names (truncated to n runes when n > 0) into a regexp alternation.
func alternation(names []string, n int) string {
	parts := make([]string, len(names))
	for i, name := range names {
		if n > 0 && len(name) > n {
			name = name[:n]
		}
		parts[i] = regexp.QuoteMeta(name)
	}
	return strings.Join(parts, "|")
}

func monthIndex(s string) int {
	for i, name := range monthNames {
		if strings.EqualFold(name, s) || strings.EqualFold(name[:3], s) {
			return i + 1
		}
	}
	return -1
}
