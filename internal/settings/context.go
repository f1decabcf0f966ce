package settings

import (
	"fmt"
	"time"

	"github.com/starford/daymark/internal/datefmt"
)

// Context is the resolved, read-only date environment shared by the date
// extractor, the journal naming rules and the aggregator.
type Context struct {
	Location          *time.Location
	DateFormat        string
	WeekPageFormat    string
	JournalFileFormat string
	Week              datefmt.WeekOptions
}

// UTC returns a context in UTC with default formats. Mostly useful in tests.
func UTC() Context {
	return Context{
		Location:          time.UTC,
		DateFormat:        DefaultDateFormat,
		WeekPageFormat:    DefaultWeekPageFormat,
		JournalFileFormat: DefaultJournalFileFormat,
		Week:              datefmt.WeekOptions{StartsOn: time.Sunday, FirstWeekContainsDate: 1},
	}
}

// ParseValue parses a property value with the configured date format.
func (c Context) ParseValue(raw string) (time.Time, error) {
	return datefmt.ParseIn(raw, c.DateFormat, c.loc())
}

// JournalTitle formats t the way journal pages are titled.
func (c Context) JournalTitle(t time.Time) string {
	s, err := datefmt.Format(t, c.DateFormat, c.Week)
	if err != nil {
		return t.Format("2006-01-02")
	}
	return s
}

// WeekPageName returns the week page name for t, or "" when week pages are off.
func (c Context) WeekPageName(t time.Time) string {
	if c.WeekPageFormat == "" {
		return ""
	}
	s, err := datefmt.Format(t, c.WeekPageFormat, c.Week)
	if err != nil {
		return ""
	}
	return s
}

// Midnight returns local midnight of the given calendar day.
func (c Context) Midnight(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc())
}

// FromDayNumber converts a yyyymmdd journal day to local midnight.
func (c Context) FromDayNumber(n int) time.Time {
	return c.Midnight(n/10000, time.Month(n/100%100), n%100)
}

// DayNumber converts t to its yyyymmdd journal day.
func (c Context) DayNumber(t time.Time) int {
	y, m, d := t.In(c.loc()).Date()
	return y*10000 + int(m)*100 + d
}

// MonthStart returns midnight of the first day of the month.
func (c Context) MonthStart(year int, month time.Month) time.Time {
	return c.Midnight(year, month, 1)
}

// String implements fmt.Stringer.
func (c Context) String() string {
	return fmt.Sprintf("%s %q week=%s/%d", c.loc(), c.DateFormat, c.Week.StartsOn, c.Week.FirstWeekContainsDate)
}

func (c Context) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
