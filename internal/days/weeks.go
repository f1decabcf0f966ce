package days

import (
	"time"

	"github.com/starford/daymark/internal/datefmt"
	"github.com/starford/daymark/internal/settings"
)

// WeekPage names the week page of one calendar row.
type WeekPage struct {
	Start Key    `json:"start"`
	Name  string `json:"name"`
}

// WeekPages returns the week pages of every row a month grid shows, from the
// row holding the first of the month to the row holding its last day. It is
// empty when week pages are disabled.
func WeekPages(dates settings.Context, year int, month time.Month) []WeekPage {
	if dates.WeekPageFormat == "" {
		return nil
	}
	first := dates.MonthStart(year, month)
	next := first.AddDate(0, 1, 0)

	var out []WeekPage
	for start := datefmt.StartOfWeek(first, dates.Week.StartsOn); start.Before(next); start = start.AddDate(0, 0, 7) {
		name := dates.WeekPageName(start)
		if name == "" {
			return nil
		}
		out = append(out, WeekPage{Start: KeyOf(start), Name: name})
	}
	return out
}
