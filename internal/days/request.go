package days

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/datefmt"
	"github.com/starford/daymark/internal/settings"
)

// MaxRangeDays bounds the span of an event range.
const MaxRangeDays = 366

// RangeLayout is the layout of range bounds.
const RangeLayout = "2006-01-02"

// ParseRange parses inclusive yyyy-mm-dd range bounds as local midnights.
func ParseRange(start, end string, dates settings.Context) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(RangeLayout, strings.TrimSpace(start), dates.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("days: start %q: %w", start, apperr.ErrInvalidRange)
	}
	to, err := time.ParseInLocation(RangeLayout, strings.TrimSpace(end), dates.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("days: end %q: %w", end, apperr.ErrInvalidRange)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("days: end before start: %w", apperr.ErrInvalidRange)
	}
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("days: range exceeds %d days: %w", MaxRangeDays, apperr.ErrInvalidRange)
	}
	return from, to, nil
}

// CheckMonth validates a year and month pair.
func CheckMonth(year, month int) error {
	if err := CheckYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("days: month %d: %w", month, apperr.ErrInvalidRange)
	}
	return nil
}

// CheckYear validates a calendar year.
func CheckYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("days: year %d: %w", year, apperr.ErrInvalidRange)
	}
	return nil
}

// CheckFormat validates a date format override. Empty means the configured format.
func CheckFormat(format string) error {
	format = strings.TrimSpace(format)
	if format == "" {
		return nil
	}
	if err := datefmt.CheckPattern(format); err != nil {
		return fmt.Errorf("days: format: %v: %w", err, apperr.ErrInvalidParam)
	}
	return nil
}
