// Package recurrence expands "<quantity><unit>" repeat rules into the occurrences
// that fall inside a visible calendar window.
package recurrence

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is the calendar unit of a repeat rule.
type Unit byte

const (
	Year  Unit = 'y'
	Month Unit = 'm'
	Week  Unit = 'w'
	Day   Unit = 'd'
)

// Unlimited is the occurrence cap for rules that never run out.
const Unlimited = math.MaxInt

// MaxQuantity is the largest accepted rule quantity.
const MaxQuantity = 9999

var (
	ErrInvalidRule     = errors.New("recurrence: invalid rule")
	ErrInvalidQuantity = errors.New("recurrence: invalid quantity")
	ErrInvalidUnit     = errors.New("recurrence: invalid unit")
)

// NoEnd is the "never ends" sentinel used when no repeat end date is configured.
func NoEnd(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(3000, time.December, 31, 0, 0, 0, 0, loc)
}

// Rule is a decoded repeat rule such as "2w".
type Rule struct {
	Quantity int
	Unit     Unit
}

// ParseRule decodes a rule like "1y", "3m", "2w" or "10d". Quantities run from
// 1 to MaxQuantity.
func ParseRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}
	unit := Unit(s[len(s)-1])
	switch unit {
	case Year, Month, Week, Day:
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	q, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || q <= 0 || q > MaxQuantity {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return Rule{Quantity: q, Unit: unit}, nil
}

// String renders the rule back to its textual form.
func (r Rule) String() string {
	return strconv.Itoa(r.Quantity) + string(r.Unit)
}

// Add advances t by n units. Month and year steps clamp to the last day of the
// target month, so Jan 31 + 1m is Feb 29 in a leap year.
func (u Unit) Add(t time.Time, n int) time.Time {
	switch u {
	case Year:
		return addMonths(t, 12*n)
	case Month:
		return addMonths(t, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Diff returns the number of whole units between b and a (a - b), truncated
// toward zero using calendar arithmetic.
func (u Unit) Diff(a, b time.Time) int {
	switch u {
	case Year:
		return diffMonths(a, b) / 12
	case Month:
		return diffMonths(a, b)
	case Week:
		return diffDays(a, b) / 7
	default:
		return diffDays(a, b)
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func diffMonths(a, b time.Time) int {
	n := (a.Year()-b.Year())*12 + int(a.Month()) - int(b.Month())
	switch {
	case n > 0 && addMonths(b, n).After(a):
		n--
	case n < 0 && addMonths(b, n).Before(a):
		n++
	}
	return n
}

func diffDays(a, b time.Time) int {
	n := dayNumber(a) - dayNumber(b)
	ca, cb := clockOf(a), clockOf(b)
	switch {
	case n > 0 && ca < cb:
		n--
	case n < 0 && ca > cb:
		n++
	}
	return n
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func clockOf(t time.Time) time.Duration {
	hh, mm, ss := t.Clock()
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second + time.Duration(t.Nanosecond())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
