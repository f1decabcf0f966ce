package recurrence

import "time"

// Bounds limits how far a rule repeats.
type Bounds struct {
	// MaxOccurrences caps the number of repeats after the anchor. Use Unlimited
	// for no cap; zero or negative disables repetition.
	MaxOccurrences int
	// End excludes every occurrence at or after it. Use NoEnd for no limit.
	End time.Time
}

// Window is the visible range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the window covering the given month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Expand returns the repeats of anchor under rule that the window needs.
// The anchor itself is never returned.
//
// The walk fast-forwards to the last repeat at or before min(b.End, w.Start) and
// emits that repeat even when it lies before the window, then steps forward one
// period at a time emitting repeats inside the window. Results are strictly
// increasing.
func Expand(anchor time.Time, rule Rule, b Bounds, w Window) []time.Time {
	if rule.Quantity <= 0 || rule.Quantity > MaxQuantity || b.MaxOccurrences <= 0 {
		return nil
	}
	if !anchor.Before(b.End) {
		return nil
	}

	boundary := w.Start
	if b.End.Before(boundary) {
		boundary = b.End
	}

	var out []time.Time
	current := anchor
	count := 0

	if jumps := rule.Unit.Diff(boundary, anchor) / rule.Quantity; jumps > 0 {
		steps := min(jumps, b.MaxOccurrences)
		current = rule.Unit.Add(anchor, rule.Quantity*steps)
		count = jumps
		if current.Before(b.End) {
			out = append(out, current)
		}
	}

	for current.Before(w.End) && count < b.MaxOccurrences && current.Before(b.End) {
		count++
		// Step from the anchor rather than the previous repeat so month-end
		// clamping does not drift (Jan 31 → Feb 29 → Mar 31).
		next := rule.Unit.Add(anchor, rule.Quantity*count)
		if !next.After(current) {
			break
		}
		current = next
		if current.Before(b.End) && current.Before(w.End) && !current.Before(w.Start) {
			out = append(out, current)
		}
	}
	return out
}

// ExpandString parses rule and expands it; malformed rules expand to nothing.
func ExpandString(anchor time.Time, rule string, b Bounds, w Window) []time.Time {
	r, err := ParseRule(rule)
	if err != nil {
		return nil
	}
	return Expand(anchor, r, b, w)
}
