// Package settings holds the day-annotation configuration: property slots, schedule
// display toggles and the immutable date context every computation runs under.
package settings

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daymark/internal/datefmt"
	"github.com/starford/daymark/internal/recurrence"
)

// MaxSlots is the number of configurable property slots.
const MaxSlots = 15

// Defaults.
const (
	DefaultColor             = "#ffa500"
	DefaultDateFormat        = "MMM do, yyyy"
	DefaultWeekPageFormat    = "yyyy-'W'w"
	DefaultJournalFileFormat = "yyyy_MM_dd"
	RepeatEndLayout          = "yyyy-MM-dd"
)

// PropertySlot configures one date property to annotate days with.
type PropertySlot struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	// Repeat is a rule like "2w"; empty means not repeated.
	Repeat string `yaml:"repeat"`
	// RepeatCount caps repeats; nil or -1 repeats endlessly.
	RepeatCount *int `yaml:"repeat_count"`
	// RepeatEndAt is a yyyy-MM-dd date; repeats on or after it are dropped.
	RepeatEndAt string `yaml:"repeat_end_at"`
}

// Active reports whether the slot is in use.
func (s PropertySlot) Active() bool {
	return strings.TrimSpace(s.Name) != ""
}

// DisplayColor returns the slot color, falling back to DefaultColor.
func (s PropertySlot) DisplayColor() string {
	if s.Color == "" {
		return DefaultColor
	}
	return s.Color
}

// Bounds resolves the repeat count and end date of the slot in loc.
func (s PropertySlot) Bounds(loc *time.Location) recurrence.Bounds {
	b := recurrence.Bounds{MaxOccurrences: recurrence.Unlimited, End: recurrence.NoEnd(loc)}
	if s.RepeatCount != nil && *s.RepeatCount >= 0 {
		b.MaxOccurrences = *s.RepeatCount
	}
	if s.RepeatEndAt != "" {
		if end, err := datefmt.ParseIn(s.RepeatEndAt, RepeatEndLayout, loc); err == nil {
			b.End = end
		}
	}
	return b
}

// Validate validates the slot.
func (s PropertySlot) Validate() error {
	if !s.Active() {
		return nil
	}
	return validation.ValidateStruct(&s,
		validation.Field(&s.Color, validation.Match(colorRe).Error("must be a #rgb or #rrggbb color")),
		validation.Field(&s.Repeat, validation.By(repeatRule)),
		validation.Field(&s.RepeatCount, validation.Min(-1)),
		validation.Field(&s.RepeatEndAt, validation.By(isoDate)),
	)
}

// Days is the day-annotation configuration.
type Days struct {
	// DateFormat is the journal title pattern property values are parsed with.
	DateFormat     string `yaml:"date_format"`
	WeekPageFormat string `yaml:"week_page_format"`
	// JournalFileFormat names journal files under journals/.
	JournalFileFormat     string `yaml:"journal_file_format"`
	WeekStart             string `yaml:"week_start"`
	FirstWeekContainsDate int    `yaml:"first_week_contains_date"`
	// Location is an IANA zone name; empty uses the host zone.
	Location       string         `yaml:"location"`
	ShowSchedule   bool           `yaml:"show_schedule"`
	ScheduledColor string         `yaml:"scheduled_color"`
	DeadlineColor  string         `yaml:"deadline_color"`
	Properties     []PropertySlot `yaml:"properties"`
}

// NewDefaultDays returns the default day configuration.
func NewDefaultDays() Days {
	return Days{
		DateFormat:            DefaultDateFormat,
		WeekPageFormat:        DefaultWeekPageFormat,
		JournalFileFormat:     DefaultJournalFileFormat,
		WeekStart:             "sunday",
		FirstWeekContainsDate: 1,
		ShowSchedule:          true,
		ScheduledColor:        DefaultColor,
		DeadlineColor:         DefaultColor,
	}
}

// Validate validates the day configuration.
func (d *Days) Validate() error {
	if strings.TrimSpace(d.DateFormat) == "" {
		d.DateFormat = DefaultDateFormat
	}
	if strings.TrimSpace(d.JournalFileFormat) == "" {
		d.JournalFileFormat = DefaultJournalFileFormat
	}
	if d.FirstWeekContainsDate == 0 {
		d.FirstWeekContainsDate = 1
	}
	if err := validation.ValidateStruct(d,
		validation.Field(&d.DateFormat, validation.By(datePattern)),
		validation.Field(&d.JournalFileFormat, validation.By(datePattern)),
		validation.Field(&d.WeekPageFormat, validation.By(weekPattern)),
		validation.Field(&d.WeekStart, validation.By(weekday)),
		validation.Field(&d.FirstWeekContainsDate, validation.Min(1), validation.Max(7)),
		validation.Field(&d.Location, validation.By(location)),
		validation.Field(&d.ScheduledColor, validation.Match(colorRe)),
		validation.Field(&d.DeadlineColor, validation.Match(colorRe)),
		// Slots validate themselves through PropertySlot.Validate.
		validation.Field(&d.Properties, validation.Length(0, MaxSlots)),
	); err != nil {
		return fmt.Errorf("days: %w", err)
	}
	return nil
}

// ActiveSlots returns the slots with a non-empty name, in configuration order.
func (d Days) ActiveSlots() []PropertySlot {
	out := make([]PropertySlot, 0, len(d.Properties))
	for _, s := range d.Properties {
		if s.Active() {
			s.Name = strings.TrimSpace(s.Name)
			out = append(out, s)
		}
	}
	return out
}

// Context resolves the immutable date context.
func (d Days) Context() (Context, error) {
	loc := time.Local
	if d.Location != "" {
		l, err := time.LoadLocation(d.Location)
		if err != nil {
			return Context{}, fmt.Errorf("days: location %q: %w", d.Location, err)
		}
		loc = l
	}
	start, err := parseWeekday(d.WeekStart)
	if err != nil {
		return Context{}, fmt.Errorf("days: %w", err)
	}
	c := Context{
		Location:          loc,
		DateFormat:        d.DateFormat,
		WeekPageFormat:    strings.TrimSpace(d.WeekPageFormat),
		JournalFileFormat: d.JournalFileFormat,
		Week:              datefmt.WeekOptions{StartsOn: start, FirstWeekContainsDate: d.FirstWeekContainsDate},
	}
	if c.DateFormat == "" {
		c.DateFormat = DefaultDateFormat
	}
	if c.JournalFileFormat == "" {
		c.JournalFileFormat = DefaultJournalFileFormat
	}
	return c, nil
}

var colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func repeatRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := recurrence.ParseRule(s)
	return err
}

func isoDate(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	return validation.Validate(s, validation.Date("2006-01-02"))
}

func datePattern(value any) error {
	s, _ := value.(string)
	return datefmt.CheckPattern(s)
}

// weekPattern only has to format: week page names are never parsed.
func weekPattern(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := datefmt.Format(time.Now(), s, datefmt.WeekOptions{})
	return err
}

func weekday(value any) error {
	s, _ := value.(string)
	_, err := parseWeekday(s)
	return err
}

func location(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := time.LoadLocation(s)
	return err
}

var errWeekday = errors.New("unknown week start")

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errWeekday, s)
}
