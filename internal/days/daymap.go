package days

import (
	"slices"
	"time"
)

// Key identifies a calendar day: milliseconds since the epoch of local
// midnight in the configured location.
type Key int64

// KeyOf returns the key of t, which must already be a local midnight.
func KeyOf(t time.Time) Key {
	return Key(t.UnixMilli())
}

// Time converts the key back to a time in loc.
func (k Key) Time(loc *time.Location) time.Time {
	return time.UnixMilli(int64(k)).In(loc)
}

// Annotation marks a day with a highlighted source entry.
type Annotation struct {
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	JumpTarget  string `json:"jumpTarget"`
}

// Day is everything known about one calendar day.
type Day struct {
	LinkedEntryID string       `json:"linkedEntryId,omitempty"`
	IsCurrent     bool         `json:"isCurrent,omitempty"`
	IsContentful  bool         `json:"isContentful,omitempty"`
	HasTask       bool         `json:"hasTask,omitempty"`
	Annotations   []Annotation `json:"annotations,omitempty"`
}

// Map is a day map. It is built by a single goroutine and is not safe for
// concurrent mutation.
type Map map[Key]*Day

func (m Map) day(k Key) *Day {
	d, ok := m[k]
	if !ok {
		d = &Day{}
		m[k] = d
	}
	return d
}

// Link sets the linked entry of a day unless one is already set.
func (m Map) Link(t time.Time, id string) {
	if d := m.day(KeyOf(t)); d.LinkedEntryID == "" {
		d.LinkedEntryID = id
	}
}

// Annotate appends an annotation to a day.
func (m Map) Annotate(t time.Time, a Annotation) {
	d := m.day(KeyOf(t))
	d.Annotations = append(d.Annotations, a)
}

func (m Map) markCurrent(t time.Time)    { m.day(KeyOf(t)).IsCurrent = true }
func (m Map) markContentful(t time.Time) { m.day(KeyOf(t)).IsContentful = true }
func (m Map) markTask(t time.Time)       { m.day(KeyOf(t)).HasTask = true }

// Merge folds delta into m: the linked entry keeps its first writer, flags
// only ever turn on, and annotations are appended in delta order.
func (m Map) Merge(delta Map) {
	for _, k := range delta.Keys() {
		src := delta[k]
		dst := m.day(k)
		if dst.LinkedEntryID == "" {
			dst.LinkedEntryID = src.LinkedEntryID
		}
		dst.IsCurrent = dst.IsCurrent || src.IsCurrent
		dst.IsContentful = dst.IsContentful || src.IsContentful
		dst.HasTask = dst.HasTask || src.HasTask
		dst.Annotations = append(dst.Annotations, src.Annotations...)
	}
}

// Keys returns the day keys in ascending order.
func (m Map) Keys() []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the day at local midnight t, or nil.
func (m Map) Get(t time.Time) *Day {
	return m[KeyOf(t)]
}

// Clip drops days outside [from, to).
func (m Map) Clip(from, to time.Time) Map {
	lo, hi := KeyOf(from), KeyOf(to)
	for k := range m {
		if k < lo || k >= hi {
			delete(m, k)
		}
	}
	return m
}
