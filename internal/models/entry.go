// Package models defines the domain types for daymark.
package models

import "time"

// Schedule is a SCHEDULED or DEADLINE timestamp attached to a block.
type Schedule struct {
	Day    int    `json:"day"`              // yyyymmdd
	Time   string `json:"time,omitempty"`   // HH:MM, empty for all-day
	Repeat string `json:"repeat,omitempty"` // repeat rule such as "1w"
}

// AllDay reports whether the timestamp has no time of day.
func (s Schedule) AllDay() bool {
	return s.Time == ""
}

// Entry is a node of the document graph: either a page or a block on a page.
type Entry struct {
	ID string `json:"id"`

	// Page-only fields. Name is the lower-cased page name.
	IsPage       bool   `json:"is_page"`
	Name         string `json:"name,omitempty"`
	OriginalName string `json:"original_name,omitempty"`

	// Page linkage. For a page these describe the page itself.
	PageID           string `json:"page_id"`
	PageName         string `json:"page_name"`
	PageOriginalName string `json:"page_original_name"`

	// IsJournal is set on journal pages. JournalDay (yyyymmdd) is the day of the
	// journal page the entry belongs to, zero outside journals.
	IsJournal  bool `json:"is_journal"`
	JournalDay int  `json:"journal_day,omitempty"`

	// PreBlock marks the block holding page-level properties.
	PreBlock bool   `json:"pre_block,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Position int    `json:"position"`
	Line     int    `json:"line,omitempty"`
	// IDPinned is set when the id comes from an id:: property in the file.
	IDPinned bool `json:"-"`

	Content    string              `json:"content,omitempty"`
	Marker     string              `json:"marker,omitempty"`
	Scheduled  *Schedule           `json:"scheduled,omitempty"`
	Deadline   *Schedule           `json:"deadline,omitempty"`
	Properties map[string][]string `json:"properties,omitempty"`
	// Refs holds lower-cased page names and block ids the entry references.
	Refs []string `json:"refs,omitempty"`
	Path string   `json:"path"`
}

// JumpTarget returns what a reader navigates to: the page name for pages and
// page-property blocks, the block id otherwise.
func (e Entry) JumpTarget() string {
	switch {
	case e.IsPage:
		return e.Name
	case e.PreBlock:
		return e.PageName
	default:
		return e.ID
	}
}

// FileMeta is a lightweight description of a vault file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
