// Package query is the contract between the day aggregator and the document
// store: structured query templates, raw read-only queries and entry lookups.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/daymark/internal/models"
)

// ErrRawQueryRejected is returned for raw queries that are not a single
// read-only SELECT or WITH statement.
var ErrRawQueryRejected = errors.New("query: raw query rejected")

// Template names a structured query the store knows how to run.
type Template int

const (
	// JournalRefs finds journal blocks referencing Query.Target (an entry id).
	JournalRefs Template = iota + 1
	// PropertyEntries finds non-page entries carrying Query.Property.
	PropertyEntries
	// JournalPagesWithChildren finds journal pages in [From, To] that have blocks.
	JournalPagesWithChildren
	// JournalTasks finds blocks with a marker on journal pages in [From, To].
	JournalTasks
	// ScheduledEntries finds scheduled/deadline blocks that are not DONE or CANCELLED.
	ScheduledEntries
	// ScheduledInRange finds scheduled/deadline blocks in [From, To] that are not CANCELLED.
	ScheduledInRange
)

func (t Template) String() string {
	switch t {
	case JournalRefs:
		return "journal_refs"
	case PropertyEntries:
		return "property_entries"
	case JournalPagesWithChildren:
		return "journal_pages_with_children"
	case JournalTasks:
		return "journal_tasks"
	case ScheduledEntries:
		return "scheduled_entries"
	case ScheduledInRange:
		return "scheduled_in_range"
	default:
		return fmt.Sprintf("template(%d)", int(t))
	}
}

// Query is a structured query. Days are yyyymmdd numbers; From and To are inclusive.
type Query struct {
	Template Template
	Target   string
	Property string
	From     int
	To       int
}

// Kind tells which timestamp of a block matched a schedule query.
type Kind string

const (
	KindScheduled Kind = "scheduled"
	KindDeadline  Kind = "deadline"
)

// Row is one structured query result. Day is the yyyymmdd day the row is
// about, zero when the template has none.
type Row struct {
	Day   int
	Kind  Kind
	Entry models.Entry
}

// Store is the document store adapter.
type Store interface {
	// EntryByName returns the page with the given name (case-insensitive).
	EntryByName(ctx context.Context, name string) (models.Entry, error)
	// EntryByID returns the page or block with the given id.
	EntryByID(ctx context.Context, id string) (models.Entry, error)
	// Run executes a structured query.
	Run(ctx context.Context, q Query) ([]Row, error)
	// RunRaw executes a raw read-only query and returns the entries it selects.
	RunRaw(ctx context.Context, src string) ([]models.Entry, error)
}

// CheckRaw rejects anything that is not a single SELECT or WITH statement.
func CheckRaw(src string) error {
	s := strings.TrimSpace(src)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return fmt.Errorf("%w: empty", ErrRawQueryRejected)
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("%w: multiple statements", ErrRawQueryRejected)
	}
	word := strings.ToUpper(strings.Fields(s)[0])
	if word != "SELECT" && word != "WITH" {
		return fmt.Errorf("%w: %s is not allowed", ErrRawQueryRejected, word)
	}
	return nil
}
