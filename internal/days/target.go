package days

import (
	"fmt"
	"strings"

	"github.com/starford/daymark/internal/apperr"
)

// Target selects what a day map is built around.
type Target interface {
	isTarget()
	String() string
}

// Dynamic follows the page currently shown to the reader. An empty Current
// means no page is shown and behaves like Empty.
type Dynamic struct {
	Current string
}

// Custom builds the map from a raw read-only query. Title labels year views;
// the query text is used when it is empty.
type Custom struct {
	Query string
	Title string
}

// Named targets a page by name or a block by id.
type Named struct {
	Name string
}

// Empty shows configured properties only.
type Empty struct{}

func (Dynamic) isTarget() {}
func (Custom) isTarget()  {}
func (Named) isTarget()   {}
func (Empty) isTarget()   {}

func (t Dynamic) String() string { return "dynamic:" + t.Current }
func (t Custom) String() string  { return "custom:" + t.Query }
func (t Named) String() string   { return "named:" + t.Name }
func (Empty) String() string     { return "empty" }

// Target encodings accepted by ParseTarget.
const (
	DynamicMarker = "*"
	CustomMarker  = "@"
	CustomPrefix  = "query:"
)

// ParseTarget decodes the textual target used by the HTTP API, the CLI and the
// MCP tools: "*" follows current (the page being viewed), "@<query>" or
// "query:<query>" is a raw query, "[[Page]]" or "((block-id))" is unwrapped to
// a name, and an empty string selects properties only.
func ParseTarget(raw, current string) (Target, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Empty{}, nil
	case s == DynamicMarker:
		return Dynamic{Current: strings.TrimSpace(current)}, nil
	case strings.HasPrefix(s, CustomMarker):
		return custom(strings.TrimPrefix(s, CustomMarker))
	case strings.HasPrefix(strings.ToLower(s), CustomPrefix):
		return custom(s[len(CustomPrefix):])
	}
	if (strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]")) ||
		(strings.HasPrefix(s, "((") && strings.HasSuffix(s, "))")) {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	if s == "" {
		return nil, fmt.Errorf("days: %q: %w", raw, apperr.ErrInvalidTarget)
	}
	return Named{Name: s}, nil
}

func custom(q string) (Target, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("days: empty custom query: %w", apperr.ErrInvalidTarget)
	}
	return Custom{Query: q}, nil
}
