package parser

import (
	"fmt"
	"strings"
)

// InsertID returns data with an "id:: <id>" property added under the block that
// starts at the given 1-based line, so the block keeps its id across edits.
func InsertID(data []byte, line int, id string) ([]byte, error) {
	lines := strings.SplitAfter(string(data), "\n")
	if line < 1 || line > len(lines) {
		return nil, fmt.Errorf("parser: line %d out of range", line)
	}
	first := lines[line-1]
	m := itemRe.FindStringSubmatch(strings.TrimRight(first, "\r\n"))
	if m == nil {
		return nil, fmt.Errorf("parser: line %d does not start a block", line)
	}
	if !strings.HasSuffix(first, "\n") {
		lines[line-1] = first + "\n"
	}

	var b strings.Builder
	b.Grow(len(data) + len(id) + len(m[1]) + 8)
	for _, l := range lines[:line] {
		b.WriteString(l)
	}
	b.WriteString(m[1] + "  id:: " + id + "\n")
	for _, l := range lines[line:] {
		b.WriteString(l)
	}
	return []byte(b.String()), nil
}
