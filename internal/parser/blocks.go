package parser

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/daymark/internal/models"
)

// segment is the raw text of one outline item, or of the text before the first
// item when leading is set.
type segment struct {
	leading bool
	width   int // indentation, tabs counted as two columns
	line    int // 1-based line of the first line in the file
	lines   []string
}

type fields struct {
	id         string
	marker     string
	scheduled  *models.Schedule
	deadline   *models.Schedule
	properties map[string][]string
	refs       []string
}

func splitBlocks(body string, lineOffset int) []segment {
	var out []segment
	var cur *segment
	flush := func() {
		if cur == nil {
			return
		}
		for len(cur.lines) > 0 && strings.TrimSpace(cur.lines[len(cur.lines)-1]) == "" {
			cur.lines = cur.lines[:len(cur.lines)-1]
		}
		if len(cur.lines) > 0 || !cur.leading {
			out = append(out, *cur)
		}
		cur = nil
	}

	for i, raw := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		lineNo := lineOffset + i + 1
		if m := itemRe.FindStringSubmatch(raw); m != nil {
			flush()
			cur = &segment{width: indentWidth(m[1]), line: lineNo, lines: []string{strings.TrimRight(m[2], " \t")}}
			continue
		}
		if cur == nil {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			cur = &segment{leading: true, line: lineNo}
		}
		cur.lines = append(cur.lines, strings.TrimSpace(raw))
	}
	flush()
	return out
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		if r == '\t' {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func (s segment) onlyProperties() bool {
	if !s.leading {
		return false
	}
	seen := false
	for _, l := range s.lines {
		if l == "" {
			continue
		}
		if !propertyRe.MatchString(l) {
			return false
		}
		seen = true
	}
	return seen
}

func (s segment) parse() fields {
	f := fields{properties: map[string][]string{}}
	refs := map[string]struct{}{}
	addRef := func(r string) {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			return
		}
		if _, ok := refs[r]; !ok {
			refs[r] = struct{}{}
			f.refs = append(f.refs, r)
		}
	}

	if len(s.lines) > 0 {
		first := strings.TrimSpace(s.lines[0])
		word, _, _ := strings.Cut(first, " ")
		if _, ok := markers[word]; ok {
			f.marker = word
		}
	}

	for _, line := range s.lines {
		if m := propertyRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(m[1])
			if key == "id" {
				if validID(m[2]) {
					f.id = strings.ToLower(strings.TrimSpace(m[2]))
				}
				continue
			}
			vals := propertyValues(m[2])
			if len(vals) > 0 {
				f.properties[key] = vals
			}
			for _, l := range wikilinkRe.FindAllStringSubmatch(m[2], -1) {
				addRef(linkTarget(l[1]))
			}
			continue
		}
		for _, ts := range timestampRe.FindAllStringSubmatch(line, -1) {
			sch := timestamp(ts)
			if ts[1] == "SCHEDULED" {
				f.scheduled = sch
			} else {
				f.deadline = sch
			}
		}
		for _, l := range tagLinkRe.FindAllStringSubmatch(line, -1) {
			addRef(l[1])
		}
		for _, l := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			addRef(linkTarget(l[1]))
		}
		for _, l := range tagRe.FindAllStringSubmatch(line, -1) {
			addRef(l[1])
		}
		for _, l := range blockRefRe.FindAllStringSubmatch(line, -1) {
			addRef(l[1])
		}
	}
	if len(f.properties) == 0 {
		f.properties = nil
	}
	return f
}

// linkTarget handles aliases: [[Target|Alias]] -> Target.
func linkTarget(raw string) string {
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func timestamp(m []string) *models.Schedule {
	y, _ := strconv.Atoi(m[2])
	mo, _ := strconv.Atoi(m[3])
	d, _ := strconv.Atoi(m[4])
	s := &models.Schedule{Day: y*10000 + mo*100 + d, Time: m[5]}
	// Hour repeaters have no calendar-day meaning.
	if r := m[6]; r != "" && !strings.HasSuffix(r, "h") {
		s.Repeat = r
	}
	return s
}

// DisplayText returns the human label of a block: its first meaningful line
// without marker, priority, properties, timestamps and link brackets.
func DisplayText(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || propertyRe.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(timestampRe.ReplaceAllString(line, ""))
		if word, rest, _ := strings.Cut(line, " "); isMarker(word) {
			line = rest
		} else if isMarker(line) {
			line = ""
		}
		line = priorityRe.ReplaceAllString(line, "")
		line = tagLinkRe.ReplaceAllStringFunc(line, func(s string) string {
			return strings.Replace(strings.Replace(s, "#[[", "#", 1), "]]", "", 1)
		})
		line = wikilinkRe.ReplaceAllStringFunc(line, func(s string) string {
			inner := s[2 : len(s)-2]
			if i := strings.Index(inner, "|"); i >= 0 {
				return inner[i+1:]
			}
			return inner
		})
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func isMarker(s string) bool {
	_, ok := markers[s]
	return ok
}

// namespace seeds the deterministic ids of entries without an id:: property.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("daymark:entry"))

func derivedID(p string, ordinal int) string {
	return uuid.NewSHA1(namespace, []byte(p+"#"+strconv.Itoa(ordinal))).String()
}

func pageID(name string) string {
	return uuid.NewSHA1(namespace, []byte("page:"+name)).String()
}

func validID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil && len(strings.TrimSpace(s)) == 36
}
