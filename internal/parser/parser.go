// Package parser turns Markdown vault files into pages and outline blocks.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/daymark/internal/datefmt"
	"github.com/starford/daymark/internal/models"
	"github.com/starford/daymark/internal/settings"
)

// JournalDir is the vault directory holding journal pages.
const JournalDir = "journals"

var (
	wikilinkRe  = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagLinkRe   = regexp.MustCompile(`(?:^|\s)#\[\[(.*?)\]\]`)
	tagRe       = regexp.MustCompile(`(?:^|\s)#([^\s\[\]#,.!?;:"'()]+)`)
	blockRefRe  = regexp.MustCompile(`\(\(([0-9a-fA-F-]{36})\)\)`)
	propertyRe  = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_-]*)::(?:\s+(.*))?$`)
	itemRe      = regexp.MustCompile(`^([ \t]*)-(?:[ \t]+(.*))?$`)
	timestampRe = regexp.MustCompile(`(SCHEDULED|DEADLINE):\s*<(\d{4})-(\d{2})-(\d{2})(?:\s+[A-Za-z]+)?(?:\s+(\d{1,2}:\d{2}))?(?:\s+[.+]?\+(?:(\d{1,4}[ymwdh])|\d+[ymwdh]))?\s*>`)
	priorityRe  = regexp.MustCompile(`\[#[A-Ca-c]\]\s*`)
)

var markers = map[string]struct{}{
	"TODO": {}, "DOING": {}, "DONE": {}, "LATER": {}, "NOW": {},
	"WAITING": {}, "WAIT": {}, "IN-PROGRESS": {}, "CANCELED": {}, "CANCELLED": {},
}

// Document is a parsed vault file: the page entry plus its blocks in file order.
type Document struct {
	Path   string
	Page   models.Entry
	Blocks []models.Entry
}

// Entries returns the page followed by its blocks.
func (d *Document) Entries() []models.Entry {
	out := make([]models.Entry, 0, len(d.Blocks)+1)
	out = append(out, d.Page)
	return append(out, d.Blocks...)
}

// Parse parses the file at vault-relative path p.
func Parse(p string, data []byte, c settings.Context) (*Document, error) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	lineOffset := 0
	if n := len(data) - len(body); n > 0 && n <= len(data) {
		lineOffset = bytes.Count(data[:n], []byte("\n"))
	}

	segments := splitBlocks(body, lineOffset)

	pageProps := frontmatterProperties(fm)
	var lead *segment
	if len(segments) > 0 && segments[0].leading {
		lead = &segments[0]
		segments = segments[1:]
		if lead.onlyProperties() {
			f := lead.parse()
			for k, v := range f.properties {
				pageProps[k] = v
			}
			if f.id != "" {
				pageProps["id"] = []string{f.id}
			}
		}
	}

	page := pageEntry(p, fm, pageProps, c)
	doc := &Document{Path: p, Page: page}

	ordinal := 0
	if len(pageProps) > 0 {
		pre := page
		pre.IsPage, pre.IsJournal = false, false
		pre.Name, pre.OriginalName = "", ""
		pre.PreBlock = true
		pre.ParentID = page.ID
		pre.ID = derivedID(p, ordinal)
		pre.IDPinned = false
		pre.Position = ordinal
		pre.Properties = copyProps(pageProps)
		pre.Content = ""
		if lead != nil && lead.onlyProperties() {
			pre.Content = strings.Join(lead.lines, "\n")
			pre.Line = lead.line
		}
		doc.Blocks = append(doc.Blocks, pre)
		ordinal++
	}
	if lead != nil && !lead.onlyProperties() {
		doc.Blocks = append(doc.Blocks, blockEntry(page, *lead, ordinal, nil))
		ordinal++
	}

	type open struct {
		width int
		id    string
	}
	var stack []open
	for _, seg := range segments {
		for len(stack) > 0 && stack[len(stack)-1].width >= seg.width {
			stack = stack[:len(stack)-1]
		}
		parent := ""
		if len(stack) > 0 {
			parent = stack[len(stack)-1].id
		}
		b := blockEntry(page, seg, ordinal, &parent)
		ordinal++
		doc.Blocks = append(doc.Blocks, b)
		stack = append(stack, open{width: seg.width, id: b.ID})
	}
	return doc, nil
}

// IsJournalPath reports whether p lives in the journal directory.
func IsJournalPath(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.HasPrefix(p, JournalDir+"/") && strings.HasSuffix(p, ".md")
}

// JournalPath returns the vault-relative file path of the journal for day.
func JournalPath(day time.Time, c settings.Context) (string, error) {
	name, err := formatJournalFile(day, c)
	if err != nil {
		return "", err
	}
	return JournalDir + "/" + name + ".md", nil
}

func pageEntry(p string, fm map[string]any, props map[string][]string, c settings.Context) models.Entry {
	e := models.Entry{IsPage: true, Path: p, Properties: props}

	if IsJournalPath(p) {
		stem := strings.TrimSuffix(path.Base(p), ".md")
		if day, err := parseJournalFile(stem, c); err == nil {
			e.IsJournal = true
			e.JournalDay = c.DayNumber(day)
			e.OriginalName = c.JournalTitle(day)
		}
	}
	if e.OriginalName == "" {
		e.OriginalName = pageTitle(p, fm, props)
	}
	e.Name = strings.ToLower(e.OriginalName)

	if id := pinnedID(fm, props); id != "" {
		e.ID, e.IDPinned = id, true
	} else {
		e.ID = pageID(e.Name)
	}
	delete(props, "id")

	e.PageID = e.ID
	e.PageName = e.Name
	e.PageOriginalName = e.OriginalName
	return e
}

func pageTitle(p string, fm map[string]any, props map[string][]string) string {
	if fm != nil {
		if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	if v := props["title"]; len(v) > 0 && v[0] != "" {
		return v[0]
	}
	stem := strings.TrimSuffix(path.Base(p), ".md")
	stem = strings.ReplaceAll(stem, "___", "/")
	return strings.ReplaceAll(stem, "%2F", "/")
}

func blockEntry(page models.Entry, seg segment, ordinal int, parent *string) models.Entry {
	f := seg.parse()
	e := models.Entry{
		PageID:           page.ID,
		PageName:         page.Name,
		PageOriginalName: page.OriginalName,
		JournalDay:       page.JournalDay,
		Position:         ordinal,
		Line:             seg.line,
		Content:          strings.Join(seg.lines, "\n"),
		Marker:           f.marker,
		Scheduled:        f.scheduled,
		Deadline:         f.deadline,
		Properties:       f.properties,
		Refs:             f.refs,
		Path:             page.Path,
	}
	if parent != nil {
		e.ParentID = *parent
	}
	if e.ParentID == "" {
		e.ParentID = page.ID
	}
	if f.id != "" {
		e.ID, e.IDPinned = f.id, true
	} else {
		e.ID = derivedID(page.Path, ordinal)
	}
	return e
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}
	return fm, body, nil
}

func frontmatterProperties(fm map[string]any) map[string][]string {
	props := make(map[string][]string, len(fm))
	for k, v := range fm {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		switch val := v.(type) {
		case nil:
		case string:
			if vs := propertyValues(val); len(vs) > 0 {
				props[key] = vs
			}
		case []any:
			for _, item := range val {
				if s := scalarString(item); s != "" {
					props[key] = append(props[key], s)
				}
			}
		default:
			if s := scalarString(val); s != "" {
				props[key] = []string{s}
			}
		}
	}
	return props
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		return val.Format("2006-01-02")
	case int:
		return strconv.Itoa(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// propertyValues splits a raw property value. A value made only of page links
// yields one value per link; anything else is a single value.
func propertyValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	links := wikilinkRe.FindAllStringSubmatch(raw, -1)
	if len(links) == 0 {
		return []string{raw}
	}
	rest := strings.Trim(wikilinkRe.ReplaceAllString(raw, ""), " ,")
	if rest != "" {
		return []string{raw}
	}
	out := make([]string, 0, len(links))
	for _, m := range links {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func pinnedID(fm map[string]any, props map[string][]string) string {
	if fm != nil {
		if s, ok := fm["id"].(string); ok && validID(s) {
			return strings.ToLower(s)
		}
	}
	if v := props["id"]; len(v) == 1 && validID(v[0]) {
		return strings.ToLower(v[0])
	}
	return ""
}

func copyProps(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func parseJournalFile(stem string, c settings.Context) (time.Time, error) {
	layout := c.JournalFileFormat
	if layout == "" {
		layout = settings.DefaultJournalFileFormat
	}
	return datefmt.ParseIn(stem, layout, c.Location)
}

func formatJournalFile(day time.Time, c settings.Context) (string, error) {
	layout := c.JournalFileFormat
	if layout == "" {
		layout = settings.DefaultJournalFileFormat
	}
	return datefmt.Format(day, layout, c.Week)
}
