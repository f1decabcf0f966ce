// Package datefmt parses and formats calendar dates written with date-fns style
// patterns such as "MMM do, yyyy" or "yyyy_MM_dd".
package datefmt

import (
	"errors"
	"fmt"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrInvalidDate is returned when a value does not describe a real calendar date
	// under the given pattern.
	ErrInvalidDate = errors.New("datefmt: invalid date")
	// ErrUnsupportedPattern is returned for pattern letters this package does not know.
	ErrUnsupportedPattern = errors.New("datefmt: unsupported pattern")
)

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokYear           // y, yyy
	tokYear2          // yy
	tokYear4          // yyyy
	tokWeekYear4      // YYYY
	tokMonth          // M
	tokMonth2         // MM
	tokMonthAbbr      // MMM
	tokMonthName      // MMMM
	tokDay            // d
	tokDay2           // dd
	tokDayOrdinal     // do
	tokWeekdayAbbr    // E, EE, EEE
	tokWeekdayName    // EEEE
	tokWeek           // w
	tokWeek2          // ww
)

type token struct {
	kind tokenKind
	lit  string
}

// cacheSize bounds the compiled layouts kept per cache. Layouts can come from
// request parameters, so the caches must not grow with distinct inputs.
const cacheSize = 128

var compiled = mustCache[[]token]()

func mustCache[V any]() *lru.Cache[string, V] {
	c, err := lru.New[string, V](cacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

// tokens splits layout into pattern tokens, caching the result per layout.
func tokens(layout string) ([]token, error) {
	if toks, ok := compiled.Get(layout); ok {
		return toks, nil
	}
	toks, err := tokenize(layout)
	if err != nil {
		return nil, err
	}
	compiled.Add(layout, toks)
	return toks, nil
}

func tokenize(layout string) ([]token, error) {
	if layout == "" {
		return nil, fmt.Errorf("%w: empty layout", ErrUnsupportedPattern)
	}
	rs := []rune(layout)
	var out []token
	lit := func(s string) {
		if n := len(out); n > 0 && out[n-1].kind == tokLiteral {
			out[n-1].lit += s
			return
		}
		out = append(out, token{kind: tokLiteral, lit: s})
	}

	for i := 0; i < len(rs); {
		r := rs[i]

		if r == '\'' {
			// '' is an escaped quote, otherwise read up to the closing quote.
			if i+1 < len(rs) && rs[i+1] == '\'' {
				lit("'")
				i += 2
				continue
			}
			j := i + 1
			var quoted []rune
			for j < len(rs) {
				if rs[j] == '\'' {
					if j+1 < len(rs) && rs[j+1] == '\'' {
						quoted = append(quoted, '\'')
						j += 2
						continue
					}
					break
				}
				quoted = append(quoted, rs[j])
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("%w: unterminated quote in %q", ErrUnsupportedPattern, layout)
			}
			lit(string(quoted))
			i = j + 1
			continue
		}

		if !unicode.IsLetter(r) {
			lit(string(r))
			i++
			continue
		}

		j := i
		for j < len(rs) && rs[j] == r {
			j++
		}
		n := j - i

		kind, ok := letterKind(r, n)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %q", ErrUnsupportedPattern, string(rs[i:j]), layout)
		}
		if kind == tokDay && j < len(rs) && rs[j] == 'o' {
			kind = tokDayOrdinal
			j++
		}
		out = append(out, token{kind: kind})
		i = j
	}
	return out, nil
}

func letterKind(r rune, n int) (tokenKind, bool) {
	switch r {
	case 'y':
		switch n {
		case 2:
			return tokYear2, true
		case 4:
			return tokYear4, true
		default:
			return tokYear, true
		}
	case 'Y':
		if n == 4 {
			return tokWeekYear4, true
		}
	case 'M', 'L':
		switch n {
		case 1:
			return tokMonth, true
		case 2:
			return tokMonth2, true
		case 3:
			return tokMonthAbbr, true
		case 4:
			return tokMonthName, true
		}
	case 'd':
		switch n {
		case 1:
			return tokDay, true
		case 2:
			return tokDay2, true
		}
	case 'E':
		switch {
		case n <= 3:
			return tokWeekdayAbbr, true
		case n == 4:
			return tokWeekdayName, true
		}
	case 'w':
		switch n {
		case 1:
			return tokWeek, true
		case 2:
			return tokWeek2, true
		}
	}
	return 0, false
}
