package datefmt

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func ymd(t time.Time) string { return t.Format("2006-01-02") }

func TestParse_ISO(t *testing.T) {
	got, err := ParseIn("2024-03-15", "yyyy-MM-dd", time.UTC)
	if err != nil {
		t.Fatalf("ParseIn: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("got %s", got)
	}
}

func TestParse_NotADate(t *testing.T) {
	if _, err := ParseIn("not-a-date", "yyyy-MM-dd", time.UTC); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestParse_DayOutOfRange(t *testing.T) {
	for _, raw := range []string{"2024-03-32", "2023-02-29", "2024-13-01", "2024-00-10"} {
		if _, err := ParseIn(raw, "yyyy-MM-dd", time.UTC); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("%s: err = %v, want ErrInvalidDate", raw, err)
		}
	}
}

func TestParse_LeapDay(t *testing.T) {
	got, err := ParseIn("2024-02-29", "yyyy-MM-dd", time.UTC)
	if err != nil || ymd(got) != "2024-02-29" {
		t.Errorf("got %s, %v", ymd(got), err)
	}
}

func TestParse_LinkWrapped(t *testing.T) {
	got, err := ParseIn("[[Mar 15th, 2024]]", "MMM do, yyyy", time.UTC)
	if err != nil || ymd(got) != "2024-03-15" {
		t.Errorf("got %s, %v", ymd(got), err)
	}
}

func TestParse_Layouts(t *testing.T) {
	cases := []struct {
		layout, raw, want string
	}{
		{"MMM do, yyyy", "Jan 1st, 2023", "2023-01-01"},
		{"MMMM do, yyyy", "September 22nd, 2021", "2021-09-22"},
		{"EEE, MMM do, yyyy", "Fri, Mar 15th, 2024", "2024-03-15"},
		{"EEEE, dd.MM.yyyy", "Friday, 15.03.2024", "2024-03-15"},
		{"yyyy_MM_dd", "2024_05_20", "2024-05-20"},
		{"yyyyMMdd", "20240520", "2024-05-20"},
		{"MM/dd/yyyy", "05/20/2024", "2024-05-20"},
		{"d.M.yy", "7.4.24", "2024-04-07"},
		{"do MMM yyyy", "3rd jun 2022", "2022-06-03"},
		{"yyyy 'year' M", "2024 year 5", ""},
	}
	for _, c := range cases {
		got, err := ParseIn(c.raw, c.layout, time.UTC)
		if c.want == "" {
			// Pattern without a day component never yields a date.
			if err == nil {
				t.Errorf("%s: expected error, got %s", c.layout, ymd(got))
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", c.layout, err)
			continue
		}
		if ymd(got) != c.want {
			t.Errorf("%s: got %s, want %s", c.layout, ymd(got), c.want)
		}
	}
}

func TestParse_UnsupportedPattern(t *testing.T) {
	if _, err := ParseIn("2024-03-15", "yyyy-MM-dd HH:mm", time.UTC); !errors.Is(err, ErrUnsupportedPattern) {
		t.Errorf("err = %v, want ErrUnsupportedPattern", err)
	}
	if _, err := ParseIn("x", "", time.UTC); !errors.Is(err, ErrUnsupportedPattern) {
		t.Errorf("empty layout err = %v", err)
	}
}

func TestCheckPattern(t *testing.T) {
	for _, layout := range []string{"MMM do, yyyy", "yyyy_MM_dd", "EEEE, dd.MM.yyyy", "d.M.yy"} {
		if err := CheckPattern(layout); err != nil {
			t.Errorf("CheckPattern(%q): %v", layout, err)
		}
	}
	for _, layout := range []string{"", "yyyy_MM", "yyyy-'W'w", "yyyy-MM-dd HH:mm", "'open"} {
		if err := CheckPattern(layout); !errors.Is(err, ErrUnsupportedPattern) {
			t.Errorf("CheckPattern(%q) err = %v, want ErrUnsupportedPattern", layout, err)
		}
	}
}

func TestLayoutCachesAreBounded(t *testing.T) {
	for i := range 4 * cacheSize {
		layout := fmt.Sprintf("yyyy-MM-dd'%d'", i)
		if _, err := ParseIn(fmt.Sprintf("2024-05-20%d", i), layout, time.UTC); err != nil {
			t.Fatalf("%s: %v", layout, err)
		}
	}
	if n := compiled.Len(); n > cacheSize {
		t.Errorf("token cache holds %d layouts, want at most %d", n, cacheSize)
	}
	if n := parsers.Len(); n > cacheSize {
		t.Errorf("matcher cache holds %d layouts, want at most %d", n, cacheSize)
	}

	// Evicted layouts still work.
	got, err := ParseIn("2024-05-200", "yyyy-MM-dd'0'", time.UTC)
	if err != nil || ymd(got) != "2024-05-20" {
		t.Errorf("evicted layout: %s, %v", ymd(got), err)
	}
}

func TestStripLink(t *testing.T) {
	cases := map[string]string{
		"[[2024-01-02]]": "2024-01-02",
		"  2024-01-02 ":  "2024-01-02",
		"[[a]] [[b]]x":   "[[a]] [[b]]x",
	}
	for in, want := range cases {
		if got := StripLink(in); got != want {
			t.Errorf("StripLink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat_JournalTitle(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"MMM do, yyyy":     "Mar 1st, 2024",
		"EEEE, yyyy/MM/dd": "Friday, 2024/03/01",
	}
	for layout, want := range cases {
		got, err := Format(d, layout, WeekOptions{})
		if err != nil || got != want {
			t.Errorf("Format(%q) = %q, %v; want %q", layout, got, err, want)
		}
	}
}

func TestFormat_WeekPage(t *testing.T) {
	iso := WeekOptions{StartsOn: time.Monday, FirstWeekContainsDate: 4}

	// 2024-01-01 is a Monday; with ISO rules it is in week 1 of 2024.
	got, err := Format(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "YYYY-'W'ww", iso)
	if err != nil || got != "2024-W01" {
		t.Errorf("got %q, %v", got, err)
	}

	// 2021-01-01 is a Friday and belongs to the last ISO week of 2020.
	got, err = Format(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), "YYYY-'W'w", iso)
	if err != nil || got != "2020-W53" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestOrdinal(t *testing.T) {
	want := map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 31: "31st"}
	for n, s := range want {
		if got := Ordinal(n); got != s {
			t.Errorf("Ordinal(%d) = %q, want %q", n, got, s)
		}
	}
}
