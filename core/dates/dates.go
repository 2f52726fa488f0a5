// Package dates normalizes the heterogeneous date and number strings found in
// scraped injury tables.
package dates

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// StrictLayout is the layout used by the injury history pages.
const StrictLayout = "Jan 2, 2006"

// ISOLayout is the layout used when writing dates.
const ISOLayout = "2006-01-02"

// placeholders are cell values that mean "no date".
var placeholders = map[string]struct{}{
	"-":       {},
	"?":       {},
	"n/a":     {},
	"unknown": {},
}

// Normalize parses raw into a UTC calendar date. It returns false rather
// than an error when raw is blank, a placeholder, or unparseable; callers
// treat that as "skip this record".
func Normalize(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := placeholders[strings.ToLower(s)]; ok {
		return time.Time{}, false
	}

	if t, err := time.Parse(StrictLayout, s); err == nil {
		return truncate(t), true
	}

	// Ambiguous numeric dates are month first unless the month would overflow.
	t, err := dateparse.ParseIn(s, time.UTC,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, false
	}
	return truncate(t), true
}

// Format renders t as an ISO date, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ISOLayout)
}

// NormalizeISO normalizes raw and renders it as an ISO date.
// Unparseable input is returned unchanged so no information is lost.
func NormalizeISO(raw string) string {
	t, ok := Normalize(raw)
	if !ok {
		return raw
	}
	return Format(t)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(truncate(b).Sub(truncate(a)).Hours() / 24)
}

// LeadingInt extracts the first run of digits in raw, ignoring thousands
// separators and minute marks. "1.234'" yields 1234 and "45 days" yields 45.
func LeadingInt(raw string) (int, bool) {
	s := strings.NewReplacer(".", "", ",", "", "'", "").Replace(strings.TrimSpace(raw))

	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}

	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IntOrZero is LeadingInt with 0 for missing values.
func IntOrZero(raw string) int {
	n, _ := LeadingInt(raw)
	return n
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
