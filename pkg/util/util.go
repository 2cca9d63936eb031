package util

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the fixed-width calendar date format used everywhere a
// date crosses a package boundary.
const DateLayout = "2006-01-02"

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsISODate reports whether s has the YYYY-MM-DD shape and names a real day.
func IsISODate(s string) bool {
	if !isoDateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if !isoDateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ShiftDate moves an ISO date by whole calendar days in UTC, so daylight
// saving transitions never change the result.
func ShiftDate(date string, days int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(DateLayout), nil
}

// DaysBetween returns to - from in whole days. Both must be ISO dates.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(math.Round(t.Sub(f).Hours() / 24)), nil
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// DateOf returns the UTC calendar date of a timestamp, or "" for the zero time.
func DateOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// NormalizeDate accepts a date or a timestamp string and keeps the leading
// calendar date. Unrecognized shapes yield "".
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return ""
	}
	if d := s[:len(DateLayout)]; IsISODate(d) {
		return d
	}
	return ""
}

// AtHour returns the instant of hour:00 on date in loc.
func AtHour(date string, hour int, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc), nil
}

// FormatMinutes renders a minute count as "Xh Ym".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// DisplayDate renders an ISO date as "Feb 27, 2026".
func DisplayDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}

// Truncate trims s and shortens it to maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
