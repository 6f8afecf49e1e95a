// Package timeutil parses the date bounds used by date range generators.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date (2006-01-02), an RFC3339 timestamp, one
// of today, yesterday or tomorrow, or a signed offset from today such as
// -30d, +2w, -6m or +1y. Months and years move by calendar, so -1m from
// March 31 lands on March 2 or 3 the way time.AddDate does. The result is a
// UTC date at midnight.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date string")
	}
	today := Day(now)

	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	if s[0] == '-' || s[0] == '+' {
		return ApplyOffset(today, s)
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD, RFC3339, today or a signed offset like -30d", s)
}

// ApplyOffset moves t by a signed offset of days (d), weeks (w), months (m)
// or years (y).
func ApplyOffset(t time.Time, offset string) (time.Time, error) {
	if len(offset) < 3 {
		return time.Time{}, fmt.Errorf("invalid date offset %q", offset)
	}
	n, err := strconv.Atoi(offset[:len(offset)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date offset %q: %w", offset, err)
	}

	switch offset[len(offset)-1] {
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'm':
		return t.AddDate(0, n, 0), nil
	case 'y':
		return t.AddDate(n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid date offset %q: unit must be d, w, m or y", offset)
	}
}

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
