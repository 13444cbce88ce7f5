package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var isoWeekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ISOWeek formats t as a zero-padded ISO week key, e.g. "2025-W07".
// Zero-padding keeps lexicographic and chronological order aligned.
func ISOWeek(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseISOWeek validates an ISO week key and returns its year and week.
func ParseISOWeek(value string) (year, week int, err error) {
	m := isoWeekPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid ISO week %q, want YYYY-Www", value)
	}
	year, _ = strconv.Atoi(m[1])
	week, _ = strconv.Atoi(m[2])
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid ISO week %q: week out of range", value)
	}
	return year, week, nil
}

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// DurationMinutes converts a pair of timestamps into minute duration.
func DurationMinutes(start, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return end.Sub(start).Minutes()
}
