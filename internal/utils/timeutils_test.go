package utils

import (
	"testing"
	"time"
)

func TestISOWeekZeroPadding(t *testing.T) {
	got := ISOWeek(time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC))
	if got != "2025-W07" {
		t.Fatalf("expected 2025-W07, got %s", got)
	}
}

func TestISOWeekYearBoundary(t *testing.T) {
	// January 1st 2021 belongs to ISO week 53 of 2020.
	got := ISOWeek(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	if got != "2020-W53" {
		t.Fatalf("expected 2020-W53, got %s", got)
	}
}

func TestParseISOWeek(t *testing.T) {
	year, week, err := ParseISOWeek("2025-W07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year != 2025 || week != 7 {
		t.Fatalf("expected 2025/7, got %d/%d", year, week)
	}

	for _, invalid := range []string{"2025-W7", "2025W07", "2025-W00", "2025-W54", "garbage"} {
		if _, _, err := ParseISOWeek(invalid); err == nil {
			t.Fatalf("expected error for %q", invalid)
		}
	}
}

func TestDurationMinutesSwapsReversedArguments(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	if got := DurationMinutes(end, start); got != 1.5 {
		t.Fatalf("expected 1.5 minutes, got %g", got)
	}
}
