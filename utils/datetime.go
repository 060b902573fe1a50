package utils

import (
	"errors"
	"time"
)

// Date inputs may arrive as a bare calendar date or as a full timestamp from
// a date picker. Only the calendar-day portion is kept either way.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// ComposeDateTime merges a date string and an HH:MM time string into a single
// UTC timestamp with zero seconds. The date's own time-of-day, if any, is
// discarded so a picker-supplied timestamp is not double-applied.
func ComposeDateTime(date, hhmm string) (time.Time, error) {
	if hhmm == "" {
		hhmm = "00:00"
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		day, err = time.Parse(layout, date)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, errors.New("invalid date or time format")
	}

	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, errors.New("invalid date or time format")
	}

	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}
