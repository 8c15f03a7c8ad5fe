package utils

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ErrInvalidTimeFormat is returned when time parsing fails
var ErrInvalidTimeFormat = errors.New("invalid time format")

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidClock reports whether s is a zero-padded "HH:MM" wall-clock time.
func IsValidClock(s string) bool {
	return clockRe.MatchString(s)
}

// ParseDate parses a "YYYY-MM-DD" string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidTimeFormat, s)
	}
	return t, nil
}

// AtClock places an "HH:MM" wall-clock time on the calendar day of day, in loc.
func AtClock(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	if !IsValidClock(hhmm) {
		return time.Time{}, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimeFormat, hhmm)
	}
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), nil
}

// Clock formats t as "HH:MM".
func Clock(t time.Time) string {
	return t.Format(ClockLayout)
}

// DateKey formats t as "YYYY-MM-DD".
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseTime parses a time string in RFC3339 or other common formats.
// Zone-less inputs are interpreted in loc; inputs carrying an offset
// keep it.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimeFormat
}
