package timeutil

import "time"

// Common layouts for date handling
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006"
)

// StartOfDay returns t's calendar date as a midnight in UTC. Due dates come
// out of DATE columns and YYYY-MM-DD strings as UTC midnights, so comparisons
// must normalize the wall-clock side to UTC as well or a local clock west of
// UTC reads a day ahead.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a. UTC midnights are always exact 24h apart,
// so the division is safe across DST changes.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate formats a time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
