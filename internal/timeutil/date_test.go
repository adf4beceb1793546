package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	in := time.Date(2024, 6, 15, 23, 45, 12, 999, loc)
	out := StartOfDay(in)

	// The calendar date is kept but normalized to UTC, so it compares
	// cleanly against dates scanned from DATE columns.
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), out)
	assert.True(t, out.Equal(StartOfDay(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))))
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{
			name: "same day ignores clock time",
			a:    time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "forward",
			a:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			want: 5,
		},
		{
			name: "negative when b precedes a",
			a:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),
			want: -3,
		},
		{
			name: "across a month boundary",
			a:    time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC),
			want: 3,
		},
		{
			name: "same calendar day in different zones",
			a:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 6, 15, 18, 0, 0, 0, time.FixedZone("PST", -8*3600)),
			want: 0,
		},
		{
			name: "across a DST transition",
			a:    time.Date(2024, 3, 9, 12, 0, 0, 0, mustLoadLocation(t, "America/New_York")),
			b:    time.Date(2024, 3, 11, 12, 0, 0, 0, mustLoadLocation(t, "America/New_York")),
			want: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DaysBetween(tc.a, tc.b))
		})
	}
}

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/06/2024")
	assert.Error(t, err)

	assert.Equal(t, "2024-06-15", FormatDate(d))
}
