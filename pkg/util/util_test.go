package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsISODate(t *testing.T) {
	assert.True(t, IsISODate("2026-02-27"))
	assert.False(t, IsISODate("2026-2-27"))
	assert.False(t, IsISODate("02-27-2026"))
	assert.False(t, IsISODate("2026-02-30"))
	assert.False(t, IsISODate(""))
}

func TestShiftDate(t *testing.T) {
	cases := []struct {
		in   string
		days int
		want string
	}{
		{"2026-02-27", 1, "2026-02-28"},
		{"2026-02-27", 7, "2026-03-06"},
		{"2026-02-27", 3, "2026-03-02"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2026-03-07", 2, "2026-03-09"}, // crosses US DST start
		{"2026-12-31", 1, "2027-01-01"},
	}
	for _, c := range cases {
		got, err := ShiftDate(c.in, c.days)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "ShiftDate(%s, %d)", c.in, c.days)
	}

	_, err := ShiftDate("soon", 1)
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	d, err := DaysBetween("2026-02-27", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 3, d)

	d, err = DaysBetween("2026-03-02", "2026-02-27")
	require.NoError(t, err)
	assert.Equal(t, -3, d)
}

func TestTodayUsesLocation(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	now := time.Date(2026, 2, 28, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-27", Today(now, la))
	assert.Equal(t, "2026-02-28", Today(now, time.UTC))
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2026-02-27", NormalizeDate("2026-02-27T10:00:00.000Z"))
	assert.Equal(t, "2026-02-27", NormalizeDate("2026-02-27"))
	assert.Equal(t, "", NormalizeDate("tomorrow"))
}

func TestAtHour(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	got, err := AtHour("2026-02-27", 9, la)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 27, 17, 0, 0, 0, time.UTC), got.UTC())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1h 30m", FormatMinutes(90))
	assert.Equal(t, "0h 0m", FormatMinutes(-5))
	assert.Equal(t, "Feb 27, 2026", DisplayDate("2026-02-27"))
	assert.Equal(t, "abc...", Truncate("abcdefgh", 6))
	assert.Equal(t, "short", Truncate("  short ", 10))
}
