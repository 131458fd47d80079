package timex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("15m")))
	assert.Equal(t, 15*time.Minute, d.Duration)

	require.Error(t, d.UnmarshalText([]byte("fifteen")))
}

func TestDuration_MarshalText(t *testing.T) {
	b, err := Duration{Duration: 90 * time.Second}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}

func TestMonthKey(t *testing.T) {
	ts := time.Date(2025, time.November, 3, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "2025-11", MonthKey(ts))

	ts = time.Date(2025, time.December, 31, 22, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "2026-01", MonthKey(ts))
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		// 2025-01-01 is a Wednesday: before the first Monday -> week 00.
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-00"},
		{time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), "2025-00"},
		// First Monday of 2025.
		{time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "2025-01"},
		{time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), "2025-01"},
		// 2024-01-01 is a Monday.
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "2024-53"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, WeekKey(tc.date), tc.date.String())
	}
}
