// Package timex holds small time helpers shared by config and store code.
package timex

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so config files can spell durations as
// strings ("15m", "336h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML decoder.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// MonthKey formats t as the "YYYY-MM" key used by the monthly counters.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WeekKey formats t as "YYYY-WW" where weeks start on Monday and days before
// the first Monday of the year fall into week 00.
func WeekKey(t time.Time) string {
	yday := t.YearDay() - 1
	wday := (int(t.Weekday()) + 6) % 7
	week := (yday + 7 - wday) / 7
	return fmt.Sprintf("%04d-%02d", t.Year(), week)
}
