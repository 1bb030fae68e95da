package domain

import (
	"fmt"
	"time"
)

// MinutesPerDay bounds every ClockTime; 24:00 is a valid end of day.
const MinutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day stored as minutes after midnight.
type ClockTime int

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime accepts "HH:MM" and "HH:MM:SS" (seconds are ignored).
// "24:00" is the only hour-24 value allowed. Trailing text is rejected.
func ParseClockTime(s string) (ClockTime, error) {
	if s == "24:00" || s == "24:00:00" {
		return MinutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		if t, err = time.Parse("15:04:05", s); err != nil {
			return 0, fmt.Errorf("invalid time %q", s)
		}
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Minute)
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c <= MinutesPerDay
}

// On returns the instant this time of day falls on for the civil date, in loc.
func (c ClockTime) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc)
}

// DateOnly maps t to its civil date. Dates are carried as UTC midnight,
// which is also how DATE columns come back from Postgres.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Overlaps reports whether half-open intervals [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return aStart < bEnd && bStart < aEnd
}
