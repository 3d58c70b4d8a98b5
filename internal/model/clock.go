package model

import (
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day parsed from schedule data.
// An invalid Clock keeps its raw text for display and cannot be compared.
type Clock struct {
	Raw     string `json:"raw"`
	Minutes int    `json:"minutes"` // since midnight
	Valid   bool   `json:"valid"`
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseClock never fails; unparseable input yields an invalid Clock.
func ParseClock(s string) Clock {
	raw := strings.TrimSpace(s)
	c := Clock{Raw: raw}
	if raw == "" {
		return c
	}
	if raw == "24:00" || raw == "24:00:00" {
		c.Minutes = minutesPerDay
		c.Valid = true
		return c
	}

	value := strings.ToUpper(raw)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		c.Minutes = t.Hour()*60 + t.Minute()
		c.Valid = true
		return c
	}
	return c
}

// NewClock builds a valid Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock{
		Raw:     fmt.Sprintf("%02d:%02d", hour, minute),
		Minutes: hour*60 + minute,
		Valid:   true,
	}
}

// String renders "8:00 AM" style text, or the raw input when invalid.
func (c Clock) String() string {
	if !c.Valid {
		return c.Raw
	}
	m := c.Minutes % minutesPerDay
	return time.Date(2000, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("3:04 PM")
}

// HHMM renders the 24h form used in storage and config.
func (c Clock) HHMM() string {
	if !c.Valid {
		return c.Raw
	}
	return fmt.Sprintf("%02d:%02d", c.Minutes/60, c.Minutes%60)
}

// On places the clock on the given date, in the date's location.
// It reports false for invalid clocks.
func (c Clock) On(date time.Time) (time.Time, bool) {
	if !c.Valid {
		return time.Time{}, false
	}
	d := DateOf(date)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, c.Minutes, 0, 0, d.Location()), true
}

// Before compares two clocks. ok is false when either side is invalid.
func (c Clock) Before(other Clock) (before, ok bool) {
	if !c.Valid || !other.Valid {
		return false, false
	}
	return c.Minutes < other.Minutes, true
}
