package model

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek is a named weekday as stored in weekly schedules.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var byWeekday = [7]DayOfWeek{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// DayOfWeekOf maps a Go weekday onto DayOfWeek. Every input maps to a day.
func DayOfWeekOf(w time.Weekday) DayOfWeek {
	return byWeekday[((int(w)%7)+7)%7]
}

// ParseDayOfWeek accepts full English day names in any case.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range byWeekday {
		if known == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day of week %q", s)
}

// Weekday is the inverse of DayOfWeekOf.
func (d DayOfWeek) Weekday() time.Weekday {
	for w, known := range byWeekday {
		if known == d {
			return time.Weekday(w)
		}
	}
	return time.Sunday
}

// ISO returns 1 for Monday through 7 for Sunday.
func (d DayOfWeek) ISO() int {
	w := int(d.Weekday())
	if w == 0 {
		return 7
	}
	return w
}

// DayOfWeekFromISO is the inverse of ISO.
func DayOfWeekFromISO(n int) (DayOfWeek, error) {
	if n < 1 || n > 7 {
		return "", fmt.Errorf("invalid ISO day %d, must be 1-7 (1=Mon, 7=Sun)", n)
	}
	return DayOfWeekOf(time.Weekday(n % 7)), nil
}
