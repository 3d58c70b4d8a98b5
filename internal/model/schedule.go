package model

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// WeeklySchedule is the recurring opening rule for one weekday at one location.
type WeeklySchedule struct {
	ID               int64     `json:"id,omitempty"`
	Location         Location  `json:"location"`
	DayOfWeek        DayOfWeek `json:"day_of_week"`
	IsOpen           bool      `json:"is_open"`
	OpenTime         string    `json:"open_time"`                    // "08:00"
	CloseTime        string    `json:"close_time"`                   // "20:00"
	SpecialCloseTime string    `json:"special_close_time,omitempty"` // early close, overrides CloseTime
	Message          string    `json:"message,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// EffectiveCloseTime is SpecialCloseTime when set, CloseTime otherwise.
func (s WeeklySchedule) EffectiveCloseTime() string {
	if strings.TrimSpace(s.SpecialCloseTime) != "" {
		return s.SpecialCloseTime
	}
	return s.CloseTime
}

// ClosureException overrides the weekly schedule on a single date.
// An empty Location applies to every site.
type ClosureException struct {
	ID           int64     `json:"id,omitempty"`
	Date         time.Time `json:"date"`
	Location     Location  `json:"location,omitempty"`
	ClosedAllDay bool      `json:"closed_all_day"`
	OpenTime     string    `json:"open_time,omitempty"`
	CloseTime    string    `json:"close_time,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

func (e ClosureException) IsGlobal() bool {
	return e.Location == ""
}

// Validate checks that a partial-day closure carries a usable time range.
func (e ClosureException) Validate() error {
	if e.ClosedAllDay {
		return nil
	}
	if strings.TrimSpace(e.OpenTime) == "" || strings.TrimSpace(e.CloseTime) == "" {
		return errors.New("partial closure needs both open and close times")
	}
	open, closeAt := ParseClock(e.OpenTime), ParseClock(e.CloseTime)
	if !open.Valid || !closeAt.Valid {
		return errors.New("partial closure has an unreadable open or close time")
	}
	if closeAt.Minutes <= open.Minutes {
		return errors.New("partial closure must close after it opens")
	}
	return nil
}

// AppliesTo reports whether the exception covers loc on date.
func (e ClosureException) AppliesTo(date time.Time, loc Location) bool {
	if !SameDate(e.Date, date) {
		return false
	}
	return e.IsGlobal() || e.Location == loc
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate compares calendar dates as written, ignoring zones.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses YYYY-MM-DD at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
