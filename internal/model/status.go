package model

import "time"

// Source tells which rule decided a DayStatus.
type Source string

const (
	SourceException     Source = "EXCEPTION"
	SourceSchedule      Source = "SCHEDULE"
	SourceDefaultClosed Source = "DEFAULT_CLOSED"
)

// ClosingSoonWindow is how close the next change must be to flag it in the UI.
const ClosingSoonWindow = 2 * time.Hour

// DayStatus is the resolved outcome for one date at one location.
type DayStatus struct {
	Date            time.Time `json:"date"`
	Location        Location  `json:"location"`
	IsClosed        bool      `json:"is_closed"`
	IsException     bool      `json:"is_exception"`
	HasSpecialHours bool      `json:"has_special_hours"`
	Open            *Clock    `json:"open,omitempty"`
	Close           *Clock    `json:"close,omitempty"`
	Message         string    `json:"message,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Source          Source    `json:"source"`
}

// Hours renders "8:00 AM – 8:00 PM", or "" when closed.
func (s DayStatus) Hours() string {
	if s.IsClosed || s.Open == nil || s.Close == nil {
		return ""
	}
	return s.Open.String() + " – " + s.Close.String()
}

// Note is the reason for closed days and the message otherwise.
func (s DayStatus) Note() string {
	if s.IsClosed {
		return s.Reason
	}
	return s.Message
}

// DayView is a DayStatus placed in a month grid.
type DayView struct {
	DayStatus
	IsCurrentMonth bool `json:"is_current_month"`
	IsToday        bool `json:"is_today"`
}

// LiveStatus is the "open right now" answer for one location.
type LiveStatus struct {
	IsOpen     bool       `json:"is_open"`
	Message    string     `json:"message,omitempty"`
	NextChange *time.Time `json:"next_change,omitempty"`
}

// ChangesWithin reports whether the next transition happens within d of now.
func (s LiveStatus) ChangesWithin(now time.Time, d time.Duration) bool {
	if s.NextChange == nil {
		return false
	}
	left := s.NextChange.Sub(now)
	return left >= 0 && left <= d
}

func (s LiveStatus) ClosingSoon(now time.Time) bool {
	return s.IsOpen && s.ChangesWithin(now, ClosingSoonWindow)
}

func (s LiveStatus) OpeningSoon(now time.Time) bool {
	return !s.IsOpen && s.ChangesWithin(now, ClosingSoonWindow)
}
