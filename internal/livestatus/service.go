// Package livestatus answers "is the library open right now" and when that
// answer next changes.
package livestatus

import (
	"time"

	"isomero/internal/hours"
	"isomero/internal/model"
)

// DefaultScanDays bounds the search for the next opening day.
const DefaultScanDays = 14

// Service computes LiveStatus values from the shared resolver.
type Service struct {
	resolver *hours.Resolver
	scanDays int
}

// NewService creates a service that scans DefaultScanDays ahead.
func NewService(resolver *hours.Resolver) *Service {
	return &Service{resolver: resolver, scanDays: DefaultScanDays}
}

// Compute returns the status of loc at now. now is never read from the clock.
//
// When a bound of today's hours cannot be parsed, the declared open flag
// decides and that bound yields no next-change time.
func (s *Service) Compute(
	now time.Time,
	loc model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
) model.LiveStatus {
	today := s.resolver.ResolveDay(now, loc, schedules, exceptions)

	if today.IsClosed {
		return model.LiveStatus{
			IsOpen:     false,
			Message:    today.Reason,
			NextChange: s.nextOpening(today.Date, loc, schedules, exceptions),
		}
	}

	openAt, openKnown := clockOn(today.Open, today.Date)
	closeAt, closeKnown := clockOn(today.Close, today.Date)

	switch {
	case openKnown && now.Before(openAt):
		return model.LiveStatus{IsOpen: false, Message: today.Message, NextChange: &openAt}
	case closeKnown && !now.Before(closeAt):
		return model.LiveStatus{
			IsOpen:     false,
			Message:    today.Message,
			NextChange: s.nextOpening(today.Date, loc, schedules, exceptions),
		}
	}

	status := model.LiveStatus{IsOpen: true, Message: today.Message}
	if closeKnown {
		status.NextChange = &closeAt
	}
	return status
}

// nextOpening looks at the days after day for the first one that is not
// closed and returns its opening time.
func (s *Service) nextOpening(
	day time.Time,
	loc model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
) *time.Time {
	for i := 1; i <= s.scanDays; i++ {
		st := s.resolver.ResolveDay(day.AddDate(0, 0, i), loc, schedules, exceptions)
		if st.IsClosed {
			continue
		}
		if at, ok := clockOn(st.Open, st.Date); ok {
			return &at
		}
		return nil
	}
	return nil
}

func clockOn(c *model.Clock, day time.Time) (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	return c.On(day)
}
