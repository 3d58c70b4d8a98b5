// Package hours decides whether a library site is open on a given date.
//
// The Resolver merges two rule sources: the recurring weekly schedule and
// one-off closure exceptions. Exceptions always win; a global exception
// (no location) covers every site. Every consumer that needs a day's status
// (calendar grid, live status, API, bot) goes through the same Resolver.
package hours

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"isomero/internal/model"
)

const (
	reasonClosedForDay    = "Closed for the day"
	reasonNoSchedule      = "No schedule defined"
	reasonRegularlyClosed = "Closed (Regular Schedule)"
	messageModifiedHours  = "Modified hours"
)

// Resolver resolves DayStatus values. It holds no state besides its logger
// and is safe for concurrent use.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a resolver that logs data anomalies to logger.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger.With().Str("component", "resolver").Logger()}
}

// ResolveDay returns the status of loc on date. It never fails: missing or
// malformed data degrades to a closed or raw-text status.
func (r *Resolver) ResolveDay(
	date time.Time,
	loc model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
) model.DayStatus {
	day := model.DateOf(date)
	status := model.DayStatus{Date: day, Location: loc}

	if exc, ok := r.matchException(day, loc, exceptions); ok {
		return fromException(status, exc)
	}

	sched, ok := FindSchedule(schedules, loc, model.DayOfWeekOf(day.Weekday()))
	if !ok {
		status.IsClosed = true
		status.Source = model.SourceDefaultClosed
		status.Reason = reasonNoSchedule
		return status
	}
	return fromSchedule(status, sched)
}

// ResolveRange resolves days consecutive dates starting at from.
func (r *Resolver) ResolveRange(
	from time.Time,
	days int,
	loc model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
) []model.DayStatus {
	if days <= 0 {
		return nil
	}
	start := model.DateOf(from)
	out := make([]model.DayStatus, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, r.ResolveDay(start.AddDate(0, 0, i), loc, schedules, exceptions))
	}
	return out
}

// matchException returns the first exception covering day at loc.
// Several matches are a data anomaly; they are logged and left as is.
func (r *Resolver) matchException(day time.Time, loc model.Location, exceptions []model.ClosureException) (model.ClosureException, bool) {
	var (
		first   model.ClosureException
		matches int
	)
	for _, exc := range exceptions {
		if !exc.AppliesTo(day, loc) {
			continue
		}
		if matches == 0 {
			first = exc
		}
		matches++
	}
	if matches > 1 {
		r.logger.Warn().
			Str("date", day.Format(model.DateLayout)).
			Str("location", loc.String()).
			Int("matches", matches).
			Str("used_location", first.Location.String()).
			Msg("overlapping closure exceptions, using first in input order")
	}
	return first, matches > 0
}

// FindSchedule returns the effective weekly entry for (loc, day): the first
// one in input order.
func FindSchedule(schedules []model.WeeklySchedule, loc model.Location, day model.DayOfWeek) (model.WeeklySchedule, bool) {
	for _, s := range schedules {
		if s.Location == loc && s.DayOfWeek == day {
			return s, true
		}
	}
	return model.WeeklySchedule{}, false
}

func fromException(status model.DayStatus, exc model.ClosureException) model.DayStatus {
	status.IsException = true
	status.Source = model.SourceException

	if exc.ClosedAllDay {
		status.IsClosed = true
		status.Reason = orDefault(exc.Reason, reasonClosedForDay)
		return status
	}

	status.HasSpecialHours = true
	status.Open = clockOf(exc.OpenTime)
	status.Close = clockOf(exc.CloseTime)
	status.Message = orDefault(exc.Reason, messageModifiedHours)
	return status
}

func fromSchedule(status model.DayStatus, sched model.WeeklySchedule) model.DayStatus {
	status.Source = model.SourceSchedule

	if !sched.IsOpen {
		status.IsClosed = true
		status.Reason = orDefault(sched.Message, reasonRegularlyClosed)
		return status
	}

	status.Open = clockOf(sched.OpenTime)
	status.Close = clockOf(sched.EffectiveCloseTime())
	status.HasSpecialHours = strings.TrimSpace(sched.SpecialCloseTime) != ""
	status.Message = sched.Message
	return status
}

func clockOf(s string) *model.Clock {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	c := model.ParseClock(s)
	return &c
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
