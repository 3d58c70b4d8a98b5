package livestatus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomero/internal/hours"
	"isomero/internal/model"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

// 2026-10-19 is a Monday.
func mondayOpen() model.WeeklySchedule {
	return model.WeeklySchedule{
		Location:  model.LocationGishushu,
		DayOfWeek: model.Monday,
		IsOpen:    true,
		OpenTime:  "08:00",
		CloseTime: "20:00",
	}
}

func newTestService() *Service {
	return NewService(hours.NewResolver(zerolog.Nop()))
}

func TestCompute_SpecialCloseTime(t *testing.T) {
	svc := newTestService()
	sched := mondayOpen()
	sched.SpecialCloseTime = "15:00"

	st := svc.Compute(at(2026, 10, 19, 14, 0), model.LocationGishushu, []model.WeeklySchedule{sched}, nil)

	assert.True(t, st.IsOpen)
	require.NotNil(t, st.NextChange)
	assert.Equal(t, at(2026, 10, 19, 15, 0), *st.NextChange)
	assert.True(t, st.ClosingSoon(at(2026, 10, 19, 14, 0)))
}

func TestCompute_ClosedTodayNextOpenLater(t *testing.T) {
	svc := newTestService()
	// Thursday 2026-10-15 closed by schedule; Friday and Saturday have no entry;
	// Sunday 2026-10-18 opens at 09:00.
	schedules := []model.WeeklySchedule{
		{Location: model.LocationGishushu, DayOfWeek: model.Thursday, IsOpen: false, Message: "Closed for maintenance"},
		{Location: model.LocationGishushu, DayOfWeek: model.Sunday, IsOpen: true, OpenTime: "09:00", CloseTime: "17:00"},
	}

	st := svc.Compute(at(2026, 10, 15, 11, 0), model.LocationGishushu, schedules, nil)

	assert.False(t, st.IsOpen)
	assert.Equal(t, "Closed for maintenance", st.Message)
	require.NotNil(t, st.NextChange)
	assert.Equal(t, at(2026, 10, 18, 9, 0), *st.NextChange)
}

func TestCompute_BeforeOpening(t *testing.T) {
	svc := newTestService()

	st := svc.Compute(at(2026, 10, 19, 7, 15), model.LocationGishushu, []model.WeeklySchedule{mondayOpen()}, nil)

	assert.False(t, st.IsOpen)
	require.NotNil(t, st.NextChange)
	assert.Equal(t, at(2026, 10, 19, 8, 0), *st.NextChange)
	assert.True(t, st.OpeningSoon(at(2026, 10, 19, 7, 15)))
}

func TestCompute_OpenWindowBoundaries(t *testing.T) {
	svc := newTestService()
	schedules := []model.WeeklySchedule{mondayOpen()}

	atOpening := svc.Compute(at(2026, 10, 19, 8, 0), model.LocationGishushu, schedules, nil)
	assert.True(t, atOpening.IsOpen)
	require.NotNil(t, atOpening.NextChange)
	assert.Equal(t, at(2026, 10, 19, 20, 0), *atOpening.NextChange)

	// Only Mondays are open, so after closing the next change is a week later.
	atClosing := svc.Compute(at(2026, 10, 19, 20, 0), model.LocationGishushu, schedules, nil)
	assert.False(t, atClosing.IsOpen)
	require.NotNil(t, atClosing.NextChange)
	assert.Equal(t, at(2026, 10, 26, 8, 0), *atClosing.NextChange)
}

func TestCompute_ExceptionModifiedHours(t *testing.T) {
	svc := newTestService()
	exceptions := []model.ClosureException{{
		Date:      at(2026, 10, 19, 0, 0),
		OpenTime:  "12:00",
		CloseTime: "16:00",
		Reason:    "Exam invigilation",
	}}

	st := svc.Compute(at(2026, 10, 19, 10, 0), model.LocationGishushu, []model.WeeklySchedule{mondayOpen()}, exceptions)
	assert.False(t, st.IsOpen)
	assert.Equal(t, "Exam invigilation", st.Message)
	assert.Equal(t, at(2026, 10, 19, 12, 0), *st.NextChange)

	st = svc.Compute(at(2026, 10, 19, 13, 0), model.LocationGishushu, []model.WeeklySchedule{mondayOpen()}, exceptions)
	assert.True(t, st.IsOpen)
	assert.Equal(t, at(2026, 10, 19, 16, 0), *st.NextChange)
}

func TestCompute_NextOpeningSkipsExceptions(t *testing.T) {
	svc := newTestService()
	exceptions := []model.ClosureException{
		{Date: at(2026, 10, 26, 0, 0), ClosedAllDay: true, Reason: "Public Holiday"},
	}

	st := svc.Compute(at(2026, 10, 19, 21, 0), model.LocationGishushu, []model.WeeklySchedule{mondayOpen()}, exceptions)
	assert.False(t, st.IsOpen)
	require.NotNil(t, st.NextChange)
	assert.Equal(t, at(2026, 11, 2, 8, 0), *st.NextChange)
}

func TestCompute_NoOpeningWithinScanWindow(t *testing.T) {
	svc := newTestService()

	st := svc.Compute(at(2026, 10, 19, 9, 0), model.LocationMasoro, []model.WeeklySchedule{mondayOpen()}, nil)
	assert.False(t, st.IsOpen)
	assert.Equal(t, "No schedule defined", st.Message)
	assert.Nil(t, st.NextChange)
}

func TestCompute_UnparseableTimesFallBackToFlags(t *testing.T) {
	svc := newTestService()
	sched := mondayOpen()
	sched.OpenTime = "morning"
	sched.CloseTime = "evening"

	st := svc.Compute(at(2026, 10, 19, 3, 0), model.LocationGishushu, []model.WeeklySchedule{sched}, nil)
	assert.True(t, st.IsOpen)
	assert.Nil(t, st.NextChange)

	sched.CloseTime = "20:00"
	st = svc.Compute(at(2026, 10, 19, 21, 0), model.LocationGishushu, []model.WeeklySchedule{sched}, nil)
	assert.False(t, st.IsOpen)
}

func TestCompute_MatchesResolverForToday(t *testing.T) {
	resolver := hours.NewResolver(zerolog.Nop())
	svc := NewService(resolver)
	schedules := []model.WeeklySchedule{mondayOpen()}
	exceptions := []model.ClosureException{{Date: at(2026, 10, 19, 0, 0), ClosedAllDay: true, Reason: "Public Holiday"}}

	now := at(2026, 10, 19, 12, 0)
	day := resolver.ResolveDay(now, model.LocationGishushu, schedules, exceptions)
	live := svc.Compute(now, model.LocationGishushu, schedules, exceptions)

	assert.True(t, day.IsClosed)
	assert.False(t, live.IsOpen)
	assert.Equal(t, day.Reason, live.Message)
}
