package calendar

import (
	"fmt"
	"time"

	"isomero/internal/hours"
	"isomero/internal/model"
)

const (
	// GridDays is the fixed size of a month grid: 6 weeks of 7 days.
	GridDays = 42
	Weeks    = 6
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses "2026-10".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}

// AddMonths moves n months forward (or back for negative n).
func (ym YearMonth) AddMonths(n int) YearMonth {
	return MonthOf(time.Date(ym.Year, ym.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// MonthsUntil counts whole months from ym to other.
func (ym YearMonth) MonthsUntil(other YearMonth) int {
	return (other.Year-ym.Year)*12 + int(other.Month-ym.Month)
}

// First returns the first day of the month in loc.
func (ym YearMonth) First(loc *time.Location) time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, loc)
}

// GridRange returns the first and last dates shown on the month's grid.
func (ym YearMonth) GridRange(loc *time.Location) (time.Time, time.Time) {
	first := ym.First(loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	return start, start.AddDate(0, 0, GridDays-1)
}

// Bounds walks outward from current, at most maxOffset months each way, and
// returns the earliest and latest months whose whole grid passes covered.
// When even the current month fails, both bounds are current.
func Bounds(current YearMonth, maxOffset int, loc *time.Location, covered func(from, to time.Time) bool) (YearMonth, YearMonth) {
	ok := func(ym YearMonth) bool {
		from, to := ym.GridRange(loc)
		return covered(from, to)
	}
	lo, hi := current, current
	if !ok(current) {
		return lo, hi
	}
	for i := 1; i <= maxOffset && ok(current.AddMonths(-i)); i++ {
		lo = current.AddMonths(-i)
	}
	for i := 1; i <= maxOffset && ok(current.AddMonths(i)); i++ {
		hi = current.AddMonths(i)
	}
	return lo, hi
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Builder lays resolved days out on a Sunday-first month grid.
type Builder struct {
	resolver *hours.Resolver
}

// NewBuilder creates a builder backed by the shared resolver.
func NewBuilder(resolver *hours.Resolver) *Builder {
	return &Builder{resolver: resolver}
}

// BuildMonth returns exactly GridDays views. Cell 0 is the Sunday on or
// before the 1st; cells outside the month have IsCurrentMonth false.
// Dates are built in today's location, and IsToday compares against today.
func (b *Builder) BuildMonth(
	ym YearMonth,
	loc model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
	today time.Time,
) []model.DayView {
	start, _ := ym.GridRange(today.Location())

	views := make([]model.DayView, 0, GridDays)
	for i := 0; i < GridDays; i++ {
		day := start.AddDate(0, 0, i)
		views = append(views, model.DayView{
			DayStatus:      b.resolver.ResolveDay(day, loc, schedules, exceptions),
			IsCurrentMonth: day.Month() == ym.Month && day.Year() == ym.Year,
			IsToday:        model.SameDate(day, today),
		})
	}
	return views
}

// SplitWeeks splits a grid into rows of seven.
func SplitWeeks(views []model.DayView) [][]model.DayView {
	rows := make([][]model.DayView, 0, Weeks)
	for i := 0; i+7 <= len(views); i += 7 {
		rows = append(rows, views[i:i+7])
	}
	return rows
}
