package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomero/internal/events"
	"isomero/internal/model"
)

const sampleHours = `
locations:
  - code: GISHUSHU
    name: Gishushu Main Library
  - code: MASORO
    name: Masoro Campus Library
weekly:
  - location: GISHUSHU
    day: MONDAY
    is_open: true
    open: "08:00"
    close: "20:00"
  - location: GISHUSHU
    day: FRIDAY
    is_open: true
    open: "08:00"
    close: "20:00"
    special_close: "15:00"
    message: Early close on Fridays
  - location: MASORO
    day: SUNDAY
    is_open: false
closures:
  - date: "2026-12-25"
    closed_all_day: true
    reason: Christmas (library)
  - date: "2026-10-21"
    location: MASORO
    open: "10:00"
    close: "14:00"
    reason: Staff training
public_holidays: true
`

func TestLoadHours(t *testing.T) {
	cfg, err := LoadHours(writeFile(t, "hours.yaml", sampleHours))
	require.NoError(t, err)

	assert.Equal(t, []model.Location{model.LocationGishushu, model.LocationMasoro}, cfg.LocationCodes())
	assert.Equal(t, "Masoro Campus Library", cfg.LocationName(model.LocationMasoro))

	schedules := cfg.WeeklySchedules()
	require.Len(t, schedules, 3)
	assert.Equal(t, model.Friday, schedules[1].DayOfWeek)
	assert.Equal(t, "15:00", schedules[1].SpecialCloseTime)
	assert.Equal(t, "Early close on Fridays", schedules[1].Message)
	assert.False(t, schedules[2].IsOpen)
}

func TestHoursConfig_ClosureExceptions(t *testing.T) {
	cfg, err := LoadHours(writeFile(t, "hours.yaml", sampleHours))
	require.NoError(t, err)

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	got := cfg.ClosureExceptions(from, to, time.UTC)

	// Two explicit closures first, then Dec 25 and Dec 26 holidays.
	require.Len(t, got, 4)
	assert.Equal(t, "Christmas (library)", got[0].Reason)
	assert.True(t, got[0].IsGlobal())
	assert.Equal(t, model.LocationMasoro, got[1].Location)
	assert.Equal(t, "10:00", got[1].OpenTime)
	assert.Equal(t, "Christmas Day", got[2].Reason)
	assert.True(t, got[2].ClosedAllDay)
	assert.Equal(t, "Boxing Day", got[3].Reason)
}

func TestHoursConfig_ClosureExceptionsWindow(t *testing.T) {
	cfg, err := LoadHours(writeFile(t, "hours.yaml", sampleHours))
	require.NoError(t, err)
	cfg.PublicHolidays = false

	day := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
	got := cfg.ClosureExceptions(day, day, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, "Staff training", got[0].Reason)

	assert.Empty(t, cfg.ClosureExceptions(day.AddDate(0, 0, 1), day.AddDate(0, 0, 30), time.UTC))
}

func TestHoursConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  HoursConfig
		want string
	}{
		{
			name: "unknown location",
			cfg:  HoursConfig{Weekly: []WeeklyConfig{{Location: "KACYIRU", Day: "MONDAY"}}},
			want: "unknown location",
		},
		{
			name: "bad day",
			cfg:  HoursConfig{Weekly: []WeeklyConfig{{Location: "GISHUSHU", Day: "FUNDAY"}}},
			want: "weekly[0]",
		},
		{
			name: "duplicate day",
			cfg: HoursConfig{Weekly: []WeeklyConfig{
				{Location: "GISHUSHU", Day: "MONDAY"},
				{Location: "gishushu", Day: "monday"},
			}},
			want: "duplicate schedule",
		},
		{
			name: "close before open",
			cfg:  HoursConfig{Weekly: []WeeklyConfig{{Location: "GISHUSHU", Day: "MONDAY", IsOpen: true, Open: "18:00", Close: "08:00"}}},
			want: "close must be after open",
		},
		{
			name: "bad time format",
			cfg:  HoursConfig{Weekly: []WeeklyConfig{{Location: "GISHUSHU", Day: "MONDAY", IsOpen: true, Open: "8am", Close: "20:00"}}},
			want: "expected HH:MM",
		},
		{
			name: "special close outside hours",
			cfg: HoursConfig{Weekly: []WeeklyConfig{{
				Location: "GISHUSHU", Day: "MONDAY", IsOpen: true, Open: "08:00", Close: "20:00", SpecialClose: "21:00",
			}}},
			want: "special_close",
		},
		{
			name: "bad closure date",
			cfg:  HoursConfig{Closures: []ClosureConfig{{Date: "25/12/2026", ClosedAllDay: true}}},
			want: "expected YYYY-MM-DD",
		},
		{
			name: "partial closure without hours",
			cfg:  HoursConfig{Closures: []ClosureConfig{{Date: "2026-12-24"}}},
			want: "open is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHoursConfig_ValidateUnknownLocationIsSentinel(t *testing.T) {
	cfg := HoursConfig{Closures: []ClosureConfig{{Date: "2026-12-24", Location: "NYARUGENGE", ClosedAllDay: true}}}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownLocation)
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) all() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Event(nil), l.events...)
}

func touch(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestHoursWatcher_PublishesValidationResult(t *testing.T) {
	path := writeFile(t, "hours.yaml", sampleHours)
	bus := events.NewEventBus()
	log := &eventLog{}
	bus.Subscribe(events.TypeHoursConfigChanged, log.record)

	w := NewHoursWatcher(path, time.Hour, bus, zerolog.Nop())
	var updates []*HoursConfig
	w.OnUpdate(func(c *HoursConfig) { updates = append(updates, c) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.Len(t, updates, 1)
	first := w.Current()
	require.NotNil(t, first)

	got := log.all()
	require.Len(t, got, 1)
	assert.Equal(t, HoursApplied, got[0].Payload["result"])
	assert.Equal(t, path, got[0].Payload["path"])
	assert.Equal(t, "2", got[0].Payload["locations"])
	assert.Equal(t, "3", got[0].Payload["weekly"])
	assert.Equal(t, "2", got[0].Payload["closures"])
	assert.Equal(t, "true", got[0].Payload["public_holidays"])

	// An invalid edit is rejected and the previous config stays current.
	base := time.Now().Add(time.Minute)
	touch(t, path, "weekly: [{location: NOWHERE, day: MONDAY}]", base)
	w.poll()

	got = log.all()
	require.Len(t, got, 2)
	assert.Equal(t, HoursRejected, got[1].Payload["result"])
	assert.Contains(t, got[1].Payload["error"], "unknown location")
	assert.Same(t, first, w.Current())
	assert.Len(t, updates, 1)

	// Unchanged mtime is not reloaded.
	w.poll()
	assert.Len(t, log.all(), 2)

	touch(t, path, sampleHours+"\n", base.Add(time.Minute))
	w.poll()

	got = log.all()
	require.Len(t, got, 3)
	assert.Equal(t, HoursApplied, got[2].Payload["result"])
	assert.NotSame(t, first, w.Current())
	assert.Len(t, updates, 2)
}

func TestHoursWatcher_PollsInBackground(t *testing.T) {
	path := writeFile(t, "hours.yaml", sampleHours)
	bus := events.NewEventBus()
	log := &eventLog{}
	bus.Subscribe(events.TypeHoursConfigChanged, log.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewHoursWatcher(path, 10*time.Millisecond, bus, zerolog.Nop())
	require.NoError(t, w.Start(ctx))

	touch(t, path, sampleHours+"\n", time.Now().Add(time.Minute))
	assert.Eventually(t, func() bool {
		return len(log.all()) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHoursWatcher_InitialLoadError(t *testing.T) {
	bus := events.NewEventBus()
	log := &eventLog{}
	bus.Subscribe(events.TypeHoursConfigChanged, log.record)

	w := NewHoursWatcher(writeFile(t, "hours.yaml", "weekly: ["), time.Second, bus, zerolog.Nop())
	assert.Error(t, w.Start(context.Background()))
	assert.Nil(t, w.Current())

	got := log.all()
	require.Len(t, got, 1)
	assert.Equal(t, HoursRejected, got[0].Payload["result"])

	missing := NewHoursWatcher(filepath.Join(t.TempDir(), "missing.yaml"), time.Second, nil, zerolog.Nop())
	assert.ErrorIs(t, missing.Start(context.Background()), os.ErrNotExist)
}
