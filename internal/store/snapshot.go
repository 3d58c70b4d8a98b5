// Package store keeps the schedule data every read is resolved against.
// Readers take the current Snapshot once per request, so one answer never
// mixes rows from two loads.
package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"isomero/internal/model"
)

// ErrNoSnapshot is returned before the first successful load.
var ErrNoSnapshot = errors.New("no schedule snapshot loaded")

// Snapshot is an immutable view of weekly schedules and closure exceptions.
type Snapshot struct {
	Version    string
	Source     string
	Locations  []model.Location
	Schedules  []model.WeeklySchedule
	Exceptions []model.ClosureException
	From       time.Time
	To         time.Time
	LoadedAt   time.Time
}

// NewSnapshot copies the given rows into a new versioned snapshot.
func NewSnapshot(
	source string,
	locations []model.Location,
	schedules []model.WeeklySchedule,
	exceptions []model.ClosureException,
	from, to time.Time,
) *Snapshot {
	if len(locations) == 0 {
		locations = model.DefaultLocations
	}
	return &Snapshot{
		Version:    uuid.NewString(),
		Source:     source,
		Locations:  append([]model.Location(nil), locations...),
		Schedules:  append([]model.WeeklySchedule(nil), schedules...),
		Exceptions: append([]model.ClosureException(nil), exceptions...),
		From:       model.DateOf(from),
		To:         model.DateOf(to),
		LoadedAt:   time.Now(),
	}
}

func (s *Snapshot) HasLocation(loc model.Location) bool {
	for _, l := range s.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// Covers reports whether exceptions for date were part of the load window.
func (s *Snapshot) Covers(date time.Time) bool {
	d := model.DateOf(date.In(s.From.Location()))
	return !d.Before(s.From) && !d.After(s.To)
}

// CoversRange reports whether every date in [from, to] is covered.
func (s *Snapshot) CoversRange(from, to time.Time) bool {
	return s.Covers(from) && s.Covers(to)
}

// Window renders the loaded date range as "2026-08-14 to 2027-11-19".
func (s *Snapshot) Window() string {
	return s.From.Format(model.DateLayout) + " to " + s.To.Format(model.DateLayout)
}

// Source loads schedule data for the date window [from, to].
type Source interface {
	Name() string
	Load(ctx context.Context, from, to time.Time) (*Snapshot, error)
}

// Holder publishes the current snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot or ErrNoSnapshot.
func (h *Holder) Current() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Swap installs s and returns the snapshot it replaced.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}

// Ready reports whether a snapshot has been installed.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}
