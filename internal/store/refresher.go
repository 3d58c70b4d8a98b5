package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"isomero/internal/events"
	"isomero/internal/metrics"
)

// RefresherConfig controls the load window and reload cadence.
type RefresherConfig struct {
	PastDays   int
	FutureDays int
	Interval   time.Duration
	Location   *time.Location
}

// Refresher loads snapshots from a Source and swaps them into a Holder.
// A failed load keeps the previous snapshot in service.
type Refresher struct {
	source Source
	holder *Holder
	bus    *events.EventBus
	cfg    RefresherConfig
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	trigger chan struct{}
}

func NewRefresher(source Source, holder *Holder, bus *events.EventBus, cfg RefresherConfig, logger zerolog.Logger) *Refresher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Refresher{
		source:  source,
		holder:  holder,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With().Str("component", "store").Logger(),
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// Window returns the date range loaded for exceptions around today.
func (r *Refresher) Window() (time.Time, time.Time) {
	today := r.now().In(r.cfg.Location)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, r.cfg.Location)
	return today.AddDate(0, 0, -r.cfg.PastDays), today.AddDate(0, 0, r.cfg.FutureDays)
}

// Refresh performs one load and swaps the result in on success.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, to := r.Window()
	snap, err := r.source.Load(ctx, from, to)
	if err != nil {
		metrics.IncSnapshotReload(r.source.Name(), "error")
		r.logger.Error().Err(err).Str("source", r.source.Name()).Msg("Failed to load schedule snapshot")
		return err
	}

	prev := r.holder.Swap(snap)
	metrics.IncSnapshotReload(r.source.Name(), "ok")
	metrics.SetSnapshot(float64(snap.LoadedAt.Unix()), len(snap.Schedules), len(snap.Exceptions))

	event := r.logger.Info().
		Str("source", snap.Source).
		Str("version", snap.Version).
		Int("schedules", len(snap.Schedules)).
		Int("exceptions", len(snap.Exceptions))
	if prev != nil {
		event = event.Str("previous", prev.Version)
	}
	event.Msg("Schedule snapshot loaded")

	if err := r.bus.Publish(events.Event{
		Type: events.TypeSnapshotReloaded,
		Payload: map[string]string{
			"version":    snap.Version,
			"source":     snap.Source,
			"schedules":  strconv.Itoa(len(snap.Schedules)),
			"exceptions": strconv.Itoa(len(snap.Exceptions)),
		},
	}); err != nil {
		r.logger.Warn().Err(err).Msg("Snapshot reload subscribers failed")
	}
	return nil
}

// Trigger requests an out-of-band reload from Run. It never blocks.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run reloads on every tick and on Trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
		_ = r.Refresh(ctx)
	}
}
