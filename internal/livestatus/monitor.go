package livestatus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"isomero/internal/metrics"
	"isomero/internal/model"
	"isomero/internal/store"
)

// MonitorConfig holds configuration for the live status monitor.
type MonitorConfig struct {
	// CheckInterval is how often every tracked location is recomputed.
	CheckInterval time.Duration
	// Location is the wall-clock zone "now" is read in.
	Location *time.Location
}

// Monitor keeps the live status of each location current so readers and the
// location_open gauge don't need to recompute on every request.
type Monitor struct {
	config  MonitorConfig
	service *Service
	holder  *store.Holder
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	locations []model.Location
	statuses  map[model.Location]model.LiveStatus
	onChange  func(loc model.Location, status model.LiveStatus)
	running   bool
	stopCh    chan struct{}
	trigger   chan struct{}
}

func NewMonitor(config MonitorConfig, service *Service, holder *store.Holder, logger zerolog.Logger) *Monitor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 5 * time.Minute
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Monitor{
		config:   config,
		service:  service,
		holder:   holder,
		logger:   logger.With().Str("component", "livestatus").Logger(),
		now:      time.Now,
		statuses: make(map[model.Location]model.LiveStatus),
		stopCh:   make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}
}

// Track replaces the set of monitored locations.
func (m *Monitor) Track(locs ...model.Location) {
	m.mu.Lock()
	m.locations = append([]model.Location(nil), locs...)
	m.mu.Unlock()
}

// OnChange registers a callback fired when a location opens or closes.
func (m *Monitor) OnChange(fn func(loc model.Location, status model.LiveStatus)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// status returns the last computed status for loc.
func (m *Monitor) status(loc model.Location) (model.LiveStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.statuses[loc]
	return st, ok
}

// Trigger requests an immediate recompute. It never blocks.
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Start runs the monitor loop until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.logger.Info().Dur("interval", m.config.CheckInterval).Msg("Live status monitor started")

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Live status monitor stopped by context")
			return
		case <-m.stopCh:
			m.logger.Info().Msg("Live status monitor stopped")
			return
		case <-ticker.C:
			m.Refresh()
		case <-m.trigger:
			m.Refresh()
		}
	}
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.running {
		m.running = false
		close(m.stopCh)
	}
	m.mu.Unlock()
}

// Refresh recomputes every tracked location against the current snapshot.
func (m *Monitor) Refresh() {
	snap, err := m.holder.Current()
	if err != nil {
		m.logger.Debug().Err(err).Msg("Skipping live status refresh")
		return
	}
	now := m.now().In(m.config.Location)

	m.mu.RLock()
	locs := m.locations
	m.mu.RUnlock()
	if len(locs) == 0 {
		locs = snap.Locations
	}

	type change struct {
		loc    model.Location
		status model.LiveStatus
	}
	var changes []change

	m.mu.Lock()
	for _, loc := range locs {
		st := m.service.Compute(now, loc, snap.Schedules, snap.Exceptions)
		prev, seen := m.statuses[loc]
		m.statuses[loc] = st
		metrics.SetLocationOpen(loc.String(), st.IsOpen)
		if !seen || prev.IsOpen != st.IsOpen {
			changes = append(changes, change{loc, st})
		}
	}
	onChange := m.onChange
	m.mu.Unlock()

	for _, c := range changes {
		m.logger.Info().
			Str("location", c.loc.String()).
			Bool("open", c.status.IsOpen).
			Str("message", c.status.Message).
			Msg("Location status changed")
		if onChange != nil {
			onChange(c.loc, c.status)
		}
	}
}
