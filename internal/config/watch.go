package config

import (
	"context"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"isomero/internal/events"
)

// Results carried in the "result" payload of hours_config.changed events.
const (
	HoursApplied  = "applied"
	HoursRejected = "rejected"
)

// HoursWatcher polls hours.yaml by modification time. Every edit is
// validated; valid ones replace the current config, invalid ones are
// reported and the previous config stays in effect. Both outcomes are
// published as events.TypeHoursConfigChanged.
type HoursWatcher struct {
	path     string
	interval time.Duration
	bus      *events.EventBus
	logger   zerolog.Logger

	current atomic.Pointer[HoursConfig]

	mu       sync.Mutex
	lastMod  time.Time
	onUpdate []func(*HoursConfig)
}

func NewHoursWatcher(path string, interval time.Duration, bus *events.EventBus, logger zerolog.Logger) *HoursWatcher {
	if path == "" {
		path = "configs/hours.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HoursWatcher{
		path:     path,
		interval: interval,
		bus:      bus,
		logger:   logger.With().Str("component", "hours_watcher").Str("path", path).Logger(),
	}
}

// OnUpdate registers fn to run with every applied config. Register before Start.
func (w *HoursWatcher) OnUpdate(fn func(*HoursConfig)) {
	w.mu.Lock()
	w.onUpdate = append(w.onUpdate, fn)
	w.mu.Unlock()
}

// Current returns the last valid config, or nil before the first load.
func (w *HoursWatcher) Current() *HoursConfig {
	return w.current.Load()
}

// Start loads the file once and then polls it until ctx is done.
// A failing initial load is returned and nothing is started.
func (w *HoursWatcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		w.publish(nil, err)
		return err
	}
	w.mu.Lock()
	w.lastMod = info.ModTime()
	w.mu.Unlock()

	if err := w.reload(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
	return nil
}

// poll reloads the file when its mtime moved forward.
func (w *HoursWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		return // transient, e.g. an editor replacing the file
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastMod)
	if changed {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()

	if changed {
		_ = w.reload()
	}
}

func (w *HoursWatcher) reload() error {
	cfg, err := LoadHours(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("Ignoring invalid hours config")
		w.publish(nil, err)
		return err
	}

	w.current.Store(cfg)
	w.logger.Info().Str("summary", cfg.String()).Msg("Hours config applied")

	w.mu.Lock()
	callbacks := make([]func(*HoursConfig), len(w.onUpdate))
	copy(callbacks, w.onUpdate)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}

	w.publish(cfg, nil)
	return nil
}

func (w *HoursWatcher) publish(cfg *HoursConfig, loadErr error) {
	payload := map[string]string{"path": w.path}
	if loadErr != nil {
		payload["result"] = HoursRejected
		payload["error"] = loadErr.Error()
	} else {
		payload["result"] = HoursApplied
		payload["locations"] = strconv.Itoa(len(cfg.LocationCodes()))
		payload["weekly"] = strconv.Itoa(len(cfg.Weekly))
		payload["closures"] = strconv.Itoa(len(cfg.Closures))
		payload["public_holidays"] = strconv.FormatBool(cfg.PublicHolidays)
	}

	if err := w.bus.Publish(events.Event{Type: events.TypeHoursConfigChanged, Payload: payload}); err != nil {
		w.logger.Warn().Err(err).Msg("Hours config subscribers failed")
	}
}
