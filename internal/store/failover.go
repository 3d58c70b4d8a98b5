package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"isomero/internal/metrics"
)

// FailoverSource loads from primary and falls back to fallback while the
// primary is failing. The primary is retried after retryAfter.
type FailoverSource struct {
	primary    Source
	fallback   Source
	logger     *zerolog.Logger
	retryAfter time.Duration

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSource(primary, fallback Source, retryAfter time.Duration, logger *zerolog.Logger) *FailoverSource {
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	return &FailoverSource{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		retryAfter: retryAfter,
	}
}

func (f *FailoverSource) Name() string {
	return fmt.Sprintf("%s+%s", f.primary.Name(), f.fallback.Name())
}

func (f *FailoverSource) Load(ctx context.Context, from, to time.Time) (*Snapshot, error) {
	if f.shouldTryPrimary() {
		snap, err := f.primary.Load(ctx, from, to)
		if err == nil {
			if f.isDown.Swap(false) {
				f.logger.Info().Str("source", f.primary.Name()).Msg("Primary schedule source recovered")
			}
			return snap, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if !f.isDown.Swap(true) {
			metrics.IncFailover()
			f.logger.Warn().Err(err).
				Str("primary", f.primary.Name()).
				Str("fallback", f.fallback.Name()).
				Msg("Primary schedule source failed, switching to fallback")
		}
		f.mu.Lock()
		f.lastCheck = time.Now()
		f.mu.Unlock()
	}

	snap, err := f.fallback.Load(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fallback %s: %w", f.fallback.Name(), err)
	}
	return snap, nil
}

func (f *FailoverSource) shouldTryPrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.lastCheck) >= f.retryAfter
}
