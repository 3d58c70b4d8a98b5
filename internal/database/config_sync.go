package database

import (
	"context"
	"fmt"
	"time"

	"isomero/internal/config"
	"isomero/internal/model"
	"isomero/internal/store"
)

// SyncHoursFromConfig makes the database mirror hours.yaml in one
// transaction: locations and weekly schedules are replaced outright, and the
// closures dated within [from, to] are replaced by the file's explicit
// closures followed by the public holidays that do not collide with them.
// Closures outside the window are left untouched.
func (db *DB) SyncHoursFromConfig(ctx context.Context, cfg *config.HoursConfig, from, to time.Time) error {
	if cfg == nil {
		return nil
	}
	from, to = model.DateOf(from.In(db.tz)), model.DateOf(to.In(db.tz))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hours sync: %w", err)
	}
	defer tx.Rollback()

	cleanup := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM weekly_schedules`, nil},
		{`DELETE FROM locations`, nil},
		{`DELETE FROM closure_exceptions WHERE date BETWEEN ? AND ?`,
			[]any{from.Format(model.DateLayout), to.Format(model.DateLayout)}},
	}
	for _, c := range cleanup {
		if _, err := tx.ExecContext(ctx, c.query, c.args...); err != nil {
			return fmt.Errorf("clear before hours sync: %w", err)
		}
	}

	for _, code := range cfg.LocationCodes() {
		address := ""
		for _, l := range cfg.Locations {
			if loc, ok := model.ParseLocation(l.Code); ok && loc == code {
				address = l.Address
			}
		}
		if err := upsertLocation(ctx, tx, code, cfg.LocationName(code), address); err != nil {
			return err
		}
	}

	schedules := cfg.WeeklySchedules()
	for _, s := range schedules {
		if err := upsertWeeklySchedule(ctx, tx, s); err != nil {
			return err
		}
	}

	explicit := cfg.ExplicitClosures(from, to, db.tz)
	for _, e := range explicit {
		if err := upsertClosureException(ctx, tx, e); err != nil {
			return err
		}
	}

	holidays, shadowed := 0, 0
	for _, e := range cfg.HolidayClosures(from, to, db.tz) {
		inserted, err := insertHolidayClosure(ctx, tx, e)
		if err != nil {
			return err
		}
		if inserted {
			holidays++
		} else {
			shadowed++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hours sync: %w", err)
	}

	db.logger.Info().
		Int("schedules", len(schedules)).
		Int("closures", len(explicit)).
		Int("holidays", holidays).
		Int("holidays_shadowed", shadowed).
		Str("from", from.Format(model.DateLayout)).
		Str("to", to.Format(model.DateLayout)).
		Msg("Synced hours config into database")
	return nil
}

// SeededSource loads snapshots from the database after syncing the latest
// hours.yaml for the requested window, so closures that slide into the
// window and closures removed from the file are reflected on every reload.
type SeededSource struct {
	db    *DB
	hours func() *config.HoursConfig
}

// NewSeededSource wraps db. hours returns the latest valid hours.yaml, or nil
// when none has been loaded, in which case the stored rows are served as is.
func NewSeededSource(db *DB, hours func() *config.HoursConfig) *SeededSource {
	return &SeededSource{db: db, hours: hours}
}

func (s *SeededSource) Name() string { return SourceName }

func (s *SeededSource) Load(ctx context.Context, from, to time.Time) (*store.Snapshot, error) {
	if cfg := s.hours(); cfg != nil {
		if err := s.db.SyncHoursFromConfig(ctx, cfg, from, to); err != nil {
			s.db.logger.Error().Err(err).Msg("Failed to sync hours config, serving stored rows")
		}
	}
	return s.db.Load(ctx, from, to)
}
