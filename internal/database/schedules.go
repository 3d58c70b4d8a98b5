package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"isomero/internal/model"
	"isomero/internal/store"
)

// SourceName identifies snapshots loaded from sqlite.
const SourceName = "sqlite"

// queryer and execer are satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// listLocations returns the stored location codes in code order.
func listLocations(ctx context.Context, q queryer) ([]model.Location, error) {
	rows, err := q.QueryContext(ctx, `SELECT code FROM locations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, model.Location(code))
	}
	return out, rows.Err()
}

// listWeeklySchedules returns every weekly schedule row in insertion order.
func (db *DB) listWeeklySchedules(ctx context.Context, q queryer) ([]model.WeeklySchedule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, location, day_of_week, is_open, open_time, close_time,
		       special_close_time, message, updated_at
		FROM weekly_schedules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query weekly schedules: %w", err)
	}
	defer rows.Close()

	var out []model.WeeklySchedule
	for rows.Next() {
		var (
			s       model.WeeklySchedule
			loc     string
			iso     int
			updated sql.NullTime
		)
		if err := rows.Scan(&s.ID, &loc, &iso, &s.IsOpen, &s.OpenTime, &s.CloseTime,
			&s.SpecialCloseTime, &s.Message, &updated); err != nil {
			return nil, err
		}
		day, err := model.DayOfWeekFromISO(iso)
		if err != nil {
			db.logger.Warn().Int64("id", s.ID).Int("day_of_week", iso).Msg("Skipping schedule with invalid weekday")
			continue
		}
		s.Location = model.Location(loc)
		s.DayOfWeek = day
		s.UpdatedAt = updated.Time
		out = append(out, s)
	}
	return out, rows.Err()
}

// listClosureExceptions returns closures dated within [from, to] ordered by
// date, then by insertion order. Rows that break the closure rules are skipped.
func (db *DB) listClosureExceptions(ctx context.Context, q queryer, from, to time.Time) ([]model.ClosureException, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, date, location, closed_all_day, open_time, close_time, reason, updated_at
		FROM closure_exceptions
		WHERE date BETWEEN ? AND ?
		ORDER BY date, id`,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query closure exceptions: %w", err)
	}
	defer rows.Close()

	var out []model.ClosureException
	for rows.Next() {
		var (
			e       model.ClosureException
			date    string
			loc     string
			updated sql.NullTime
		)
		if err := rows.Scan(&e.ID, &date, &loc, &e.ClosedAllDay, &e.OpenTime, &e.CloseTime,
			&e.Reason, &updated); err != nil {
			return nil, err
		}
		d, err := model.ParseDate(date, db.tz)
		if err != nil {
			db.logger.Warn().Int64("id", e.ID).Str("date", date).Msg("Skipping closure with invalid date")
			continue
		}
		e.Date = d
		e.Location = model.Location(loc)
		e.UpdatedAt = updated.Time
		if err := e.Validate(); err != nil {
			db.logger.Warn().Err(err).Int64("id", e.ID).Str("date", date).Msg("Skipping invalid closure")
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) Name() string { return SourceName }

// Load reads one consistent snapshot inside a read transaction.
func (db *DB) Load(ctx context.Context, from, to time.Time) (*store.Snapshot, error) {
	from, to = from.In(db.tz), to.In(db.tz)

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	locations, err := listLocations(ctx, tx)
	if err != nil {
		return nil, err
	}
	schedules, err := db.listWeeklySchedules(ctx, tx)
	if err != nil {
		return nil, err
	}
	exceptions, err := db.listClosureExceptions(ctx, tx, from, to)
	if err != nil {
		return nil, err
	}
	return store.NewSnapshot(SourceName, locations, schedules, exceptions, from, to), nil
}

// upsertLocation creates or renames a location.
func upsertLocation(ctx context.Context, x execer, code model.Location, name, address string) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO locations (code, name, address) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name, address = excluded.address`,
		string(code), name, address)
	return err
}

// upsertWeeklySchedule replaces the schedule for (location, day_of_week).
func upsertWeeklySchedule(ctx context.Context, x execer, s model.WeeklySchedule) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO weekly_schedules
			(location, day_of_week, is_open, open_time, close_time, special_close_time, message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(location, day_of_week) DO UPDATE SET
			is_open = excluded.is_open,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			special_close_time = excluded.special_close_time,
			message = excluded.message,
			updated_at = CURRENT_TIMESTAMP`,
		string(s.Location), s.DayOfWeek.ISO(), s.IsOpen, s.OpenTime, s.CloseTime, s.SpecialCloseTime, s.Message)
	if err != nil {
		return fmt.Errorf("upsert weekly schedule %s/%s: %w", s.Location, s.DayOfWeek, err)
	}
	return nil
}

// upsertClosureException replaces the closure for (date, location).
func upsertClosureException(ctx context.Context, x execer, e model.ClosureException) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("closure %s: %w", e.Date.Format(model.DateLayout), err)
	}
	_, err := x.ExecContext(ctx, `
		INSERT INTO closure_exceptions
			(date, location, closed_all_day, open_time, close_time, reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date, location) DO UPDATE SET
			closed_all_day = excluded.closed_all_day,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			reason = excluded.reason,
			updated_at = CURRENT_TIMESTAMP`,
		e.Date.Format(model.DateLayout), string(e.Location), e.ClosedAllDay, e.OpenTime, e.CloseTime, e.Reason)
	if err != nil {
		return fmt.Errorf("upsert closure %s: %w", e.Date.Format(model.DateLayout), err)
	}
	return nil
}

// insertHolidayClosure adds a generated holiday unless a closure for the same
// (date, location) is already stored.
func insertHolidayClosure(ctx context.Context, x execer, e model.ClosureException) (bool, error) {
	res, err := x.ExecContext(ctx, `
		INSERT INTO closure_exceptions
			(date, location, closed_all_day, open_time, close_time, reason, updated_at)
		VALUES (?, ?, 1, '', '', ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date, location) DO NOTHING`,
		e.Date.Format(model.DateLayout), string(e.Location), e.Reason)
	if err != nil {
		return false, fmt.Errorf("insert holiday %s: %w", e.Date.Format(model.DateLayout), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
