package store

import (
	"context"
	"time"

	"isomero/internal/config"
)

// FileSource serves schedules straight from hours.yaml.
type FileSource struct {
	path string
	tz   *time.Location
}

func NewFileSource(path string, tz *time.Location) *FileSource {
	if tz == nil {
		tz = time.UTC
	}
	return &FileSource{path: path, tz: tz}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(ctx context.Context, from, to time.Time) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadHours(s.path)
	if err != nil {
		return nil, err
	}
	return FromHours(s.Name(), cfg, from.In(s.tz), to.In(s.tz), s.tz), nil
}

// FromHours builds a snapshot from an already validated hours config.
func FromHours(source string, cfg *config.HoursConfig, from, to time.Time, tz *time.Location) *Snapshot {
	return NewSnapshot(
		source,
		cfg.LocationCodes(),
		cfg.WeeklySchedules(),
		cfg.ClosureExceptions(from, to, tz),
		from, to,
	)
}
