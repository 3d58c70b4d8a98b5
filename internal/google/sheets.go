package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"isomero/internal/model"
	"isomero/internal/store"
)

const SourceName = "sheets"

// Default A1 ranges, header row included.
const (
	DefaultSchedulesRange  = "Weekly!A1:G"
	DefaultExceptionsRange = "Closures!A1:F"
)

// rangeFetcher reads several ranges in one call.
type rangeFetcher interface {
	BatchGet(ctx context.Context, spreadsheetID string, ranges ...string) ([][][]interface{}, error)
}

type apiFetcher struct {
	service *sheets.Service
}

func (f apiFetcher) BatchGet(ctx context.Context, spreadsheetID string, ranges ...string) ([][][]interface{}, error) {
	resp, err := f.service.Spreadsheets.Values.BatchGet(spreadsheetID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][][]interface{}, len(resp.ValueRanges))
	for i, vr := range resp.ValueRanges {
		out[i] = vr.Values
	}
	return out, nil
}

// SheetsSource loads weekly schedules and closures maintained by staff in a
// Google spreadsheet.
//
// Weekly columns: location, day, is_open, open, close, special_close, message.
// Closure columns: date, location, closed_all_day, open, close, reason.
type SheetsSource struct {
	fetcher         rangeFetcher
	spreadsheetID   string
	schedulesRange  string
	exceptionsRange string
	tz              *time.Location
	logger          zerolog.Logger
}

type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	SchedulesRange  string
	ExceptionsRange string
	Location        *time.Location
}

func NewSheetsSource(ctx context.Context, cfg SheetsConfig, logger zerolog.Logger) (*SheetsSource, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	creds, err := googleoauth.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return newSheetsSource(apiFetcher{service: srv}, cfg, logger), nil
}

func newSheetsSource(fetcher rangeFetcher, cfg SheetsConfig, logger zerolog.Logger) *SheetsSource {
	if cfg.SchedulesRange == "" {
		cfg.SchedulesRange = DefaultSchedulesRange
	}
	if cfg.ExceptionsRange == "" {
		cfg.ExceptionsRange = DefaultExceptionsRange
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SheetsSource{
		fetcher:         fetcher,
		spreadsheetID:   cfg.SpreadsheetID,
		schedulesRange:  cfg.SchedulesRange,
		exceptionsRange: cfg.ExceptionsRange,
		tz:              cfg.Location,
		logger:          logger.With().Str("component", "sheets").Logger(),
	}
}

func (s *SheetsSource) Name() string { return SourceName }

func (s *SheetsSource) Load(ctx context.Context, from, to time.Time) (*store.Snapshot, error) {
	ranges, err := s.fetcher.BatchGet(ctx, s.spreadsheetID, s.schedulesRange, s.exceptionsRange)
	if err != nil {
		return nil, fmt.Errorf("unable to read spreadsheet: %w", err)
	}
	if len(ranges) != 2 {
		return nil, fmt.Errorf("unexpected number of ranges: %d", len(ranges))
	}

	from, to = model.DateOf(from.In(s.tz)), model.DateOf(to.In(s.tz))

	var (
		schedules  []model.WeeklySchedule
		exceptions []model.ClosureException
		locations  []model.Location
		seen       = make(map[model.Location]bool)
	)
	addLocation := func(loc model.Location) {
		if loc != "" && !seen[loc] {
			seen[loc] = true
			locations = append(locations, loc)
		}
	}

	for i, row := range ranges[0] {
		if i == 0 && isHeader(row) {
			continue
		}
		sched, err := scheduleFromRow(row)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+1).Msg("Skipping weekly schedule row")
			continue
		}
		addLocation(sched.Location)
		schedules = append(schedules, sched)
	}

	for i, row := range ranges[1] {
		if i == 0 && isHeader(row) {
			continue
		}
		exc, err := exceptionFromRow(row, s.tz)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+1).Msg("Skipping closure row")
			continue
		}
		if exc.Date.Before(from) || exc.Date.After(to) {
			continue
		}
		addLocation(exc.Location)
		exceptions = append(exceptions, exc)
	}

	for _, loc := range model.DefaultLocations {
		addLocation(loc)
	}

	return store.NewSnapshot(SourceName, locations, schedules, exceptions, from, to), nil
}

func scheduleFromRow(row []interface{}) (model.WeeklySchedule, error) {
	loc, ok := model.ParseLocation(cell(row, 0))
	if !ok {
		return model.WeeklySchedule{}, fmt.Errorf("location is empty")
	}
	day, err := model.ParseDayOfWeek(cell(row, 1))
	if err != nil {
		return model.WeeklySchedule{}, err
	}
	return model.WeeklySchedule{
		Location:         loc,
		DayOfWeek:        day,
		IsOpen:           parseBool(cell(row, 2)),
		OpenTime:         cell(row, 3),
		CloseTime:        cell(row, 4),
		SpecialCloseTime: cell(row, 5),
		Message:          cell(row, 6),
	}, nil
}

func exceptionFromRow(row []interface{}, tz *time.Location) (model.ClosureException, error) {
	date, err := model.ParseDate(cell(row, 0), tz)
	if err != nil {
		return model.ClosureException{}, fmt.Errorf("invalid date %q", cell(row, 0))
	}
	loc, _ := model.ParseLocation(cell(row, 1))
	exc := model.ClosureException{
		Date:         date,
		Location:     loc,
		ClosedAllDay: parseBool(cell(row, 2)),
		OpenTime:     cell(row, 3),
		CloseTime:    cell(row, 4),
		Reason:       cell(row, 5),
	}
	if err := exc.Validate(); err != nil {
		return model.ClosureException{}, fmt.Errorf("%s: %w", cell(row, 0), err)
	}
	return exc, nil
}

func isHeader(row []interface{}) bool {
	first := strings.ToLower(cell(row, 0))
	return first == "location" || first == "date"
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "x", "✓":
		return true
	default:
		return false
	}
}
