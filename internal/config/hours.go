package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"isomero/internal/model"
)

// ErrUnknownLocation is returned for schedule entries naming an undeclared site.
var ErrUnknownLocation = errors.New("unknown location")

// LocationConfig describes one library site.
type LocationConfig struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// WeeklyConfig is one weekly schedule row.
type WeeklyConfig struct {
	Location     string `yaml:"location"`
	Day          string `yaml:"day"` // MONDAY..SUNDAY
	IsOpen       bool   `yaml:"is_open"`
	Open         string `yaml:"open"`                    // "08:00"
	Close        string `yaml:"close"`                   // "20:00"
	SpecialClose string `yaml:"special_close,omitempty"` // "15:00"
	Message      string `yaml:"message,omitempty"`
}

// ClosureConfig is one dated exception. Empty location means every site.
type ClosureConfig struct {
	Date         string `yaml:"date"` // "2026-12-25"
	Location     string `yaml:"location,omitempty"`
	ClosedAllDay bool   `yaml:"closed_all_day"`
	Open         string `yaml:"open,omitempty"`
	Close        string `yaml:"close,omitempty"`
	Reason       string `yaml:"reason,omitempty"`
}

// HoursConfig is the root of hours.yaml.
type HoursConfig struct {
	Locations      []LocationConfig `yaml:"locations"`
	Weekly         []WeeklyConfig   `yaml:"weekly"`
	Closures       []ClosureConfig  `yaml:"closures"`
	PublicHolidays bool             `yaml:"public_holidays"`
}

// LoadHours loads and validates hours.yaml.
func LoadHours(path string) (*HoursConfig, error) {
	if path == "" {
		path = "configs/hours.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hours config: %w", err)
	}

	var cfg HoursConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hours config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate hours config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *HoursConfig) Validate() error {
	known := make(map[model.Location]bool)
	for i, l := range c.Locations {
		loc, ok := model.ParseLocation(l.Code)
		if !ok {
			return fmt.Errorf("locations[%d]: code is required", i)
		}
		if known[loc] {
			return fmt.Errorf("locations[%d]: duplicate code %s", i, loc)
		}
		known[loc] = true
	}
	if len(known) == 0 {
		for _, loc := range model.DefaultLocations {
			known[loc] = true
		}
	}

	seen := make(map[string]bool)
	for i, w := range c.Weekly {
		prefix := fmt.Sprintf("weekly[%d]", i)
		loc, ok := model.ParseLocation(w.Location)
		if !ok {
			return fmt.Errorf("%s: location is required", prefix)
		}
		if !known[loc] {
			return fmt.Errorf("%s: %w %s", prefix, ErrUnknownLocation, loc)
		}
		day, err := model.ParseDayOfWeek(w.Day)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		key := string(loc) + "/" + string(day)
		if seen[key] {
			return fmt.Errorf("%s: duplicate schedule for %s on %s", prefix, loc, day)
		}
		seen[key] = true

		if !w.IsOpen {
			continue
		}
		open, closeAt, err := parseRange(prefix, w.Open, w.Close)
		if err != nil {
			return err
		}
		if w.SpecialClose != "" {
			special, err := parseHHMM(prefix+".special_close", w.SpecialClose)
			if err != nil {
				return err
			}
			if !special.After(open) || special.After(closeAt) {
				return fmt.Errorf("%s: special_close must be after open and not after close", prefix)
			}
		}
	}

	for i, cl := range c.Closures {
		prefix := fmt.Sprintf("closures[%d]", i)
		if cl.Date == "" {
			return fmt.Errorf("%s: date is required", prefix)
		}
		if _, err := time.Parse(model.DateLayout, cl.Date); err != nil {
			return fmt.Errorf("%s: invalid date format '%s', expected YYYY-MM-DD", prefix, cl.Date)
		}
		if loc, ok := model.ParseLocation(cl.Location); ok && !known[loc] {
			return fmt.Errorf("%s: %w %s", prefix, ErrUnknownLocation, loc)
		}
		if cl.ClosedAllDay {
			continue
		}
		if _, _, err := parseRange(prefix, cl.Open, cl.Close); err != nil {
			return err
		}
	}

	return nil
}

func parseRange(prefix, open, closeAt string) (time.Time, time.Time, error) {
	if open == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%s.open is required", prefix)
	}
	if closeAt == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%s.close is required", prefix)
	}
	o, err := parseHHMM(prefix+".open", open)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	c, err := parseHHMM(prefix+".close", closeAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !c.After(o) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: close must be after open", prefix)
	}
	return o, c, nil
}

func parseHHMM(field, s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid format '%s', expected HH:MM", field, s)
	}
	return t, nil
}

// LocationCodes returns the declared sites, or the built-in ones when none
// are declared.
func (c *HoursConfig) LocationCodes() []model.Location {
	if len(c.Locations) == 0 {
		return append([]model.Location(nil), model.DefaultLocations...)
	}
	out := make([]model.Location, 0, len(c.Locations))
	for _, l := range c.Locations {
		if loc, ok := model.ParseLocation(l.Code); ok {
			out = append(out, loc)
		}
	}
	return out
}

// LocationName returns the display name of loc, falling back to its code.
func (c *HoursConfig) LocationName(loc model.Location) string {
	for _, l := range c.Locations {
		if code, ok := model.ParseLocation(l.Code); ok && code == loc && l.Name != "" {
			return l.Name
		}
	}
	return loc.String()
}

// WeeklySchedules converts the weekly rows in file order.
func (c *HoursConfig) WeeklySchedules() []model.WeeklySchedule {
	out := make([]model.WeeklySchedule, 0, len(c.Weekly))
	for _, w := range c.Weekly {
		loc, _ := model.ParseLocation(w.Location)
		day, err := model.ParseDayOfWeek(w.Day)
		if err != nil {
			continue
		}
		out = append(out, model.WeeklySchedule{
			Location:         loc,
			DayOfWeek:        day,
			IsOpen:           w.IsOpen,
			OpenTime:         strings.TrimSpace(w.Open),
			CloseTime:        strings.TrimSpace(w.Close),
			SpecialCloseTime: strings.TrimSpace(w.SpecialClose),
			Message:          w.Message,
		})
	}
	return out
}

// ClosureExceptions returns the explicit closures dated within [from, to],
// followed by the public holidays of that window when enabled. Explicit
// entries come first, so they win over a holiday on the same date.
func (c *HoursConfig) ClosureExceptions(from, to time.Time, tz *time.Location) []model.ClosureException {
	return append(c.ExplicitClosures(from, to, tz), c.HolidayClosures(from, to, tz)...)
}

// ExplicitClosures returns the closures listed in the file, in file order.
func (c *HoursConfig) ExplicitClosures(from, to time.Time, tz *time.Location) []model.ClosureException {
	tz, inWindow := window(from, to, tz)

	var out []model.ClosureException
	for _, cl := range c.Closures {
		d, err := model.ParseDate(cl.Date, tz)
		if err != nil || !inWindow(d) {
			continue
		}
		loc, _ := model.ParseLocation(cl.Location)
		out = append(out, model.ClosureException{
			Date:         d,
			Location:     loc,
			ClosedAllDay: cl.ClosedAllDay,
			OpenTime:     strings.TrimSpace(cl.Open),
			CloseTime:    strings.TrimSpace(cl.Close),
			Reason:       cl.Reason,
		})
	}
	return out
}

// HolidayClosures returns global all-day closures for the public holidays
// within [from, to], or nothing when public holidays are disabled.
func (c *HoursConfig) HolidayClosures(from, to time.Time, tz *time.Location) []model.ClosureException {
	if !c.PublicHolidays {
		return nil
	}
	tz, inWindow := window(from, to, tz)

	var out []model.ClosureException
	for year := from.In(tz).Year(); year <= to.In(tz).Year(); year++ {
		for _, h := range PublicHolidays(year) {
			d := time.Date(h.Date.Year(), h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, tz)
			if !inWindow(d) {
				continue
			}
			out = append(out, model.ClosureException{Date: d, ClosedAllDay: true, Reason: h.Name})
		}
	}
	return out
}

func window(from, to time.Time, tz *time.Location) (*time.Location, func(time.Time) bool) {
	if tz == nil {
		tz = time.UTC
	}
	from, to = model.DateOf(from.In(tz)), model.DateOf(to.In(tz))
	return tz, func(d time.Time) bool {
		return !d.Before(from) && !d.After(to)
	}
}

// String returns a summary of the configuration.
func (c *HoursConfig) String() string {
	return fmt.Sprintf("HoursConfig: %d locations, %d weekly entries, %d closures, public holidays %v",
		len(c.LocationCodes()), len(c.Weekly), len(c.Closures), c.PublicHolidays)
}
