package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"isomero/internal/hours"
	"isomero/internal/model"
	"isomero/internal/store"
)

// scheduleFlags are shared by every command that reads hours.yaml.
type scheduleFlags struct {
	hoursPath string
	location  string
	timezone  string
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hoursPath, "hours", "configs/hours.yaml", "Path to hours.yaml")
	cmd.Flags().StringVarP(&f.location, "location", "l", string(model.LocationGishushu), "Library location code")
	cmd.Flags().StringVar(&f.timezone, "tz", "Africa/Kigali", "Timezone dates are interpreted in")
}

func (f *scheduleFlags) tz() (*time.Location, error) {
	loc, err := time.LoadLocation(f.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", f.timezone, err)
	}
	return loc, nil
}

// load reads hours.yaml for the window [from, to] and checks the location.
func (f *scheduleFlags) load(cmd *cobra.Command, from, to time.Time) (*store.Snapshot, model.Location, *hours.Resolver, error) {
	tz, err := f.tz()
	if err != nil {
		return nil, "", nil, err
	}
	snap, err := store.NewFileSource(f.hoursPath, tz).Load(context.Background(), from, to)
	if err != nil {
		return nil, "", nil, err
	}
	loc, ok := model.ParseLocation(f.location)
	if !ok || !snap.HasLocation(loc) {
		return nil, "", nil, fmt.Errorf("unknown location %q", f.location)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: color.NoColor}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()
	return snap, loc, hours.NewResolver(logger), nil
}

var (
	openColor    = color.New(color.FgGreen)
	closedColor  = color.New(color.FgRed)
	specialColor = color.New(color.FgYellow)
	todayColor   = color.New(color.Bold, color.Underline)
	dimColor     = color.New(color.Faint)
)
