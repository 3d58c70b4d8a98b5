package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"isomero/internal/model"
)

// DayCmd returns the day command
func DayCmd() *cobra.Command {
	var (
		flags scheduleFlags
		date  string
		days  int
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show resolved opening hours for a date",
		Long: `Resolve the opening hours of one location for a date (today by default),
applying closure exceptions before the weekly schedule.

Examples:
  isomeroctl day --date 2026-12-25
  isomeroctl day -l MASORO --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tz, err := flags.tz()
			if err != nil {
				return err
			}
			start := time.Now().In(tz)
			if date != "" {
				start, err = model.ParseDate(date, tz)
				if err != nil {
					return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
				}
			}
			if days < 1 {
				days = 1
			}

			snap, loc, resolver, err := flags.load(cmd, start, start.AddDate(0, 0, days))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, st := range resolver.ResolveRange(start, days, loc, snap.Schedules, snap.Exceptions) {
				fmt.Fprintf(out, "%s  %-9s  %s\n", st.Date.Format(model.DateLayout), st.Date.Weekday(), dayLine(st))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date to resolve (YYYY-MM-DD), default today")
	cmd.Flags().IntVarP(&days, "days", "n", 1, "Number of consecutive days to show")

	return cmd
}

func dayLine(st model.DayStatus) string {
	var line string
	switch {
	case st.IsClosed:
		line = closedColor.Sprint("Closed")
	case st.HasSpecialHours:
		line = specialColor.Sprint(st.Hours())
	default:
		line = openColor.Sprint(st.Hours())
	}
	if note := st.Note(); note != "" {
		line += dimColor.Sprintf("  (%s)", note)
	}
	return line
}
