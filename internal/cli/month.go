package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"isomero/internal/calendar"
)

// MonthCmd returns the month command
func MonthCmd() *cobra.Command {
	var (
		flags scheduleFlags
		month string
	)

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print a Sunday-first month calendar",
		Long: `Print the six-week calendar grid for a month (the current month by default).
Closed days are red, days with special hours yellow, today is underlined.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tz, err := flags.tz()
			if err != nil {
				return err
			}
			today := time.Now().In(tz)
			ym := calendar.MonthOf(today)
			if month != "" {
				ym, err = calendar.ParseYearMonth(month)
				if err != nil {
					return err
				}
			}

			first := ym.First(tz)
			snap, loc, resolver, err := flags.load(cmd, first.AddDate(0, 0, -7), first.AddDate(0, 1, 14))
			if err != nil {
				return err
			}

			views := calendar.NewBuilder(resolver).BuildMonth(ym, loc, snap.Schedules, snap.Exceptions, today)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d - %s\n", ym.Month, ym.Year, loc)
			fmt.Fprintln(out, " Su  Mo  Tu  We  Th  Fr  Sa")
			for _, week := range calendar.SplitWeeks(views) {
				cells := make([]string, 0, len(week))
				for _, v := range week {
					cell := fmt.Sprintf("%3d", v.Date.Day())
					switch {
					case !v.IsCurrentMonth:
						cell = dimColor.Sprint(cell)
					case v.IsClosed:
						cell = closedColor.Sprint(cell)
					case v.HasSpecialHours:
						cell = specialColor.Sprint(cell)
					}
					if v.IsToday {
						cell = todayColor.Sprint(cell)
					}
					cells = append(cells, cell)
				}
				fmt.Fprintln(out, strings.Join(cells, " "))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to print (YYYY-MM), default current month")

	return cmd
}
