package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"isomero/internal/livestatus"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var (
		flags scheduleFlags
		at    string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a location is open right now",
		Long: `Compute the live status of a location: open or closed, and when that
changes next. Use --at to evaluate another moment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tz, err := flags.tz()
			if err != nil {
				return err
			}
			now := time.Now().In(tz)
			if at != "" {
				now, err = time.ParseInLocation("2006-01-02T15:04", at, tz)
				if err != nil {
					return fmt.Errorf("invalid --at %q, expected YYYY-MM-DDTHH:MM", at)
				}
			}

			snap, loc, resolver, err := flags.load(cmd, now, now.AddDate(0, 0, livestatus.DefaultScanDays+1))
			if err != nil {
				return err
			}
			live := livestatus.NewService(resolver).Compute(now, loc, snap.Schedules, snap.Exceptions)

			out := cmd.OutOrStdout()
			if live.IsOpen {
				fmt.Fprintf(out, "%s: %s\n", loc, openColor.Sprint("OPEN"))
			} else {
				fmt.Fprintf(out, "%s: %s\n", loc, closedColor.Sprint("CLOSED"))
			}
			if live.Message != "" {
				fmt.Fprintf(out, "  %s\n", live.Message)
			}
			switch {
			case live.NextChange == nil:
				fmt.Fprintln(out, "  No change within the next two weeks")
			case live.IsOpen:
				fmt.Fprintf(out, "  Closes %s\n", live.NextChange.Format("Mon 2 Jan 15:04"))
			default:
				fmt.Fprintf(out, "  Opens %s\n", live.NextChange.Format("Mon 2 Jan 15:04"))
			}
			if live.ClosingSoon(now) {
				fmt.Fprintln(out, specialColor.Sprint("  Closing soon"))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "Evaluate at this local time (YYYY-MM-DDTHH:MM), default now")

	return cmd
}
