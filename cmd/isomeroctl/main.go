package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"isomero/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "isomeroctl",
		Short: "Inspect library opening hours from hours.yaml",
		Long: `isomeroctl resolves library opening hours offline from an hours.yaml file:
a single day, a month calendar, or whether a location is open right now.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.DayCmd())
	rootCmd.AddCommand(cli.MonthCmd())
	rootCmd.AddCommand(cli.StatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
