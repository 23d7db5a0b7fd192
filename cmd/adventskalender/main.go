package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "adventskalender",
		Short:        "Advent calendar planner",
		Long:         `Plan advent calendars with 24 pouches each: serve the JSON API, run migrations and manage accounts.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newUserCommand(&configPath),
	)
	return rootCmd
}
