package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "robofleet",
		Short: "robofleet - warehouse robot fleet simulator",
		Long: `robofleet simulates a fleet of warehouse robots moving pods between storage,
stations, elevators and rest locations on a waypoint graph, keeping every
bot collision-free through a shared reservation table.

Examples:
  robofleet run --scenario scenarios/small-grid.yaml --duration 600
  robofleet run --scenario scenarios/two-tiers.yaml --persist --seed 7
  robofleet serve --scenario scenarios/two-tiers.yaml --realtime 10
  robofleet health
  robofleet runs list
  robofleet runs show <run-id>
  robofleet config show`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: search ./robofleet.yaml, ./configs, /etc/robofleet)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewHealthCommand())
	rootCmd.AddCommand(NewRunsCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
