package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/robofleet/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage robofleet configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (RF_* prefix, e.g. RF_SIMULATION_MAX_STEP)
2. Config file (robofleet.yaml)
3. Default values

User preferences (default scenario and seed) are stored in ~/.robofleet/config.json

Examples:
  robofleet config show
  robofleet config set-scenario scenarios/two-tiers.yaml
  robofleet config set-seed 42
  robofleet config clear`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetScenarioCommand())
	cmd.AddCommand(newConfigSetSeedCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load config: %v\n", err)
				fmt.Fprintln(out, "Using default configuration.")
				cfg = config.LoadConfigOrDefault("")
			}

			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Fprintln(out, "robofleet Configuration")
			fmt.Fprintln(out, "=======================")

			fmt.Fprintln(out, "User Preferences:")
			fmt.Fprintf(out, "  Config file:      %s\n", userConfigHandler.GetConfigPath())
			fmt.Fprintf(out, "  Default Scenario: %s\n", orUnset(userCfg.DefaultScenario))
			if userCfg.DefaultSeed != nil {
				fmt.Fprintf(out, "  Default Seed:     %d\n", *userCfg.DefaultSeed)
			} else {
				fmt.Fprintln(out, "  Default Seed:     (not set)")
			}

			s := cfg.Simulation
			fmt.Fprintln(out, "\nSimulation:")
			fmt.Fprintf(out, "  Duration:         %.0fs\n", s.Duration)
			fmt.Fprintf(out, "  Seed:             %d\n", s.Seed)
			fmt.Fprintf(out, "  Step:             %g..%gs\n", s.MinStep, s.MaxStep)
			fmt.Fprintf(out, "  Tolerance:        %g\n", s.Tolerance)
			fmt.Fprintf(out, "  Path Finder:      %s\n", s.PathFinder)
			fmt.Fprintf(out, "  Realtime Factor:  %g\n", s.RealtimeFactor)
			fmt.Fprintf(out, "  Kinematics:       a=%g d=%g v=%g turn=%g\n",
				s.Kinematics.MaxAcceleration, s.Kinematics.MaxDeceleration, s.Kinematics.MaxVelocity, s.Kinematics.TurnSpeed)
			fmt.Fprintf(out, "  Breaker:          %d failures, open %s\n", s.Breaker.FailureThreshold, s.Breaker.Timeout)

			fmt.Fprintln(out, "\nDatabase:")
			fmt.Fprintf(out, "  Type:             %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.URL != "":
				fmt.Fprintf(out, "  URL:              %s\n", maskPassword(cfg.Database.URL))
			case cfg.Database.Type == "sqlite":
				fmt.Fprintf(out, "  Path:             %s\n", cfg.Database.Path)
			default:
				fmt.Fprintf(out, "  Host:             %s\n", cfg.Database.Host)
				fmt.Fprintf(out, "  Port:             %d\n", cfg.Database.Port)
				fmt.Fprintf(out, "  Database:         %s\n", cfg.Database.Name)
				fmt.Fprintf(out, "  User:             %s\n", cfg.Database.User)
			}

			fmt.Fprintln(out, "\nServing:")
			fmt.Fprintf(out, "  gRPC:             %s (enabled: %t)\n", cfg.GRPC.Address, cfg.GRPC.Enabled)
			fmt.Fprintf(out, "  Metrics:          %s:%d%s (enabled: %t)\n", cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path, cfg.Metrics.Enabled)
			fmt.Fprintf(out, "  PID file:         %s\n", cfg.GRPC.PIDFile)

			fmt.Fprintln(out, "\nLogging:")
			fmt.Fprintf(out, "  Level:            %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  Format:           %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  Output:           %s\n", cfg.Logging.Output)

			return nil
		},
	}
}

func newConfigSetScenarioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-scenario <file>",
		Short: "Set the default scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("scenario file: %w", err)
			}
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetDefaultScenario(path); err != nil {
				return fmt.Errorf("failed to set default scenario: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default scenario set to %s\n", path)
			return nil
		},
	}
}

func newConfigSetSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-seed <seed>",
		Short: "Set the default seed for scenarios without one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seed %q", args[0])
			}
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.SetDefaultSeed(seed); err != nil {
				return fmt.Errorf("failed to set default seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default seed set to %d\n", seed)
			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear user preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			if err := handler.Clear(); err != nil {
				return fmt.Errorf("failed to clear user config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ User preferences cleared")
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
