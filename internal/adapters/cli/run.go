package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/robofleet/internal/adapters/logging"
	"github.com/andrescamacho/robofleet/internal/adapters/scenario"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/application/simulation/commands"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/infrastructure/config"
)

// runFlags are shared by run and serve
type runFlags struct {
	scenario string
	duration float64
	seed     int64
	persist  bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "Scenario YAML file (default: user config default)")
	cmd.Flags().Float64Var(&f.duration, "duration", 0, "Simulated seconds (default: simulation.duration)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Dispatcher seed (overrides the scenario seed)")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "Store the run in the database")
}

// setup loads the scenario and resolves duration and seed
func (f *runFlags) setup(cmd *cobra.Command, cfg *config.Config) (simulation.Setup, float64, error) {
	path, err := resolveScenario(f.scenario)
	if err != nil {
		return simulation.Setup{}, 0, err
	}
	setup, err := scenario.Load(path, fleetLimits(cfg.Simulation.Kinematics), baseSeed(cfg))
	if err != nil {
		return simulation.Setup{}, 0, err
	}
	if cmd.Flags().Changed("seed") {
		setup.Seed = f.seed
	}
	duration := f.duration
	if duration == 0 {
		duration = cfg.Simulation.Duration
	}
	return setup, duration, nil
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and print a summary",
		Long: `Simulate a scenario for a fixed simulated duration as fast as possible.

The demo dispatcher generates orders and assigns them to idle bots. With
--persist the run, per-bot statistics and task outcomes are stored in the
configured database for 'robofleet runs'.

Examples:
  robofleet run --scenario scenarios/small-grid.yaml
  robofleet run --scenario scenarios/two-tiers.yaml --duration 1800 --seed 3 --persist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Close()

			setup, duration, err := flags.setup(cmd, cfg)
			if err != nil {
				return err
			}

			e := &engine{cfg: cfg, logger: logger}
			var st *store
			if flags.persist {
				if st, err = openStore(&cfg.Database); err != nil {
					return err
				}
				defer st.Close()
				e.recorder = st.recorder(logger)
			}
			med, err := newMediator(e, st)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = common.WithLogger(ctx, logger)

			resp, err := med.Send(ctx, &commands.RunSimulationCommand{Setup: setup, Duration: duration})
			if result, ok := resp.(*commands.RunSimulationResponse); ok && result != nil {
				printRunResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func printRunResult(out io.Writer, r *commands.RunSimulationResponse) {
	rn := r.Run
	fmt.Fprintf(out, "Run %s (%s, seed %d, %d bots)\n", rn.ID(), rn.Scenario(), rn.Seed(), rn.Bots())
	fmt.Fprintf(out, "  Status:      %s\n", rn.Status())
	if rn.LastError() != nil {
		fmt.Fprintf(out, "  Error:       %v\n", rn.LastError())
	}
	fmt.Fprintf(out, "  Simulated:   %.1fs in %d steps\n", r.Stats.SimulatedTime, r.Stats.Steps)
	fmt.Fprintf(out, "  Orders:      %d\n", r.Orders)
	fmt.Fprintln(out)
	printStats(out, r.Stats)

	counts := make(map[run.Outcome]int)
	for _, ev := range r.Events {
		counts[ev.Outcome]++
	}
	fmt.Fprintln(out)
	printOutcomes(out, counts)
}

func printStats(out io.Writer, s shared.SimulationStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Tasks\t%d assigned, %d completed, %d aborted, %d cancelled\n",
		s.TasksAssigned, s.TasksCompleted, s.TasksAborted, s.TasksCancelled)
	fmt.Fprintf(w, "  Requests\t%d finished, %d aborted\n", s.RequestsFinished, s.RequestsAborted)
	fmt.Fprintf(w, "  Pods\t%d pickups, %d setdowns\n", s.PodPickups, s.PodSetdowns)
	fmt.Fprintf(w, "  Reservations\t%d granted, %d conflicts, %d drive aborts\n",
		s.ReservationsGranted, s.ReservationConflicts, s.DriveAborts)
	fmt.Fprintf(w, "  Planning\t%d sweeps, %d paths, %d finder failures\n",
		s.ReoptimizationSweeps, s.PathsAssigned, s.PathFinderFailures)
	fmt.Fprintf(w, "  Elevators\t%d trips\n", s.ElevatorTrips)
	fmt.Fprintf(w, "  Rendezvous\t%d\n", s.Rendezvous)
	fmt.Fprintf(w, "  Distance\t%.1fm\n", s.DistanceTraveled)
	w.Flush()
}

func printOutcomes(out io.Writer, counts map[run.Outcome]int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  OUTCOME\tTASKS")
	fmt.Fprintln(w, "  -------\t-----")
	for _, o := range []run.Outcome{run.OutcomeCompleted, run.OutcomeAborted, run.OutcomeCancelled} {
		fmt.Fprintf(w, "  %s\t%d\n", o, counts[o])
	}
	w.Flush()
}
