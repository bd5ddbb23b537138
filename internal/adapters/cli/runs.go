package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/robofleet/internal/adapters/logging"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation/queries"
	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// NewRunsCommand creates the runs command with subcommands
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted simulation runs",
		Long: `Inspect runs stored with 'robofleet run --persist'.

Examples:
  robofleet runs list --limit 5
  robofleet runs show 3f0c2a0e-...`,
	}
	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	return cmd
}

// withQueries opens the store and runs fn with a mediator serving the run
// queries
func withQueries(cmd *cobra.Command, fn func(med common.Mediator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	st, err := openStore(&cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	med, err := newMediator(&engine{cfg: cfg, logger: logger}, st)
	if err != nil {
		return err
	}
	cmd.SetContext(common.WithLogger(cmd.Context(), logger))
	return fn(med)
}

func newRunsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueries(cmd, func(med common.Mediator) error {
				resp, err := med.Send(cmd.Context(), &queries.ListRunsQuery{Limit: limit})
				if err != nil {
					return err
				}
				printRunList(cmd.OutOrStdout(), resp.(*queries.ListRunsResponse).Runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var events int
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with per-bot statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueries(cmd, func(med common.Mediator) error {
				resp, err := med.Send(cmd.Context(), &queries.GetRunQuery{RunID: args[0], EventLimit: events})
				if err != nil {
					return err
				}
				printRunDetail(cmd.OutOrStdout(), resp.(*queries.GetRunResponse))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&events, "events", 20, "Number of task events to show; 0 shows all")
	return cmd
}

func printRunList(out io.Writer, runs []*run.Summary) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSEED\tBOTS\tSTATUS\tSIMULATED\tTASKS DONE\tCREATED")
	fmt.Fprintln(w, "--\t--------\t----\t----\t------\t---------\t----------\t-------")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%.1fs\t%d\t%s\n",
			r.ID, r.Scenario, r.Seed, r.Bots, r.Status, r.SimulatedSeconds,
			r.Stats.TasksCompleted, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func printRunDetail(out io.Writer, d *queries.GetRunResponse) {
	r := d.Run
	fmt.Fprintf(out, "Run %s (%s, seed %d, %d bots)\n", r.ID, r.Scenario, r.Seed, r.Bots)
	fmt.Fprintf(out, "  Status:      %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(out, "  Error:       %s\n", r.Error)
	}
	fmt.Fprintf(out, "  Simulated:   %.1fs in %d steps\n", r.SimulatedSeconds, r.Stats.Steps)
	fmt.Fprintln(out)
	printStats(out, r.Stats)

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  BOT\tTRIPS\tDISTANCE\tQUEUE TIME\tFAILED RES.\tPICKUPS\tITEMS\tDONE/ABORTED/CANCELLED")
	for _, b := range d.Bots {
		fmt.Fprintf(w, "  %d\t%d\t%.1fm\t%.1fs\t%d\t%d\t%d\t%d/%d/%d\n",
			b.BotID, b.TripsCompleted, b.Distance, b.QueueTime, b.FailedReservations,
			b.PodPickups, b.ItemsHandled, b.TasksCompleted, b.TasksAborted, b.TasksCancelled)
	}
	w.Flush()

	fmt.Fprintln(out)
	printOutcomes(out, d.Outcomes)

	if len(d.Events) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  TIME\tBOT\tTASK\tOUTCOME\tREASON")
		for _, ev := range d.Events {
			fmt.Fprintf(w, "  %.1f\t%d\t%s\t%s\t%s\n", ev.SimTime, ev.BotID, ev.Task, ev.Outcome, ev.Reason)
		}
		w.Flush()
	}
}
