package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andrescamacho/robofleet/internal/adapters/grpc"
	"github.com/andrescamacho/robofleet/internal/adapters/logging"
	"github.com/andrescamacho/robofleet/internal/adapters/metrics"
	"github.com/andrescamacho/robofleet/internal/adapters/realtime"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/application/simulation/commands"
	"github.com/andrescamacho/robofleet/internal/infrastructure/pidfile"
)

// mediatorExecutor runs a setup through the RunSimulation command
type mediatorExecutor struct {
	med   common.Mediator
	setup simulation.Setup
}

func (m *mediatorExecutor) Execute(ctx context.Context, duration float64) error {
	_, err := m.med.Send(ctx, &commands.RunSimulationCommand{Setup: m.setup, Duration: duration})
	return err
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	flags := &runFlags{}
	var factor float64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulation as a long-lived service",
		Long: `Run one simulation paced against the wall clock while serving the gRPC
health service (SERVING while the simulation runs) and Prometheus metrics.

Only one server may run per PID file (grpc.pid_file).

Examples:
  robofleet serve --scenario scenarios/two-tiers.yaml --realtime 1
  robofleet serve --scenario scenarios/small-grid.yaml --realtime 20 --persist`,
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

			pf := pidfile.New(cfg.GRPC.PIDFile)
			if err := pf.Acquire(); err != nil {
				return err
			}
			defer func() {
				if err := pf.Release(); err != nil {
					logger.Log("WARNING", "failed to release PID file", map[string]interface{}{"error": err.Error()})
				}
			}()

			setup, duration, err := flags.setup(cmd, cfg)
			if err != nil {
				return err
			}

			e := &engine{cfg: cfg, logger: logger}
			if !cmd.Flags().Changed("realtime") {
				factor = cfg.Simulation.RealtimeFactor
			}
			if factor > 0 {
				if e.pacer, err = realtime.NewPacer(factor); err != nil {
					return err
				}
			}

			var st *store
			if flags.persist {
				if st, err = openStore(&cfg.Database); err != nil {
					return err
				}
				defer st.Close()
				e.recorder = st.recorder(logger)
			}

			var middleware []common.Middleware
			if cfg.Metrics.Enabled {
				metrics.InitRegistry()
				e.metrics = metrics.NewSimulationMetricsCollector()
				if err := e.metrics.Register(); err != nil {
					return fmt.Errorf("failed to register simulation metrics: %w", err)
				}
				commandMetrics := metrics.NewCommandMetricsCollector()
				if err := commandMetrics.Register(); err != nil {
					return fmt.Errorf("failed to register command metrics: %w", err)
				}
				middleware = append(middleware, metrics.PrometheusMiddleware(commandMetrics))
			}
			med, err := newMediator(e, st, middleware...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = common.WithLogger(ctx, logger)
			return serve(ctx, cmd, e, med, setup, duration)
		},
	}
	flags.bind(cmd)
	cmd.Flags().Float64Var(&factor, "realtime", 0, "Simulated seconds per wall second; 0 runs unpaced (default: simulation.realtime_factor)")
	return cmd
}

// serve runs the simulation next to the health and metrics endpoints. The
// endpoints stay up until the run ends or ctx is cancelled.
func serve(ctx context.Context, cmd *cobra.Command, e *engine, med common.Mediator, setup simulation.Setup, duration float64) error {
	cfg := e.cfg
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	var health *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := grpc.Listen(cfg.GRPC.Address)
		if err != nil {
			return err
		}
		health = grpc.NewServer(lis, e.logger, cfg.GRPC.ShutdownTimeout)
		g.Go(func() error { return health.Serve(serveCtx) })
		fmt.Fprintf(cmd.OutOrStdout(), "Health service on %s\n", cfg.GRPC.Address)
	}
	if cfg.Metrics.Enabled {
		ms, err := metrics.Listen(cfg.Metrics)
		if err != nil {
			stopServing()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return ms.Serve(serveCtx, cfg.GRPC.ShutdownTimeout) })
		fmt.Fprintf(cmd.OutOrStdout(), "Metrics on http://%s%s\n", ms.Addr(), cfg.Metrics.Path)
	}

	exec := &mediatorExecutor{med: med, setup: setup}
	var runErr error
	if health != nil {
		runner := grpc.NewSimulationRunner(gctx, exec, duration, health)
		runner.Start()
		runErr = runner.Wait()
	} else {
		runErr = exec.Execute(gctx, duration)
	}
	stopServing()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Simulation finished")
	return nil
}
