package cli

import (
	"context"
	"fmt"

	"github.com/andrescamacho/robofleet/internal/adapters/metrics"
	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/navigation"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/application/simulation/commands"
	"github.com/andrescamacho/robofleet/internal/application/simulation/queries"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/infrastructure/config"
)

// engine collects what a session needs besides the scenario
type engine struct {
	cfg      *config.Config
	logger   common.Logger
	recorder *simulation.Recorder
	metrics  *metrics.SimulationMetricsCollector
	pacer    simulation.Pacer
}

func simulationSettings(cfg config.SimulationConfig) simulation.Settings {
	s := simulation.DefaultSettings()
	s.MinStep = cfg.MinStep
	s.MaxStep = cfg.MaxStep
	s.Tolerance = cfg.Tolerance
	s.Navigation = navigation.Settings{
		MinClockInterval:   cfg.Navigation.MinClockInterval,
		ReorganizeInterval: cfg.Navigation.ReorganizeInterval,
		CruiseBatch:        cfg.Navigation.CruiseBatch,
		Dimensionless:      cfg.Dimensionless,
	}
	s.Agent = agent.Settings{
		RetryDelay:         cfg.Agent.RetryDelay,
		AbortAfterFailures: cfg.Agent.AbortAfterFailures,
		PodTransferTime:    cfg.Agent.PodTransferTime,
		PrepareTimeout:     cfg.Agent.PrepareTimeout,
	}
	return s
}

func dispatchSettings(cfg config.DispatchConfig) simulation.DispatchSettings {
	return simulation.DispatchSettings{
		OrderInterval:  cfg.OrderInterval,
		ReplenishEvery: cfg.ReplenishEvery,
		Batch:          cfg.Batch,
		RestChance:     cfg.RestChance,
		RestDuration:   cfg.RestDuration,
	}
}

func fleetLimits(cfg config.KinematicsConfig) kinematics.Limits {
	return kinematics.Limits{
		MaxAcceleration: cfg.MaxAcceleration,
		MaxDeceleration: cfg.MaxDeceleration,
		MaxVelocity:     cfg.MaxVelocity,
		TurnSpeed:       cfg.TurnSpeed,
	}
}

func breakerSettings(cfg config.BreakerConfig) navigation.BreakerSettings {
	b := navigation.DefaultBreakerSettings()
	b.FailureThreshold = cfg.FailureThreshold
	b.Timeout = cfg.Timeout
	b.Interval = cfg.Interval
	return b
}

// pathFinder returns the configured finder. The prioritized search is
// guarded by a breaker falling back to plain shortest paths.
func pathFinder(cfg config.SimulationConfig) (routing.PathFinder, []simulation.Option) {
	if cfg.PathFinder == "shortest" {
		return pathfinding.NewShortest(), nil
	}
	finder := pathfinding.NewPrioritized(cfg.Search.MaxTime, cfg.Search.WaitStep, cfg.Search.MaxExpansions)
	return finder, []simulation.Option{
		simulation.WithFallbackFinder(pathfinding.NewShortest(), breakerSettings(cfg.Breaker)),
	}
}

// sessionFactory builds sessions for the RunSimulation command
func (e *engine) sessionFactory() commands.SessionFactory {
	return func(_ context.Context, setup simulation.Setup) (*simulation.Session, error) {
		settings := simulationSettings(e.cfg.Simulation)
		finder, finderOpts := pathFinder(e.cfg.Simulation)
		build := func(l simulation.TaskListener) *simulation.Controller {
			opts := append([]simulation.Option{
				simulation.WithListener(l),
				simulation.WithLogger(e.logger),
			}, finderOpts...)
			if e.metrics != nil {
				opts = append(opts, simulation.WithListener(e.metrics))
			}
			return simulation.NewController(setup.Warehouse, finder, settings, opts...)
		}

		opts := []simulation.SessionOption{simulation.WithSessionLogger(e.logger)}
		if e.recorder != nil {
			opts = append(opts, simulation.WithRecorder(e.recorder))
		}
		if e.metrics != nil {
			opts = append(opts, simulation.WithObserver(e.metrics))
		}
		if e.pacer != nil {
			opts = append(opts, simulation.WithPacer(e.pacer))
		}
		return simulation.NewSession(setup, build, dispatchSettings(e.cfg.Simulation.Dispatch), shared.NewRealClock(), opts...)
	}
}

// newMediator registers the simulation command and, with a store, the run
// queries
func newMediator(e *engine, st *store, middleware ...common.Middleware) (common.Mediator, error) {
	med := common.NewMediator()
	med.Use(common.LoggingMiddleware)
	for _, mw := range middleware {
		med.Use(mw)
	}

	if err := common.RegisterHandler[*commands.RunSimulationCommand](med, commands.NewRunSimulationHandler(e.sessionFactory())); err != nil {
		return nil, fmt.Errorf("failed to register RunSimulation handler: %w", err)
	}
	if st == nil {
		return med, nil
	}
	if err := common.RegisterHandler[*queries.GetRunQuery](med, queries.NewGetRunHandler(st.runs, st.bots, st.events)); err != nil {
		return nil, fmt.Errorf("failed to register GetRun handler: %w", err)
	}
	if err := common.RegisterHandler[*queries.ListRunsQuery](med, queries.NewListRunsHandler(st.runs)); err != nil {
		return nil, fmt.Errorf("failed to register ListRuns handler: %w", err)
	}
	return med, nil
}
