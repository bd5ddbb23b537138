package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// BotSpec places one bot at the start of a run
type BotSpec struct {
	ID          int
	Start       graph.NodeID
	Orientation float64
	Limits      kinematics.Limits
}

// Setup is a ready-to-run scenario
type Setup struct {
	Name      string
	Warehouse *warehouse.Warehouse
	Bots      []BotSpec
	Seed      int64
}

// Pacer throttles stepping, e.g. to wall-clock speed
type Pacer interface {
	Pace(ctx context.Context, simTime float64) error
}

// Observer is called after every step
type Observer interface {
	StepCompleted(now float64, stats shared.SimulationStats, bots []*agent.Bot)
}

// Session runs one scenario for a fixed simulated duration: it drives the
// controller with the dispatcher, notifies observers, paces and records the
// run. The run's lifecycle mirrors the outcome.
type Session struct {
	id         string
	setup      Setup
	controller *Controller
	dispatcher *Dispatcher
	log        *TaskLog
	run        *run.Run

	pacer     Pacer
	observers []Observer
	recorder  *Recorder
	logger    common.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

func WithPacer(p Pacer) SessionOption {
	return func(s *Session) { s.pacer = p }
}

func WithObserver(o Observer) SessionOption {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

func WithRecorder(r *Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

func WithSessionLogger(logger common.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession places the bots of setup into a new controller. build creates
// the controller, so callers choose the path finder and controller options;
// the session adds its task log as a listener.
func NewSession(setup Setup, build func(listener TaskListener) *Controller, dispatch DispatchSettings, clock shared.Clock, opts ...SessionOption) (*Session, error) {
	if setup.Warehouse == nil {
		return nil, shared.NewValidationError("warehouse", "scenario has no warehouse")
	}
	s := &Session{
		id:     uuid.New().String(),
		setup:  setup,
		logger: common.NoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = NewTaskLog(s.id)
	s.controller = build(s.log)
	for _, spec := range setup.Bots {
		if _, err := s.controller.AddBot(spec.ID, spec.Start, spec.Limits, spec.Orientation); err != nil {
			return nil, err
		}
	}
	s.dispatcher = NewDispatcher(setup.Warehouse, setup.Seed, dispatch, s.logger)
	s.run = run.NewRun(s.id, setup.Name, setup.Seed, len(setup.Bots), clock)
	return s, nil
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Run() *run.Run           { return s.run }
func (s *Session) Controller() *Controller { return s.controller }
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }
func (s *Session) Events() []run.TaskEvent { return s.log.Events() }

// Execute simulates duration seconds. A cancelled context stops the run;
// an invariant violation or path-finder error fails it.
func (s *Session) Execute(ctx context.Context, duration float64) error {
	if err := s.run.Start(); err != nil {
		return err
	}
	s.logger.Log("INFO", "simulation started", map[string]interface{}{
		"run_id":   s.id,
		"scenario": s.setup.Name,
		"bots":     len(s.setup.Bots),
		"seed":     s.setup.Seed,
	})
	s.recorder.begin(ctx, s.run)

	err := s.loop(ctx, duration)
	s.run.Record(s.controller.Now(), s.controller.Stats())
	switch {
	case err == nil:
		_ = s.run.Complete()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		_ = s.run.Stop()
		err = nil
	default:
		_ = s.run.Fail(err)
	}

	s.recorder.finish(context.WithoutCancel(ctx), s.run, botRecords(s.id, s.controller.Bots()), s.log.Events())
	s.logger.Log("INFO", "simulation finished", map[string]interface{}{
		"run_id":    s.id,
		"status":    string(s.run.Status()),
		"simulated": s.controller.Now(),
		"steps":     s.controller.Stats().Steps,
	})
	return err
}

func (s *Session) loop(ctx context.Context, duration float64) error {
	c := s.controller
	for c.Now() < duration {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.dispatcher.Dispatch(c)
		if err := c.Step(ctx); err != nil {
			return fmt.Errorf("step at %.3f: %w", c.Now(), err)
		}
		stats := c.Stats()
		for _, o := range s.observers {
			o.StepCompleted(c.Now(), stats, c.Bots())
		}
		if s.pacer != nil {
			if err := s.pacer.Pace(ctx, c.Now()); err != nil {
				return err
			}
		}
	}
	return nil
}

func botRecords(runID string, bots []*agent.Bot) []run.BotRecord {
	records := make([]run.BotRecord, 0, len(bots))
	for _, b := range bots {
		cnt := b.Counters()
		records = append(records, run.BotRecord{
			RunID:              runID,
			BotID:              b.ID(),
			TripsCompleted:     cnt.TripsCompleted,
			TripTime:           cnt.TripTime,
			QueueTime:          cnt.QueueTime,
			Distance:           cnt.Distance,
			FailedReservations: cnt.FailedReservations,
			PodPickups:         cnt.PodPickups,
			PodSetdowns:        cnt.PodSetdowns,
			ItemsHandled:       cnt.ItemsHandled,
			TasksCompleted:     cnt.TasksCompleted,
			TasksAborted:       cnt.TasksAborted,
			TasksCancelled:     cnt.TasksCancelled,
		})
	}
	return records
}
