package run

import (
	"fmt"
	"time"

	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// Run is one simulation run. It wraps the shared lifecycle state machine
// with what the run was started from and where simulation time got to.
type Run struct {
	id       string
	scenario string
	seed     int64
	bots     int

	lifecycle *shared.LifecycleStateMachine

	simulated float64
	stats     shared.SimulationStats

	metadata map[string]interface{}
}

// NewRun creates a pending run. A nil clock uses wall time.
func NewRun(id, scenario string, seed int64, bots int, clock shared.Clock) *Run {
	return &Run{
		id:        id,
		scenario:  scenario,
		seed:      seed,
		bots:      bots,
		lifecycle: shared.NewLifecycleStateMachine(clock),
		metadata:  make(map[string]interface{}),
	}
}

func (r *Run) ID() string                       { return r.id }
func (r *Run) Scenario() string                 { return r.scenario }
func (r *Run) Seed() int64                      { return r.seed }
func (r *Run) Bots() int                        { return r.bots }
func (r *Run) Status() shared.LifecycleStatus   { return r.lifecycle.Status() }
func (r *Run) CreatedAt() time.Time             { return r.lifecycle.CreatedAt() }
func (r *Run) StartedAt() *time.Time            { return r.lifecycle.StartedAt() }
func (r *Run) StoppedAt() *time.Time            { return r.lifecycle.StoppedAt() }
func (r *Run) LastError() error                 { return r.lifecycle.LastError() }
func (r *Run) SimulatedSeconds() float64        { return r.simulated }
func (r *Run) Stats() shared.SimulationStats    { return r.stats }
func (r *Run) Metadata() map[string]interface{} { return r.metadata }
func (r *Run) IsRunning() bool                  { return r.lifecycle.IsRunning() }
func (r *Run) IsFinished() bool                 { return r.lifecycle.IsFinished() }
func (r *Run) RuntimeDuration() time.Duration   { return r.lifecycle.RuntimeDuration() }

func (r *Run) Start() error {
	return r.lifecycle.Start()
}

func (r *Run) Complete() error {
	return r.lifecycle.Complete()
}

func (r *Run) Fail(err error) error {
	return r.lifecycle.Fail(err)
}

func (r *Run) Stop() error {
	return r.lifecycle.Stop()
}

// Record stores the latest simulation time and statistics
func (r *Run) Record(simulated float64, stats shared.SimulationStats) {
	r.simulated = simulated
	r.stats = stats
}

func (r *Run) SetMetadata(key string, value interface{}) {
	r.metadata[key] = value
}

func (r *Run) String() string {
	return fmt.Sprintf("Run[%s, scenario=%s, status=%s, t=%.1fs]", r.id, r.scenario, r.Status(), r.simulated)
}

// BotRecord is the final statistics of one bot in a run
type BotRecord struct {
	RunID              string
	BotID              int
	TripsCompleted     int
	TripTime           float64
	QueueTime          float64
	Distance           float64
	FailedReservations int
	PodPickups         int
	PodSetdowns        int
	ItemsHandled       int
	TasksCompleted     int
	TasksAborted       int
	TasksCancelled     int
}

// Outcome is how a task ended
type Outcome string

const (
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeAborted   Outcome = "ABORTED"
	OutcomeCancelled Outcome = "CANCELLED"
)

// TaskEvent records the end of one task
type TaskEvent struct {
	RunID   string
	BotID   int
	Kind    string
	Task    string
	Outcome Outcome
	Reason  string
	SimTime float64
}
