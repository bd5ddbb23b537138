package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
)

var (
	_ simulation.Observer     = (*SimulationMetricsCollector)(nil)
	_ simulation.TaskListener = (*SimulationMetricsCollector)(nil)
)

// SimulationMetricsCollector exports the state of a running simulation. It
// observes every step and listens to task outcomes; fleet counters are
// exported as the increase since the previous step.
type SimulationMetricsCollector struct {
	simulatedSeconds prometheus.Gauge
	bots             *prometheus.GaugeVec
	events           *prometheus.CounterVec
	distance         prometheus.Counter
	steps            prometheus.Counter
	tasks            *prometheus.CounterVec

	mu   sync.Mutex
	last shared.SimulationStats
}

func NewSimulationMetricsCollector() *SimulationMetricsCollector {
	return &SimulationMetricsCollector{
		simulatedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "simulated_seconds",
			Help:      "Simulation time reached by the current run",
		}),
		bots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bots",
				Help:      "Bots by activity",
			},
			[]string{"activity"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Fleet events such as granted reservations, conflicts and drive aborts",
			},
			[]string{"event"},
		),
		distance: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "distance_meters_total",
			Help:      "Distance driven by all bots",
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "steps_total",
			Help:      "Simulation steps taken",
		}),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_total",
				Help:      "Finished tasks by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// Register registers the simulation metrics with the global registry
func (c *SimulationMetricsCollector) Register() error {
	return register(c.simulatedSeconds, c.bots, c.events, c.distance, c.steps, c.tasks)
}

func (c *SimulationMetricsCollector) StepCompleted(now float64, stats shared.SimulationStats, bots []*agent.Bot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// a new run starts counting from zero
	if stats.Steps < c.last.Steps {
		c.last = shared.SimulationStats{}
	}
	prev := c.last
	c.last = stats

	c.simulatedSeconds.Set(now)
	c.steps.Add(float64(stats.Steps - prev.Steps))
	c.distance.Add(positive(stats.DistanceTraveled - prev.DistanceTraveled))
	for event, delta := range map[string]int{
		"reservation_granted":  stats.ReservationsGranted - prev.ReservationsGranted,
		"reservation_conflict": stats.ReservationConflicts - prev.ReservationConflicts,
		"drive_abort":          stats.DriveAborts - prev.DriveAborts,
		"reoptimization_sweep": stats.ReoptimizationSweeps - prev.ReoptimizationSweeps,
		"path_assigned":        stats.PathsAssigned - prev.PathsAssigned,
		"path_finder_failure":  stats.PathFinderFailures - prev.PathFinderFailures,
		"pod_pickup":           stats.PodPickups - prev.PodPickups,
		"pod_setdown":          stats.PodSetdowns - prev.PodSetdowns,
		"request_finished":     stats.RequestsFinished - prev.RequestsFinished,
		"request_aborted":      stats.RequestsAborted - prev.RequestsAborted,
		"elevator_trip":        stats.ElevatorTrips - prev.ElevatorTrips,
		"rendezvous":           stats.Rendezvous - prev.Rendezvous,
	} {
		if delta > 0 {
			c.events.WithLabelValues(event).Add(float64(delta))
		}
	}

	counts := map[string]float64{"idle": 0, "driving": 0, "resting": 0, "working": 0}
	for _, b := range bots {
		counts[activity(b, now)]++
	}
	for name, n := range counts {
		c.bots.WithLabelValues(name).Set(n)
	}
}

func (c *SimulationMetricsCollector) TaskCompleted(_ *agent.Bot, t task.Task, _ float64) {
	c.tasks.WithLabelValues(string(t.Kind()), "completed").Inc()
}

func (c *SimulationMetricsCollector) TaskAborted(_ *agent.Bot, t task.Task, _ error, _ float64) {
	c.tasks.WithLabelValues(string(t.Kind()), "aborted").Inc()
}

func (c *SimulationMetricsCollector) TaskCancelled(_ *agent.Bot, t task.Task, _ float64) {
	c.tasks.WithLabelValues(string(t.Kind()), "cancelled").Inc()
}

func activity(b *agent.Bot, now float64) string {
	switch {
	case b.IsResting():
		return "resting"
	case b.IsDriving(now):
		return "driving"
	case b.IsIdle():
		return "idle"
	}
	return "working"
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
