package metrics_test

import (
	"context"
	"math"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/metrics"
	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

func corridorController(t *testing.T, listener simulation.TaskListener) (*simulation.Controller, graph.NodeID) {
	t.Helper()
	g := graph.New()
	a, err := g.AddWaypoint("A", 0, 0, 0, graph.RoleNone, "")
	require.NoError(t, err)
	b, err := g.AddWaypoint("B", 1, 0, 0, graph.RoleNone, "")
	require.NoError(t, err)
	require.NoError(t, g.ConnectBoth(a, b))

	c := simulation.NewController(warehouse.New(g), pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(listener))
	_, err = c.AddBot(1, a, kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 1, TurnSpeed: math.Pi}, 0)
	require.NoError(t, err)
	return c, b
}

func TestSimulationMetricsCollector_RegistersOnce(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })

	collector := metrics.NewSimulationMetricsCollector()
	require.NoError(t, collector.Register())

	assert.Error(t, collector.Register())
}

func TestSimulationMetricsCollector_RegisterWithoutRegistry(t *testing.T) {
	metrics.Registry = nil

	assert.NoError(t, metrics.NewSimulationMetricsCollector().Register())
	assert.False(t, metrics.IsEnabled())
}

func TestSimulationMetricsCollector_ObservesSteps(t *testing.T) {
	// Arrange
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })
	collector := metrics.NewSimulationMetricsCollector()
	require.NoError(t, collector.Register())
	c, dest := corridorController(t, collector)
	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: dest}))

	// Act
	for c.Now() < 5 {
		require.NoError(t, c.Step(context.Background()))
		collector.StepCompleted(c.Now(), c.Stats(), c.Bots())
	}

	// Assert
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `robofleet_simulation_tasks_total{kind="relocate",outcome="completed"} 1`)
	assert.Contains(t, body, `robofleet_simulation_bots{activity="idle"} 1`)
	assert.Contains(t, body, "robofleet_simulation_steps_total "+strconv.Itoa(c.Stats().Steps))

	count, err := testutil.GatherAndCount(metrics.Registry, "robofleet_simulation_events_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestSimulationMetricsCollector_NewRunResetsBaseline(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })
	collector := metrics.NewSimulationMetricsCollector()
	require.NoError(t, collector.Register())

	collector.StepCompleted(10, shared.SimulationStats{Steps: 10, ReservationsGranted: 4}, nil)
	collector.StepCompleted(1, shared.SimulationStats{Steps: 1, ReservationsGranted: 1}, nil)

	expected := `
# HELP robofleet_simulation_steps_total Simulation steps taken
# TYPE robofleet_simulation_steps_total counter
robofleet_simulation_steps_total 11
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry, strings.NewReader(expected), "robofleet_simulation_steps_total"))
}

func TestPrometheusMiddleware_RecordsCommands(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })
	commands := metrics.NewCommandMetricsCollector()
	require.NoError(t, commands.Register())

	m := common.NewMediator()
	m.Use(metrics.PrometheusMiddleware(commands))
	require.NoError(t, m.Register(reflect.TypeOf(&pingQuery{}), common.HandlerFunc(func(context.Context, common.Request) (common.Response, error) {
		return "pong", nil
	})))

	resp, err := m.Send(context.Background(), &pingQuery{})

	require.NoError(t, err)
	assert.Equal(t, "pong", resp)
	count, err := testutil.GatherAndCount(metrics.Registry, "robofleet_mediator_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type pingQuery struct{}
