package simulation_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

var limits = kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: math.Pi}

// corridor builds A-B-C-D on tier 0 and an unconnected Z on tier 1
func corridor(t *testing.T) (*warehouse.Warehouse, map[string]graph.NodeID) {
	t.Helper()
	g := graph.New()
	nodes := make(map[string]graph.NodeID)
	for i, sym := range []string{"A", "B", "C", "D"} {
		id, err := g.AddWaypoint(sym, float64(i), 0, 0, graph.RoleNone, "")
		require.NoError(t, err)
		nodes[sym] = id
	}
	z, err := g.AddWaypoint("Z", 0, 0, 1, graph.RoleNone, "")
	require.NoError(t, err)
	nodes["Z"] = z
	for _, pair := range [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}} {
		require.NoError(t, g.ConnectBoth(nodes[pair[0]], nodes[pair[1]]))
	}
	return warehouse.New(g), nodes
}

type outcomes struct {
	completed []int
	aborted   []int
}

func (o *outcomes) TaskCompleted(b *agent.Bot, _ task.Task, _ float64) {
	o.completed = append(o.completed, b.ID())
}
func (o *outcomes) TaskAborted(b *agent.Bot, _ task.Task, _ error, _ float64) {
	o.aborted = append(o.aborted, b.ID())
}
func (o *outcomes) TaskCancelled(*agent.Bot, task.Task, float64) {}

func TestController_StraightLineRelocation(t *testing.T) {
	// Arrange
	w, nodes := corridor(t)
	seen := &outcomes{}
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(seen))
	_, err := c.AddBot(1, nodes["A"], limits, 0)
	require.NoError(t, err)

	// Act
	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: nodes["C"]}))
	require.NoError(t, c.Run(context.Background(), 10))

	// Assert
	x, y, tier, err := c.Position(1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, x, 1e-9)
	assert.InDelta(t, 0.0, y, 1e-9)
	assert.Equal(t, 0, tier)
	assert.Equal(t, []int{1}, seen.completed)
	stats := c.Stats()
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.InDelta(t, 2.0, stats.DistanceTraveled, 1e-6)
	assert.GreaterOrEqual(t, stats.SimulatedTime, 10.0)
	assert.NoError(t, c.Paths().Validate())
	held := c.Paths().Table().Intervals(nodes["C"])
	require.NotEmpty(t, held)
	assert.True(t, math.IsInf(held[len(held)-1].End, 1))
}

// passingBays builds the corridor A0..A4 with a bay P north of A3 (A2-P-A4)
// and a bay Q south of A1 (A2-Q-A0)
func passingBays(t *testing.T) (*warehouse.Warehouse, map[string]graph.NodeID) {
	t.Helper()
	g := graph.New()
	nodes := make(map[string]graph.NodeID)
	for i, sym := range []string{"A0", "A1", "A2", "A3", "A4"} {
		id, err := g.AddWaypoint(sym, float64(i), 0, 0, graph.RoleNone, "")
		require.NoError(t, err)
		nodes[sym] = id
	}
	p, err := g.AddWaypoint("P", 3, 1, 0, graph.RoleNone, "")
	require.NoError(t, err)
	nodes["P"] = p
	q, err := g.AddWaypoint("Q", 1, -1, 0, graph.RoleNone, "")
	require.NoError(t, err)
	nodes["Q"] = q
	for _, pair := range [][2]string{{"A0", "A1"}, {"A1", "A2"}, {"A2", "A3"}, {"A3", "A4"}, {"A2", "P"}, {"P", "A4"}, {"A2", "Q"}, {"Q", "A0"}} {
		require.NoError(t, g.ConnectBoth(nodes[pair[0]], nodes[pair[1]]))
	}
	return warehouse.New(g), nodes
}

func TestController_HeadOnBotsPassUnderShortestFinder(t *testing.T) {
	// each bot's straight route runs through the other's parking spot
	w, nodes := passingBays(t)
	seen := &outcomes{}
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(seen))
	_, err := c.AddBot(1, nodes["A1"], limits, 0)
	require.NoError(t, err)
	_, err = c.AddBot(2, nodes["A3"], limits, math.Pi)
	require.NoError(t, err)

	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: nodes["A4"]}))
	require.NoError(t, c.AssignTask(2, &task.Relocate{Destination: nodes["A0"]}))
	require.NoError(t, c.Run(context.Background(), 120))

	assert.ElementsMatch(t, []int{1, 2}, seen.completed)
	assert.Empty(t, seen.aborted)
	for id, want := range map[int]string{1: "A4", 2: "A0"} {
		x, _, _, err := c.Position(id)
		require.NoError(t, err)
		assert.InDelta(t, w.Graph.Waypoint(nodes[want]).X, x, 1e-9)
	}
	assert.NoError(t, c.Paths().Validate())
}

func TestController_UnknownBot(t *testing.T) {
	w, nodes := corridor(t)
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings())

	assert.ErrorIs(t, c.AssignTask(9, &task.Relocate{Destination: nodes["B"]}), shared.ErrUnknownBot)
	assert.ErrorIs(t, c.CancelTask(9), shared.ErrUnknownBot)
	_, err := c.IsResting(9)
	assert.ErrorIs(t, err, shared.ErrUnknownBot)
	_, err = c.PathOf(9)
	assert.ErrorIs(t, err, shared.ErrUnknownBot)
}

func TestController_StepsToNextEventWithinBounds(t *testing.T) {
	w, nodes := corridor(t)
	settings := simulation.DefaultSettings()
	settings.MaxStep = 2
	c := simulation.NewController(w, pathfinding.NewShortest(), settings)
	_, err := c.AddBot(1, nodes["A"], limits, 0)
	require.NoError(t, err)

	// nothing scheduled: a full step
	require.NoError(t, c.Step(context.Background()))
	assert.InDelta(t, 2.0, c.Now(), 1e-9)

	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: nodes["B"]}))
	require.NoError(t, c.Step(context.Background()))
	before := c.Now()
	require.NoError(t, c.Step(context.Background()))
	assert.LessOrEqual(t, c.Now()-before, settings.MaxStep+1e-9)
	assert.GreaterOrEqual(t, c.Now()-before, settings.MinStep-1e-9)

	assert.Error(t, c.AdvanceTo(context.Background(), 0))
}

func TestController_InvariantViolationHaltsTheRun(t *testing.T) {
	w, nodes := corridor(t)
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings())
	_, err := c.AddBot(1, nodes["A"], limits, 0)
	require.NoError(t, err)
	// a gather point on another tier makes the bot drive off its tier
	require.NoError(t, c.AssignTask(1, &task.MultiPointGather{Points: []task.GatherPoint{{Node: nodes["Z"], Helper: 2, Duration: 1}}}))

	err = c.Step(context.Background())

	var violation *shared.InvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.BotID)
	assert.Equal(t, err, c.Halted())
	assert.Equal(t, err, c.Step(context.Background()))
}

func TestController_PredictArrival(t *testing.T) {
	w, nodes := corridor(t)
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings())
	_, err := c.AddBot(1, nodes["A"], limits, 0)
	require.NoError(t, err)

	eta, err := c.PredictArrival(1, nodes["C"])
	require.NoError(t, err)
	// 2m with a=d=1 never reaches vmax: peak sqrt(2), trip 2*sqrt(2)
	assert.InDelta(t, 2*math.Sqrt2, eta, 1e-6)

	_, err = c.PredictArrival(1, graph.NodeID(999))
	assert.ErrorIs(t, err, shared.ErrUnknownWaypoint)
}

func newLayoutSession(t *testing.T, seed int64, opts ...simulation.SessionOption) *simulation.Session {
	t.Helper()
	w, err := warehouse.Build(warehouse.Layout{
		Tiers:   1,
		Columns: 6,
		Rows:    5,
		Spacing: 1,
		Stations: []warehouse.StationLayout{
			{ID: "out-1", Kind: warehouse.StationOutput, Column: 1, QueueLength: 3, HandlingTime: 0.5},
		},
		RestSlots:   2,
		Pods:        4,
		PodCapacity: 20,
		SKUs:        3,
		UnitsPerSKU: 6,
	})
	require.NoError(t, err)
	starts, err := warehouse.StartNodes(w, 2)
	require.NoError(t, err)
	setup := simulation.Setup{Name: "small-grid", Warehouse: w, Seed: seed}
	for i, n := range starts {
		setup.Bots = append(setup.Bots, simulation.BotSpec{ID: i + 1, Start: n, Limits: limits})
	}
	build := func(l simulation.TaskListener) *simulation.Controller {
		return simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(l))
	}
	s, err := simulation.NewSession(setup, build, simulation.DefaultDispatchSettings(), shared.NewMockClock(time.Unix(0, 0)), opts...)
	require.NoError(t, err)
	return s
}

func TestSession_CompletesAndIsDeterministic(t *testing.T) {
	first := newLayoutSession(t, 42)
	second := newLayoutSession(t, 42)

	require.NoError(t, first.Execute(context.Background(), 120))
	require.NoError(t, second.Execute(context.Background(), 120))

	assert.Equal(t, shared.LifecycleStatusCompleted, first.Run().Status())
	assert.Greater(t, first.Dispatcher().Orders(), 0)
	assert.Equal(t, first.Controller().Stats(), second.Controller().Stats())
	assert.Equal(t, len(first.Events()), len(second.Events()))
	assert.NoError(t, first.Controller().Paths().Validate())
	assert.InDelta(t, first.Controller().Now(), first.Run().SimulatedSeconds(), 1e-9)
}

func TestSession_CancelledContextStopsRun(t *testing.T) {
	s := newLayoutSession(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Execute(ctx, 60))

	assert.Equal(t, shared.LifecycleStatusStopped, s.Run().Status())
	assert.Zero(t, s.Controller().Stats().Steps)
}

func TestTaskLog_CountsOutcomes(t *testing.T) {
	w, nodes := corridor(t)
	log := simulation.NewTaskLog("run-1")
	c := simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(log))
	_, err := c.AddBot(1, nodes["A"], limits, 0)
	require.NoError(t, err)
	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: nodes["B"]}))
	require.NoError(t, c.Run(context.Background(), 6))
	require.NoError(t, c.AssignTask(1, &task.Relocate{Destination: nodes["D"]}))
	require.NoError(t, c.CancelTask(1))

	assert.Equal(t, 1, log.Count(run.OutcomeCompleted))
	assert.Equal(t, 1, log.Count(run.OutcomeCancelled))
	events := log.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "run-1", events[0].RunID)
	assert.Equal(t, string(task.KindRelocate), events[0].Kind)
}
