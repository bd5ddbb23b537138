package navigation_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/andrescamacho/robofleet/internal/application/navigation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

type corridor struct {
	g     *graph.Graph
	w     *warehouse.Warehouse
	nodes map[string]graph.NodeID
	kin   *kinematics.Model
	stats *shared.SimulationStats
}

// newCorridor builds A-B-C-D-E, 1m apart and connected both ways, plus an
// unconnected node X
func newCorridor(t *testing.T) *corridor {
	t.Helper()
	g := graph.New()
	nodes := make(map[string]graph.NodeID)
	for i, sym := range []string{"A", "B", "C", "D", "E"} {
		id, err := g.AddWaypoint(sym, float64(i), 0, 0, graph.RoleNone, "")
		require.NoError(t, err)
		nodes[sym] = id
	}
	x, err := g.AddWaypoint("X", 0, 5, 0, graph.RoleNone, "")
	require.NoError(t, err)
	nodes["X"] = x
	for _, pair := range [][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "E"}} {
		require.NoError(t, g.ConnectBoth(nodes[pair[0]], nodes[pair[1]]))
	}
	kin, err := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: math.Pi}, kinematics.DefaultTolerance)
	require.NoError(t, err)
	return &corridor{g: g, w: warehouse.New(g), nodes: nodes, kin: kin, stats: shared.NewSimulationStats()}
}

func (c *corridor) bot(t *testing.T, pm *navigation.PathManager, id int, at string) *agent.Bot {
	t.Helper()
	b, err := agent.NewBot(id, c.g, c.nodes[at], c.kin, 0)
	require.NoError(t, err)
	require.NoError(t, pm.AddBot(b, 0))
	return b
}

func (c *corridor) env(pm *navigation.PathManager) *agent.Env {
	return &agent.Env{Nav: pm, Warehouse: c.w, Stats: c.stats, Settings: agent.DefaultSettings()}
}

// straightFinder sends every flagged agent along the corridor
func (c *corridor) straightFinder(calls *int) routing.PathFinder {
	return routing.PathFinderFunc(func(_ context.Context, req routing.Request) (map[int]*routing.Path, error) {
		*calls++
		out := make(map[int]*routing.Path)
		for _, a := range req.Agents {
			if a.Fixed {
				continue
			}
			route := graph.NewReverseSearch(req.Graph, a.Destination).Route(a.Start)
			out[a.ID] = routing.PathThrough(route...)
		}
		return out, nil
	})
}

func (c *corridor) manager(finder routing.PathFinder, opts ...navigation.Option) *navigation.PathManager {
	settings := navigation.DefaultSettings()
	settings.MinClockInterval = 0
	opts = append([]navigation.Option{navigation.WithStats(c.stats)}, opts...)
	return navigation.NewPathManager(c.w, finder, kinematics.DefaultTolerance, settings, opts...)
}

func TestAddBot_ReservesStartNode(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))

	c.bot(t, pm, 1, "A")

	held := pm.Table().Intervals(c.nodes["A"])
	require.Len(t, held, 1)
	assert.Equal(t, 1, held[0].Owner)
	assert.True(t, math.IsInf(held[0].End, 1))
	assert.False(t, pm.Table().IsFree(c.nodes["A"], 5, 6, 2))

	other, err := agent.NewBot(2, c.g, c.nodes["A"], c.kin, 0)
	require.NoError(t, err)
	err = pm.AddBot(other, 0)
	var conflict *shared.ReservationConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestRegisterNextWaypoint_RefusesOccupiedRun(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))
	b1 := c.bot(t, pm, 1, "A")
	c.bot(t, pm, 2, "C")

	ok, blockers := pm.RegisterNextWaypoint(b1, 0, 0, 0, []graph.NodeID{c.nodes["A"], c.nodes["B"], c.nodes["C"]})

	assert.False(t, ok)
	assert.Equal(t, []int{2}, blockers)
	// the standing reservation survives the refusal
	held := pm.Table().Intervals(c.nodes["A"])
	require.Len(t, held, 1)
	assert.Equal(t, 1, held[0].Owner)
	assert.Empty(t, pm.Table().Intervals(c.nodes["B"]))

	ok, blockers = pm.RegisterNextWaypoint(b1, 0, 0, 0, []graph.NodeID{c.nodes["A"], c.nodes["B"]})
	assert.True(t, ok)
	assert.Empty(t, blockers)
	assert.NoError(t, pm.Validate())
}

func TestUpdate_SweepAssignsPathsToFlaggedBots(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))
	env := c.env(pm)
	b1 := c.bot(t, pm, 1, "A")
	b2 := c.bot(t, pm, 2, "E")
	require.NoError(t, b1.AssignTask(&task.Relocate{Destination: c.nodes["C"]}, 0, env))
	b1.Update(0, 0, env)
	require.True(t, b1.NeedsReoptimization())

	require.NoError(t, pm.Update(context.Background(), 0, 0))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []graph.NodeID{c.nodes["B"], c.nodes["C"]}, b1.Path().Nodes())
	assert.False(t, b1.NeedsReoptimization())
	assert.False(t, b2.HasPath())
	assert.Equal(t, 1, c.stats.ReoptimizationSweeps)
	assert.Equal(t, 1, c.stats.PathsAssigned)

	// nothing flagged, no sweep
	require.NoError(t, pm.Update(context.Background(), 0, 0.5))
	assert.Equal(t, 1, calls)
}

func TestUpdate_UnroutedBotWaitsForRetryBeforeNextSweep(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	nothing := routing.PathFinderFunc(func(context.Context, routing.Request) (map[int]*routing.Path, error) {
		calls++
		return map[int]*routing.Path{}, nil
	})
	pm := c.manager(nothing)
	env := c.env(pm)
	b := c.bot(t, pm, 1, "A")
	require.NoError(t, b.AssignTask(&task.Relocate{Destination: c.nodes["C"]}, 0, env))
	b.Update(0, 0, env)

	require.NoError(t, pm.Update(context.Background(), 0, 0))
	assert.Equal(t, 1, calls)
	assert.False(t, b.NeedsReoptimization())
	assert.False(t, b.HasPath())

	// no sweep until the bot's Move asks again
	require.NoError(t, pm.Update(context.Background(), 0, 0.2))
	assert.Equal(t, 1, calls)

	b.Update(0.2, 0.5, env)
	require.True(t, b.NeedsReoptimization())
	require.NoError(t, pm.Update(context.Background(), 0.2, 0.5))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, c.stats.ReoptimizationSweeps)
	assert.Zero(t, c.stats.PathsAssigned)
}

func TestUpdate_FallsBackWhenFinderFails(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	failing := routing.PathFinderFunc(func(context.Context, routing.Request) (map[int]*routing.Path, error) {
		return nil, errors.New("solver crashed")
	})
	pm := c.manager(failing, navigation.WithFallback(c.straightFinder(&calls), navigation.DefaultBreakerSettings()))
	env := c.env(pm)
	b := c.bot(t, pm, 1, "A")
	require.NoError(t, b.AssignTask(&task.Relocate{Destination: c.nodes["B"]}, 0, env))
	b.Update(0, 0, env)

	require.NoError(t, pm.Update(context.Background(), 0, 0))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.stats.PathFinderFailures)
	assert.Equal(t, []graph.NodeID{c.nodes["B"]}, b.Path().Nodes())
	assert.Equal(t, "closed", pm.FinderState())
}

func TestUpdate_FinderErrorWithoutFallback(t *testing.T) {
	c := newCorridor(t)
	failing := routing.PathFinderFunc(func(context.Context, routing.Request) (map[int]*routing.Path, error) {
		return nil, errors.New("solver crashed")
	})
	pm := c.manager(failing)
	env := c.env(pm)
	b := c.bot(t, pm, 1, "A")
	require.NoError(t, b.AssignTask(&task.Relocate{Destination: c.nodes["B"]}, 0, env))
	b.Update(0, 0, env)

	err := pm.Update(context.Background(), 0, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver crashed")
	assert.Equal(t, 1, c.stats.PathFinderFailures)
	assert.True(t, b.NeedsReoptimization())
}

func TestSweep_RecordsSpan(t *testing.T) {
	c := newCorridor(t)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	calls := 0
	pm := c.manager(c.straightFinder(&calls), navigation.WithTracer(provider.Tracer("test")))
	env := c.env(pm)
	b := c.bot(t, pm, 1, "A")
	require.NoError(t, b.AssignTask(&task.Relocate{Destination: c.nodes["D"]}, 0, env))
	b.Update(0, 0, env)

	require.NoError(t, pm.Update(context.Background(), 0, 0))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "navigation.reoptimize", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("paths.assigned", 1))
}

func TestAbortDrive_StopsAtNearestNode(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))
	env := c.env(pm)
	b := c.bot(t, pm, 1, "A")
	require.NoError(t, b.AssignTask(&task.Relocate{Destination: c.nodes["E"]}, 0, env))
	b.Update(0, 0, env)
	require.NoError(t, pm.Update(context.Background(), 0, 0))
	b.Update(0, 0, env)
	require.NotEmpty(t, pm.Table().Intervals(c.nodes["E"]))

	// half a metre in at 1 m/s: braking needs another half metre, so B
	b.Advance(c.g, 1, c.stats)
	pm.AbortDrive(b, 1)

	assert.Empty(t, pm.Table().Intervals(c.nodes["E"]))
	assert.Empty(t, pm.Table().Intervals(c.nodes["C"]))
	held := pm.Table().Intervals(c.nodes["B"])
	require.Len(t, held, 1)
	assert.True(t, math.IsInf(held[0].End, 1))
	assert.True(t, b.NeedsReoptimization())
	assert.Equal(t, 1, b.Counters().Aborts)
	assert.Equal(t, 1, c.stats.DriveAborts)

	b.Advance(c.g, 3, c.stats)
	assert.Equal(t, c.nodes["B"], b.CurrentNode())
	assert.NoError(t, pm.Validate())
}

func TestForceAbort_VisitsEachBotOnce(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))
	b1 := c.bot(t, pm, 1, "A")
	b2 := c.bot(t, pm, 2, "C")

	pm.ForceAbort([]int{1, 2, 1, 2, 99}, 4)

	assert.Equal(t, 2, c.stats.DriveAborts)
	assert.Equal(t, 1, b1.Counters().Aborts)
	assert.Equal(t, 1, b2.Counters().Aborts)
	held := pm.Table().Intervals(c.nodes["C"])
	require.Len(t, held, 1)
	assert.Equal(t, 4.0, held[0].Start)
	assert.NoError(t, pm.Validate())
}

func TestPredictArrivalTime(t *testing.T) {
	c := newCorridor(t)
	calls := 0
	pm := c.manager(c.straightFinder(&calls))
	b := c.bot(t, pm, 1, "A")

	// 4m from standstill: 2s up to 2 m/s, 2s down again
	assert.InDelta(t, 4.0, pm.PredictArrivalTime(b, c.nodes["E"], 0, true), 1e-6)
	assert.InDelta(t, 10.0, pm.PredictArrivalTime(b, c.nodes["A"], 10, false), 1e-6)
	assert.True(t, math.IsInf(pm.PredictArrivalTime(b, c.nodes["X"], 0, true), 1))

	// facing west first costs a half turn at pi rad/s
	c2 := newCorridor(t)
	pm2 := c2.manager(c2.straightFinder(&calls))
	east := c2.bot(t, pm2, 1, "E")
	assert.InDelta(t, 5.0, pm2.PredictArrivalTime(east, c2.nodes["A"], 0, true), 1e-6)
}
