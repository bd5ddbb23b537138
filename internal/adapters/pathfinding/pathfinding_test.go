package pathfinding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

type layout struct {
	g     *graph.Graph
	nodes map[string]graph.NodeID
	kin   *kinematics.Model
}

// newCross builds a plus-shaped junction: W-M-E and N-M-S, 1m arms
func newCross(t *testing.T) *layout {
	t.Helper()
	g := graph.New()
	nodes := make(map[string]graph.NodeID)
	for sym, xy := range map[string][2]float64{"W": {-1, 0}, "M": {0, 0}, "E": {1, 0}, "N": {0, 1}, "S": {0, -1}} {
		id, err := g.AddWaypoint(sym, xy[0], xy[1], 0, graph.RoleNone, "")
		require.NoError(t, err)
		nodes[sym] = id
	}
	for _, arm := range []string{"W", "E", "N", "S"} {
		require.NoError(t, g.ConnectBoth(nodes[arm], nodes["M"]))
	}
	kin, err := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: math.Pi}, kinematics.DefaultTolerance)
	require.NoError(t, err)
	return &layout{g: g, nodes: nodes, kin: kin}
}

func (l *layout) agent(id int, from, to string, orientation float64) routing.AgentSnapshot {
	return routing.AgentSnapshot{
		ID:          id,
		Start:       l.nodes[from],
		Destination: l.nodes[to],
		Orientation: orientation,
		Kinematics:  l.kin,
	}
}

func TestShortest_RoutesFlaggedAgentsOnly(t *testing.T) {
	l := newCross(t)
	fixed := l.agent(2, "N", "S", 0)
	fixed.Fixed = true
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{l.agent(1, "W", "E", 0), fixed}}

	paths, err := NewShortest().FindPaths(context.Background(), req)

	require.NoError(t, err)
	require.Contains(t, paths, 1)
	assert.NotContains(t, paths, 2)
	assert.Equal(t, []graph.NodeID{l.nodes["M"], l.nodes["E"]}, paths[1].Nodes())
	last, _ := paths[1].Last()
	assert.True(t, last.Stop)
}

func TestShortest_DetoursAroundParkedAgent(t *testing.T) {
	l := newCross(t)
	// a second way from W to E over the north arm
	ne, err := l.g.AddWaypoint("NE", 1, 1, 0, graph.RoleNone, "")
	require.NoError(t, err)
	require.NoError(t, l.g.ConnectBoth(l.nodes["N"], ne))
	require.NoError(t, l.g.ConnectBoth(ne, l.nodes["E"]))
	require.NoError(t, l.g.ConnectBoth(l.nodes["W"], l.nodes["N"]))
	held := reservation.NewTable(kinematics.DefaultTolerance)
	ok, _ := held.Register(7, []reservation.Interval{{Node: l.nodes["M"], Start: 0, End: math.Inf(1)}})
	require.True(t, ok)
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{l.agent(1, "W", "E", 0)}, Reservations: held}

	paths, err := NewShortest().FindPaths(context.Background(), req)

	require.NoError(t, err)
	require.Contains(t, paths, 1)
	assert.Equal(t, []graph.NodeID{l.nodes["N"], ne, l.nodes["E"]}, paths[1].Nodes())
}

func TestShortest_KeepsStraightRouteWhenNoDetourOrHoldEnds(t *testing.T) {
	l := newCross(t)
	held := reservation.NewTable(kinematics.DefaultTolerance)
	// a passing agent is left to the table at drive time
	ok, _ := held.Register(8, []reservation.Interval{{Node: l.nodes["M"], Start: 0, End: 5}})
	require.True(t, ok)
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{l.agent(1, "W", "E", 0)}, Reservations: held}

	paths, err := NewShortest().FindPaths(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{l.nodes["M"], l.nodes["E"]}, paths[1].Nodes())

	// parked for good, but the junction is the only way through
	parked := reservation.NewTable(kinematics.DefaultTolerance)
	ok, _ = parked.Register(7, []reservation.Interval{{Node: l.nodes["M"], Start: 0, End: math.Inf(1)}})
	require.True(t, ok)
	req.Reservations = parked

	paths, err = NewShortest().FindPaths(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{l.nodes["M"], l.nodes["E"]}, paths[1].Nodes())
}

func TestPrioritized_StraightThroughFreeJunction(t *testing.T) {
	l := newCross(t)
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{l.agent(1, "W", "E", 0)}}

	paths, err := NewPrioritized(60, 0.5, 0).FindPaths(context.Background(), req)

	require.NoError(t, err)
	require.Contains(t, paths, 1)
	p := paths[1]
	assert.Equal(t, []graph.NodeID{l.nodes["M"], l.nodes["E"]}, p.Nodes())
	assert.Zero(t, p.At(0).Wait)
	assert.True(t, p.At(1).Stop)
}

func TestPrioritized_WaitsForReservedJunction(t *testing.T) {
	l := newCross(t)
	held := reservation.NewTable(kinematics.DefaultTolerance)
	ok, _ := held.Register(7, []reservation.Interval{{Node: l.nodes["M"], Start: 0, End: 5}})
	require.True(t, ok)
	req := routing.Request{
		Graph:        l.g,
		Agents:       []routing.AgentSnapshot{l.agent(1, "W", "E", 0)},
		Reservations: held,
	}

	paths, err := NewPrioritized(60, 0.5, 0).FindPaths(context.Background(), req)

	require.NoError(t, err)
	p := paths[1]
	require.Equal(t, 3, p.Len())
	assert.Equal(t, l.nodes["W"], p.At(0).Node)
	assert.InDelta(t, 5.0, p.At(0).Wait, 1e-6)
	assert.Equal(t, l.nodes["E"], p.At(2).Node)
}

func TestPrioritized_LaterAgentsAvoidEarlierPlans(t *testing.T) {
	l := newCross(t)
	p := NewPrioritized(60, 0.5, 0)
	req := routing.Request{Graph: l.g}
	first := l.agent(1, "W", "E", 0)
	second := l.agent(2, "N", "S", -math.Pi/2)
	local := reservation.NewTable(kinematics.DefaultTolerance)

	path1, iv1 := p.plan(req, local, first)
	require.NotNil(t, path1)
	local.Add(iv1, 1)
	path2, iv2 := p.plan(req, local, second)
	require.NotNil(t, path2)
	local.Add(iv2, 2)

	assert.NoError(t, local.Validate())
	// each 1m hop takes 2s from standstill; the junction is clear at t=4
	assert.Equal(t, l.nodes["N"], path2.At(0).Node)
	assert.InDelta(t, 4.0, path2.At(0).Wait, 1e-6)
	assert.Equal(t, []graph.NodeID{l.nodes["N"], l.nodes["M"], l.nodes["S"]}, path2.Nodes())
}

func TestPrioritized_UnreachableGoalIsSkipped(t *testing.T) {
	l := newCross(t)
	island, err := l.g.AddWaypoint("I", 5, 5, 0, graph.RoleNone, "")
	require.NoError(t, err)
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{{
		ID: 1, Start: l.nodes["W"], Destination: island, Kinematics: l.kin,
	}}}

	paths, err := NewPrioritized(60, 0.5, 0).FindPaths(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPrioritized_HonoursCancellation(t *testing.T) {
	l := newCross(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := routing.Request{Graph: l.g, Agents: []routing.AgentSnapshot{l.agent(1, "W", "E", 0)}}

	_, err := NewPrioritized(60, 0.5, 0).FindPaths(ctx, req)

	assert.ErrorIs(t, err, context.Canceled)
}
