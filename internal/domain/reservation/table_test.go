package reservation_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
)

const tol = 1e-6

func iv(node graph.NodeID, start, end float64) reservation.Interval {
	return reservation.Interval{Node: node, Start: start, End: end, Owner: reservation.NoOwner}
}

func TestRegister_SecondClaimOnSameIntervalFails(t *testing.T) {
	// Arrange
	table := reservation.NewTable(tol)
	claim := []reservation.Interval{iv(7, 10, 12)}

	// Act
	okFirst, _ := table.Register(1, claim)
	okSecond, blockers := table.Register(2, claim)

	// Assert
	assert.True(t, okFirst)
	assert.False(t, okSecond)
	assert.Equal(t, []int{1}, blockers)
	chain := table.Chain(1)
	require.Len(t, chain, 1)
	assert.Equal(t, 10.0, chain[0].Start)
	assert.Equal(t, 12.0, chain[0].End)
	assert.NoError(t, table.Validate())
}

func TestRegister_FailureRestoresPreviousChain(t *testing.T) {
	table := reservation.NewTable(tol)
	require.True(t, first(table.Register(1, []reservation.Interval{iv(1, 0, math.Inf(1))})))
	require.True(t, first(table.Register(2, []reservation.Interval{iv(2, 0, math.Inf(1))})))

	ok, blockers := table.Register(1, []reservation.Interval{iv(1, 5, 6), iv(2, 5, math.Inf(1))})

	assert.False(t, ok)
	assert.Equal(t, []int{2}, blockers)
	chain := table.Chain(1)
	require.Len(t, chain, 1)
	assert.True(t, chain[0].Open())
	assert.Equal(t, graph.NodeID(1), chain[0].Node)
}

func TestRegister_ReplacesOwnChain(t *testing.T) {
	table := reservation.NewTable(tol)
	require.True(t, first(table.Register(1, []reservation.Interval{iv(1, 0, math.Inf(1))})))

	ok, _ := table.Register(1, []reservation.Interval{iv(1, 3, 5), iv(2, 4, math.Inf(1))})

	assert.True(t, ok)
	assert.Len(t, table.Chain(1), 2)
	assert.Len(t, table.Intervals(1), 1)
}

func TestIntersectionFree_TouchingIntervalsDoNotConflict(t *testing.T) {
	table := reservation.NewTable(tol)
	table.Add([]reservation.Interval{iv(3, 0, 5)}, 1)

	free, blockers := table.IntersectionFree([]reservation.Interval{iv(3, 5, 9)})

	assert.True(t, free)
	assert.Empty(t, blockers)
}

func TestRemove_IsIdempotent(t *testing.T) {
	table := reservation.NewTable(tol)
	table.Add([]reservation.Interval{iv(3, 0, 5)}, 1)
	chain := table.Chain(1)

	table.Remove(chain)
	table.Remove(chain)

	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Owners())
}

func TestReorganize_PurgesPastIntervals(t *testing.T) {
	table := reservation.NewTable(tol)
	table.Add([]reservation.Interval{iv(1, 0, 2), iv(2, 1, 4), iv(3, 3, math.Inf(1))}, 1)

	purged := table.Reorganize(3)

	assert.Equal(t, 1, purged)
	assert.Len(t, table.Chain(1), 2)
	assert.True(t, table.IsFree(1, 0, 10, 99))
}

func TestIsFree_IgnoresExceptedOwner(t *testing.T) {
	table := reservation.NewTable(tol)
	table.Add([]reservation.Interval{iv(4, 2, 6)}, 5)

	assert.True(t, table.IsFree(4, 0, 10, 5))
	assert.False(t, table.IsFree(4, 0, 10, 6))
	assert.True(t, table.IsFree(4, 6, 10, 6))
}

func TestRegister_RandomClaimsKeepExclusivity(t *testing.T) {
	table := reservation.NewTable(tol)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 2000; step++ {
		owner := rng.Intn(12)
		var claim []reservation.Interval
		start := rng.Float64() * 100
		for k := 0; k < 1+rng.Intn(4); k++ {
			end := start + rng.Float64()*5
			if rng.Intn(10) == 0 {
				end = math.Inf(1)
			}
			claim = append(claim, iv(graph.NodeID(rng.Intn(20)), start, end))
			start += rng.Float64() * 3
		}
		table.Register(owner, claim)
		if step%100 == 0 {
			table.Reorganize(float64(step) / 40)
		}
		require.NoError(t, table.Validate())
	}
}

func TestCreateRunIntervals_StraightRun(t *testing.T) {
	g := graph.New()
	a, _ := g.AddWaypoint("A", 0, 0, 0, graph.RoleNone, "")
	b, _ := g.AddWaypoint("B", 1, 0, 0, graph.RoleNone, "")
	c, _ := g.AddWaypoint("C", 2, 0, 0, graph.RoleNone, "")
	require.NoError(t, g.ConnectBoth(a, b))
	require.NoError(t, g.ConnectBoth(b, c))
	model, err := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: 1}, tol)
	require.NoError(t, err)

	intervals := reservation.CreateRunIntervals(g, model, 0, 0, 0, []graph.NodeID{a, b, c}, 0, true)

	require.Len(t, intervals, 3)
	assert.InDelta(t, 0.0, intervals[0].Start, 1e-9)
	assert.InDelta(t, math.Sqrt2, intervals[0].End, 1e-9)
	assert.InDelta(t, 0.0, intervals[1].Start, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, intervals[1].End, 1e-9)
	assert.InDelta(t, math.Sqrt2, intervals[2].Start, 1e-9)
	assert.True(t, intervals[2].Open())
}

func TestCreateIntervals_BlockedStartDelaysDeparture(t *testing.T) {
	g := graph.New()
	a, _ := g.AddWaypoint("A", 0, 0, 0, graph.RoleNone, "")
	b, _ := g.AddWaypoint("B", 1, 0, 0, graph.RoleNone, "")
	require.NoError(t, g.Connect(a, b))
	model, _ := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: 1}, tol)

	intervals := reservation.CreateIntervals(g, model, 10, 12, 0, a, b, false)

	require.Len(t, intervals, 2)
	assert.Equal(t, 10.0, intervals[0].Start)
	assert.InDelta(t, 14.0, intervals[0].End, 1e-9)
	assert.InDelta(t, 12.0, intervals[1].Start, 1e-9)
	assert.InDelta(t, 14.0, intervals[1].End, 1e-9)
}

func TestCreateIntervals_MissingEdgeReturnsNil(t *testing.T) {
	g := graph.New()
	a, _ := g.AddWaypoint("A", 0, 0, 0, graph.RoleNone, "")
	b, _ := g.AddWaypoint("B", 1, 0, 0, graph.RoleNone, "")
	model, _ := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 2, TurnSpeed: 1}, tol)

	assert.Nil(t, reservation.CreateIntervals(g, model, 0, 0, 0, a, b, true))
}

func first(ok bool, _ []int) bool {
	return ok
}
