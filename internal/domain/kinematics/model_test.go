package kinematics_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
)

func newModel(t *testing.T) *kinematics.Model {
	t.Helper()
	m, err := kinematics.NewModel(kinematics.Limits{
		MaxAcceleration: 1,
		MaxDeceleration: 1,
		MaxVelocity:     2,
		TurnSpeed:       1,
	}, 1e-6)
	require.NoError(t, err)
	return m
}

func TestNewModel_RejectsNonPositiveLimits(t *testing.T) {
	_, err := kinematics.NewModel(kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 0, MaxVelocity: 1, TurnSpeed: 1}, 0)
	assert.Error(t, err)
}

func TestPlan_TrapezoidalProfile(t *testing.T) {
	m := newModel(t)

	p := m.Plan(0, 10)

	// 2s to reach vmax (2m), 3s cruise (6m), 2s to stop (2m)
	assert.InDelta(t, 7.0, p.Duration(), 1e-9)
	assert.InDelta(t, 2.0, p.PeakSpeed(), 1e-9)
	assert.InDelta(t, 2.0, p.DistanceAt(2), 1e-9)
	assert.InDelta(t, 8.0, p.DistanceAt(5), 1e-9)
	assert.InDelta(t, 2.0, p.SpeedAt(3), 1e-9)
	assert.InDelta(t, 0.0, p.SpeedAt(7), 1e-9)
}

func TestPlan_TriangularProfile(t *testing.T) {
	m := newModel(t)

	p := m.Plan(0, 1)

	assert.InDelta(t, 1.0, p.PeakSpeed(), 1e-9)
	assert.InDelta(t, 2.0, p.Duration(), 1e-9)
}

func TestPlan_DecelerationOnly(t *testing.T) {
	m := newModel(t)

	// braking distance at 2 m/s is 2m, only 1m available
	p := m.Plan(2, 1)

	assert.InDelta(t, 1.0, p.Duration(), 1e-9)
	assert.InDelta(t, 1.0, p.Distance(), 1e-9)
	assert.InDelta(t, 0.0, p.SpeedAt(p.Duration()), 1e-9)
}

func TestPlan_ZeroDistanceHasZeroDuration(t *testing.T) {
	m := newModel(t)

	assert.Equal(t, 0.0, m.TravelTime(0, 0))
	assert.Equal(t, 0.0, m.TravelTime(1.5, 0))
}

func TestPlan_IntegratedDistanceMatchesTotal(t *testing.T) {
	m := newModel(t)

	cases := []struct {
		name  string
		speed float64
		dist  float64
	}{
		{"standstill long", 0, 25},
		{"standstill short", 0, 0.4},
		{"moving long", 1.2, 12},
		{"moving short", 1.8, 0.9},
		{"at vmax", 2, 6},
		{"zero distance", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := m.Plan(tc.speed, tc.dist)
			dt := 0.01
			covered := 0.0
			last := 0.0
			for elapsed := dt; elapsed < p.Duration()+dt; elapsed += dt {
				s := p.DistanceAt(elapsed)
				covered += s - last
				last = s
			}
			assert.InDelta(t, tc.dist, covered, 1e-6)
		})
	}
}

func TestProfile_TimeAtInvertsDistanceAt(t *testing.T) {
	m := newModel(t)
	p := m.Plan(0.5, 9)

	for _, elapsed := range []float64{0.3, 1.2, 2.5, 4.0, p.Duration() - 0.2} {
		s := p.DistanceAt(elapsed)
		assert.InDelta(t, elapsed, p.TimeAt(s), 1e-6)
	}
}

func TestTurnTime_ShorterDirection(t *testing.T) {
	m := newModel(t)

	assert.InDelta(t, math.Pi/2, m.TurnTime(0, math.Pi/2), 1e-9)
	assert.InDelta(t, 0.2, m.TurnTime(0.1, 2*math.Pi-0.1), 1e-9)
	assert.Equal(t, 0.0, m.TurnTime(1, 1))
}

func TestOrientationAt_PartialAndComplete(t *testing.T) {
	m := newModel(t)

	assert.InDelta(t, 0.5, m.OrientationAt(0, math.Pi/2, 0.5), 1e-9)
	assert.InDelta(t, math.Pi/2, m.OrientationAt(0, math.Pi/2, 10), 1e-9)
	// clockwise through zero
	assert.InDelta(t, 2*math.Pi-0.5, m.OrientationAt(0, 3*math.Pi/2, 0.5), 1e-9)
}

func TestBrakingDistance(t *testing.T) {
	m := newModel(t)

	assert.InDelta(t, 2.0, m.BrakingDistance(2), 1e-9)
	assert.Equal(t, 0.0, m.BrakingDistance(0))
}
