package scenario_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/scenario"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

var fleetLimits = kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 1.5, TurnSpeed: math.Pi / 2}

const twoTiers = `
name: two-tiers
seed: 7
layout:
  tiers: 2
  columns: 8
  rows: 5
  spacing: 1.2
  rest_slots: 2
  pods: 6
  pod_capacity: 30
  skus: 4
  units_per_sku: 10
  stations:
    - id: pick-1
      kind: output
      column: 1
      queue_length: 3
      handling_time: 2
    - id: rep-1
      kind: input
      tier: 1
      column: 2
      queue_length: 2
      handling_time: 3
  elevators:
    - id: lift
      column: 4
      tiers: [0, 1]
      queue_length: 2
      travel_time: 4
bots:
  count: 3
`

func TestParse_GeneratedPlacements(t *testing.T) {
	setup, err := scenario.Parse([]byte(twoTiers), fleetLimits, 1)

	require.NoError(t, err)
	assert.Equal(t, "two-tiers", setup.Name)
	assert.Equal(t, int64(7), setup.Seed)
	require.Len(t, setup.Bots, 3)
	for i, b := range setup.Bots {
		assert.Equal(t, i+1, b.ID)
		assert.Equal(t, fleetLimits, b.Limits)
	}
	assert.Len(t, setup.Warehouse.Stations, 2)
	assert.Len(t, setup.Warehouse.Elevators, 1)
}

func TestParse_ExplicitPlacements(t *testing.T) {
	doc := `
layout:
  columns: 5
  rows: 3
bots:
  kinematics:
    max_acceleration: 2
    max_deceleration: 2
    max_velocity: 3
    turn_speed: 1
  placements:
    - id: 4
      start: ` + warehouse.GridSymbol(0, 0, 0) + `
      orientation: 1.5
    - id: 9
      start: ` + warehouse.GridSymbol(0, 2, 2) + `
`
	setup, err := scenario.Parse([]byte(doc), fleetLimits, 11)

	require.NoError(t, err)
	assert.Equal(t, "unnamed", setup.Name)
	assert.Equal(t, int64(11), setup.Seed)
	require.Len(t, setup.Bots, 2)
	assert.Equal(t, 4, setup.Bots[0].ID)
	assert.InDelta(t, 1.5, setup.Bots[0].Orientation, 1e-12)
	assert.InDelta(t, 3.0, setup.Bots[1].Limits.MaxVelocity, 1e-12)
	start, ok := setup.Warehouse.Graph.ID(warehouse.GridSymbol(0, 2, 2))
	require.True(t, ok)
	assert.Equal(t, start, setup.Bots[1].Start)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "layout: {columns: 5, rows: 3}\nbots: {count: 1}\nextra: 1\n"},
		{"no bots", "layout: {columns: 5, rows: 3}\n"},
		{"bad station kind", "layout: {columns: 5, rows: 3, stations: [{id: s, kind: sorter, queue_length: 1}]}\nbots: {count: 1}\n"},
		{"grid too small", "layout: {columns: 2, rows: 3}\nbots: {count: 1}\n"},
		{"unknown start", "layout: {columns: 5, rows: 3}\nbots: {placements: [{id: 1, start: nowhere}]}\n"},
		{"duplicate bot", "layout: {columns: 5, rows: 3}\nbots: {placements: [{id: 1, start: T0-0-0}, {id: 1, start: T0-1-0}]}\n"},
		{"bad kinematics", "layout: {columns: 5, rows: 3}\nbots: {count: 1, kinematics: {max_velocity: 1}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(tt.doc), fleetLimits, 1)
			assert.Error(t, err)
		})
	}

	_, err := scenario.Parse([]byte("layout: {columns: 5, rows: 3}\nbots: {placements: [{id: 1, start: nowhere}]}\n"), fleetLimits, 1)
	assert.ErrorIs(t, err, shared.ErrUnknownWaypoint)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two-tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoTiers), 0o600))

	setup, err := scenario.Load(path, fleetLimits, 1)
	require.NoError(t, err)
	assert.Len(t, setup.Bots, 3)

	_, err = scenario.Load(filepath.Join(t.TempDir(), "missing.yaml"), fleetLimits, 1)
	assert.ErrorContains(t, err, "failed to read scenario")
}
