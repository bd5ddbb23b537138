package commands_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/application/simulation/commands"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

func loopSetup(t *testing.T) simulation.Setup {
	t.Helper()
	g := graph.New()
	var ids []graph.NodeID
	for i, sym := range []string{"A", "B", "C", "D"} {
		id, err := g.AddWaypoint(sym, float64(i%2), float64(i/2), 0, graph.RoleNone, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, g.ConnectBoth(ids[0], ids[1]))
	require.NoError(t, g.ConnectBoth(ids[0], ids[2]))
	require.NoError(t, g.ConnectBoth(ids[1], ids[3]))
	require.NoError(t, g.ConnectBoth(ids[2], ids[3]))
	limits := kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 1, TurnSpeed: math.Pi}
	return simulation.Setup{
		Name:      "loop",
		Warehouse: warehouse.New(g),
		Bots:      []simulation.BotSpec{{ID: 1, Start: ids[0], Limits: limits}},
		Seed:      5,
	}
}

func factory(ctx context.Context, setup simulation.Setup) (*simulation.Session, error) {
	build := func(l simulation.TaskListener) *simulation.Controller {
		return simulation.NewController(setup.Warehouse, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(l))
	}
	return simulation.NewSession(setup, build, simulation.DefaultDispatchSettings(), nil)
}

func TestRunSimulationHandler_ThroughMediator(t *testing.T) {
	m := common.NewMediator()
	require.NoError(t, m.Register(reflect.TypeOf(&commands.RunSimulationCommand{}), commands.NewRunSimulationHandler(factory)))

	resp, err := m.Send(context.Background(), &commands.RunSimulationCommand{Setup: loopSetup(t), Duration: 12})

	require.NoError(t, err)
	result, ok := resp.(*commands.RunSimulationResponse)
	require.True(t, ok)
	assert.Equal(t, shared.LifecycleStatusCompleted, result.Run.Status())
	assert.GreaterOrEqual(t, result.Stats.SimulatedTime, 12.0)
	assert.InDelta(t, result.Stats.SimulatedTime, result.Run.SimulatedSeconds(), 1e-9)
}

func TestRunSimulationHandler_RejectsNonPositiveDuration(t *testing.T) {
	h := commands.NewRunSimulationHandler(factory)

	_, err := h.Handle(context.Background(), &commands.RunSimulationCommand{Setup: loopSetup(t)})

	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRunSimulationHandler_FactoryError(t *testing.T) {
	h := commands.NewRunSimulationHandler(func(context.Context, simulation.Setup) (*simulation.Session, error) {
		return nil, errors.New("no scenario")
	})

	_, err := h.Handle(context.Background(), &commands.RunSimulationCommand{Duration: 1})

	assert.ErrorContains(t, err, "failed to prepare simulation")
}

func TestRunSimulationHandler_WrongRequestType(t *testing.T) {
	h := commands.NewRunSimulationHandler(factory)

	_, err := h.Handle(context.Background(), "run")

	assert.Error(t, err)
}
