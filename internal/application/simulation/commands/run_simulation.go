package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// RunSimulationCommand simulates Setup for Duration seconds
type RunSimulationCommand struct {
	Setup    simulation.Setup
	Duration float64
}

// RunSimulationResponse is the outcome of a finished run
type RunSimulationResponse struct {
	Run    *run.Run
	Stats  shared.SimulationStats
	Events []run.TaskEvent
	Orders int
}

// SessionFactory builds a ready session for a setup
type SessionFactory func(ctx context.Context, setup simulation.Setup) (*simulation.Session, error)

// RunSimulationHandler handles the RunSimulation command
type RunSimulationHandler struct {
	newSession SessionFactory
}

func NewRunSimulationHandler(newSession SessionFactory) *RunSimulationHandler {
	return &RunSimulationHandler{newSession: newSession}
}

// Handle executes the RunSimulation command
func (h *RunSimulationHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*RunSimulationCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RunSimulationCommand")
	}
	if cmd.Duration <= 0 {
		return nil, shared.NewValidationError("duration", "must be positive")
	}

	session, err := h.newSession(ctx, cmd.Setup)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare simulation: %w", err)
	}

	logger := common.LoggerFromContext(ctx)
	logger.Log("INFO", "running simulation", map[string]interface{}{
		"run_id":   session.ID(),
		"scenario": cmd.Setup.Name,
		"duration": cmd.Duration,
	})

	resp := &RunSimulationResponse{Run: session.Run()}
	err = session.Execute(ctx, cmd.Duration)
	resp.Stats = session.Controller().Stats()
	resp.Events = session.Events()
	resp.Orders = session.Dispatcher().Orders()
	if err != nil {
		return resp, fmt.Errorf("simulation %s failed: %w", session.ID(), err)
	}
	return resp, nil
}
