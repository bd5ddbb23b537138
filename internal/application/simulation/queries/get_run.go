package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// GetRunQuery fetches one persisted run with its bots and task outcomes
type GetRunQuery struct {
	RunID string
	// EventLimit caps the number of task events returned
	EventLimit int
}

// GetRunResponse is a persisted run in detail
type GetRunResponse struct {
	Run      *run.Summary
	Bots     []run.BotRecord
	Events   []run.TaskEvent
	Outcomes map[run.Outcome]int
}

// GetRunHandler handles the GetRun query
type GetRunHandler struct {
	runs   run.RunRepository
	bots   run.BotRecordRepository
	events run.TaskEventRepository
}

func NewGetRunHandler(runs run.RunRepository, bots run.BotRecordRepository, events run.TaskEventRepository) *GetRunHandler {
	return &GetRunHandler{runs: runs, bots: bots, events: events}
}

// Handle executes the GetRun query
func (h *GetRunHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*GetRunQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetRunQuery")
	}
	if query.RunID == "" {
		return nil, fmt.Errorf("run id must be provided")
	}

	summary, err := h.runs.FindByID(ctx, query.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	bots, err := h.bots.FindByRun(ctx, query.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bot statistics: %w", err)
	}
	events, err := h.events.FindByRun(ctx, query.RunID, query.EventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load task events: %w", err)
	}
	outcomes, err := h.events.CountByOutcome(ctx, query.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to count task outcomes: %w", err)
	}

	return &GetRunResponse{Run: summary, Bots: bots, Events: events, Outcomes: outcomes}, nil
}
