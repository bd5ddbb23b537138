package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// ListRunsQuery lists the most recent runs
type ListRunsQuery struct {
	Limit int
}

type ListRunsResponse struct {
	Runs []*run.Summary
}

type ListRunsHandler struct {
	runs run.RunRepository
}

func NewListRunsHandler(runs run.RunRepository) *ListRunsHandler {
	return &ListRunsHandler{runs: runs}
}

// Handle executes the ListRuns query
func (h *ListRunsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*ListRunsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListRunsQuery")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := h.runs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return &ListRunsResponse{Runs: runs}, nil
}
