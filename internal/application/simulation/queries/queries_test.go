package queries_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/application/simulation/queries"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

type stubRuns struct {
	summaries map[string]*run.Summary
	limit     int
}

func (s *stubRuns) Save(context.Context, *run.Run) error { return nil }
func (s *stubRuns) FindByID(_ context.Context, id string) (*run.Summary, error) {
	if r, ok := s.summaries[id]; ok {
		return r, nil
	}
	return nil, errors.New("run not found")
}
func (s *stubRuns) List(_ context.Context, limit int) ([]*run.Summary, error) {
	s.limit = limit
	out := make([]*run.Summary, 0, len(s.summaries))
	for _, r := range s.summaries {
		out = append(out, r)
	}
	return out, nil
}

type stubBots struct{}

func (stubBots) SaveAll(context.Context, []run.BotRecord) error { return nil }
func (stubBots) FindByRun(_ context.Context, runID string) ([]run.BotRecord, error) {
	return []run.BotRecord{{RunID: runID, BotID: 1}, {RunID: runID, BotID: 2}}, nil
}

type stubEvents struct{ limit int }

func (s *stubEvents) Add(context.Context, []run.TaskEvent) error { return nil }
func (s *stubEvents) FindByRun(_ context.Context, runID string, limit int) ([]run.TaskEvent, error) {
	s.limit = limit
	return []run.TaskEvent{{RunID: runID, BotID: 1, Outcome: run.OutcomeCompleted}}, nil
}
func (s *stubEvents) CountByOutcome(context.Context, string) (map[run.Outcome]int, error) {
	return map[run.Outcome]int{run.OutcomeCompleted: 1}, nil
}

func TestGetRunHandler_ReturnsRunWithDetails(t *testing.T) {
	runs := &stubRuns{summaries: map[string]*run.Summary{
		"r1": {ID: "r1", Scenario: "grid", Status: shared.LifecycleStatusCompleted},
	}}
	events := &stubEvents{}
	h := queries.NewGetRunHandler(runs, stubBots{}, events)

	resp, err := h.Handle(context.Background(), &queries.GetRunQuery{RunID: "r1", EventLimit: 50})

	require.NoError(t, err)
	result := resp.(*queries.GetRunResponse)
	assert.Equal(t, "grid", result.Run.Scenario)
	assert.Len(t, result.Bots, 2)
	assert.Len(t, result.Events, 1)
	assert.Equal(t, 1, result.Outcomes[run.OutcomeCompleted])
	assert.Equal(t, 50, events.limit)
}

func TestGetRunHandler_Errors(t *testing.T) {
	h := queries.NewGetRunHandler(&stubRuns{}, stubBots{}, &stubEvents{})

	_, err := h.Handle(context.Background(), &queries.GetRunQuery{})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), &queries.GetRunQuery{RunID: "missing"})
	assert.ErrorContains(t, err, "failed to find run")
}

func TestListRunsHandler_DefaultsLimit(t *testing.T) {
	runs := &stubRuns{summaries: map[string]*run.Summary{"r1": {ID: "r1"}}}
	h := queries.NewListRunsHandler(runs)

	resp, err := h.Handle(context.Background(), &queries.ListRunsQuery{})

	require.NoError(t, err)
	assert.Len(t, resp.(*queries.ListRunsResponse).Runs, 1)
	assert.Equal(t, 20, runs.limit)
}
