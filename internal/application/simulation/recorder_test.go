package simulation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

type memoryRuns struct {
	saved []shared.LifecycleStatus
	err   error
}

func (m *memoryRuns) Save(_ context.Context, r *run.Run) error {
	m.saved = append(m.saved, r.Status())
	return m.err
}
func (m *memoryRuns) FindByID(context.Context, string) (*run.Summary, error) { return nil, nil }
func (m *memoryRuns) List(context.Context, int) ([]*run.Summary, error)      { return nil, nil }

type memoryBots struct{ records []run.BotRecord }

func (m *memoryBots) SaveAll(_ context.Context, records []run.BotRecord) error {
	m.records = append(m.records, records...)
	return nil
}
func (m *memoryBots) FindByRun(context.Context, string) ([]run.BotRecord, error) {
	return m.records, nil
}

type memoryEvents struct{ events []run.TaskEvent }

func (m *memoryEvents) Add(_ context.Context, events []run.TaskEvent) error {
	m.events = append(m.events, events...)
	return nil
}
func (m *memoryEvents) FindByRun(context.Context, string, int) ([]run.TaskEvent, error) {
	return m.events, nil
}
func (m *memoryEvents) CountByOutcome(context.Context, string) (map[run.Outcome]int, error) {
	return nil, nil
}

type countingObserver struct{ steps int }

func (o *countingObserver) StepCompleted(float64, shared.SimulationStats, []*agent.Bot) { o.steps++ }

func TestSession_RecordsStartAndResult(t *testing.T) {
	runs, bots, events := &memoryRuns{}, &memoryBots{}, &memoryEvents{}
	s := newLayoutSession(t, 7, simulation.WithRecorder(simulation.NewRecorder(runs, bots, events, nil)))

	require.NoError(t, s.Execute(context.Background(), 30))

	assert.Equal(t, []shared.LifecycleStatus{shared.LifecycleStatusRunning, shared.LifecycleStatusCompleted}, runs.saved)
	require.Len(t, bots.records, 2)
	assert.Equal(t, s.ID(), bots.records[0].RunID)
	assert.Equal(t, len(s.Events()), len(events.events))
}

func TestSession_PersistenceFailureDoesNotStopTheRun(t *testing.T) {
	runs := &memoryRuns{err: errors.New("database is gone")}
	s := newLayoutSession(t, 7, simulation.WithRecorder(simulation.NewRecorder(runs, &memoryBots{}, &memoryEvents{}, nil)))

	require.NoError(t, s.Execute(context.Background(), 10))

	assert.Equal(t, shared.LifecycleStatusCompleted, s.Run().Status())
	assert.Len(t, runs.saved, 2)
}

func TestSession_NotifiesObservers(t *testing.T) {
	observer := &countingObserver{}
	s := newLayoutSession(t, 3, simulation.WithObserver(observer))

	require.NoError(t, s.Execute(context.Background(), 5))

	assert.Equal(t, s.Controller().Stats().Steps, observer.steps)
	assert.Positive(t, observer.steps)
}

func TestNewSession_RequiresWarehouse(t *testing.T) {
	_, err := simulation.NewSession(simulation.Setup{Name: "empty"}, nil, simulation.DefaultDispatchSettings(), nil)

	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}
