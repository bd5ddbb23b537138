package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
	"github.com/andrescamacho/robofleet/test/helpers"
)

type persistenceContext struct {
	repos   *helpers.TestRepositories
	session *simulation.Session
}

func (pc *persistenceContext) reset() {
	pc.repos = helpers.NewTestRepositories(nil)
	pc.session = nil
}

func (pc *persistenceContext) runID() string {
	return pc.session.Run().ID()
}

// Given steps

func (pc *persistenceContext) aRecordedSessionOnAGrid(columns, rows, bots int, seed int64) error {
	w, err := warehouse.Build(warehouse.Layout{
		Tiers:   1,
		Columns: columns,
		Rows:    rows,
		Spacing: 1,
		Stations: []warehouse.StationLayout{
			{ID: "out-1", Kind: warehouse.StationOutput, Column: 1, QueueLength: 3, HandlingTime: 0.5},
		},
		RestSlots:   2,
		Pods:        4,
		PodCapacity: 20,
		SKUs:        3,
		UnitsPerSKU: 6,
	})
	if err != nil {
		return err
	}
	starts, err := warehouse.StartNodes(w, bots)
	if err != nil {
		return err
	}
	limits := kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 1.5, TurnSpeed: 3.14}
	setup := simulation.Setup{Name: "bdd-grid", Warehouse: w, Seed: seed}
	for i, n := range starts {
		setup.Bots = append(setup.Bots, simulation.BotSpec{ID: i + 1, Start: n, Limits: limits})
	}
	build := func(l simulation.TaskListener) *simulation.Controller {
		return simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(), simulation.WithListener(l))
	}
	pc.session, err = simulation.NewSession(setup, build, simulation.DefaultDispatchSettings(),
		shared.NewMockClock(time.Unix(0, 0)), simulation.WithRecorder(pc.repos.Recorder()))
	return err
}

// When steps

func (pc *persistenceContext) theSessionRunsForSeconds(seconds float64) error {
	return pc.session.Execute(context.Background(), seconds)
}

func (pc *persistenceContext) theSessionIsCancelledBeforeItStarts() error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return pc.session.Execute(ctx, 60)
}

// Then steps

func (pc *persistenceContext) theStoredRunShouldHaveStatus(status string) error {
	summary, err := pc.repos.Runs.FindByID(context.Background(), pc.runID())
	if err != nil {
		return err
	}
	if string(summary.Status) != status {
		return fmt.Errorf("expected stored status %s, got %s", status, summary.Status)
	}
	return nil
}

func (pc *persistenceContext) theStoredRunShouldHaveBotRecords(count int) error {
	records, err := pc.repos.Bots.FindByRun(context.Background(), pc.runID())
	if err != nil {
		return err
	}
	if len(records) != count {
		return fmt.Errorf("expected %d bot records, got %d", count, len(records))
	}
	return nil
}

func (pc *persistenceContext) theStoredTaskOutcomesShouldMatchTheSession() error {
	stored, err := pc.repos.Events.CountByOutcome(context.Background(), pc.runID())
	if err != nil {
		return err
	}
	want := make(map[run.Outcome]int)
	for _, e := range pc.session.Events() {
		want[e.Outcome]++
	}
	for outcome, n := range want {
		if stored[outcome] != n {
			return fmt.Errorf("expected %d %s events, stored %d", n, outcome, stored[outcome])
		}
	}
	if len(stored) != len(want) {
		return fmt.Errorf("stored outcomes %v do not match session outcomes %v", stored, want)
	}
	return nil
}

func InitializePersistenceScenario(ctx *godog.ScenarioContext) {
	pc := &persistenceContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		if err := helpers.TruncateAllTables(); err != nil {
			return ctx, err
		}
		pc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a recorded session on a (\d+) by (\d+) grid with (\d+) bots and seed (\d+)$`, pc.aRecordedSessionOnAGrid)

	// When steps
	ctx.Step(`^the session runs for ([0-9.]+) seconds$`, pc.theSessionRunsForSeconds)
	ctx.Step(`^the session is cancelled before it starts$`, pc.theSessionIsCancelledBeforeItStarts)

	// Then steps
	ctx.Step(`^the stored run should have status "([^"]*)"$`, pc.theStoredRunShouldHaveStatus)
	ctx.Step(`^the stored run should have (\d+) bot records$`, pc.theStoredRunShouldHaveBotRecords)
	ctx.Step(`^the stored task outcomes should match the session$`, pc.theStoredTaskOutcomesShouldMatchTheSession)
}
