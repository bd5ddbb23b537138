package steps

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/robofleet/internal/adapters/pathfinding"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

const positionTolerance = 1e-6

// outcomeLog records task outcomes per bot
type outcomeLog struct {
	completed map[int]int
	aborted   []error
}

func (o *outcomeLog) TaskCompleted(b *agent.Bot, _ task.Task, _ float64) { o.completed[b.ID()]++ }
func (o *outcomeLog) TaskAborted(_ *agent.Bot, _ task.Task, reason error, _ float64) {
	o.aborted = append(o.aborted, reason)
}
func (o *outcomeLog) TaskCancelled(*agent.Bot, task.Task, float64) {}

type navigationContext struct {
	w          *warehouse.Warehouse
	controller *simulation.Controller
	outcomes   *outcomeLog
	botID      int
}

func (nc *navigationContext) reset() {
	nc.w = nil
	nc.controller = nil
	nc.outcomes = &outcomeLog{completed: make(map[int]int)}
	nc.botID = 0
}

func (nc *navigationContext) use(w *warehouse.Warehouse) {
	nc.w = w
	nc.controller = simulation.NewController(w, pathfinding.NewShortest(), simulation.DefaultSettings(),
		simulation.WithListener(nc.outcomes))
}

func (nc *navigationContext) node(symbol string) (graph.NodeID, error) {
	id, ok := nc.w.Graph.ID(symbol)
	if !ok {
		return graph.NoNode, fmt.Errorf("unknown waypoint %s", symbol)
	}
	return id, nil
}

func (nc *navigationContext) bot(id int) (*agent.Bot, error) {
	for _, b := range nc.controller.Bots() {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("bot %d not found", id)
}

// Given steps

func (nc *navigationContext) aStraightCorridorWithSpacing(list string, spacing float64) error {
	symbols, err := parseSymbols(list)
	if err != nil {
		return err
	}
	g := graph.New()
	var prev graph.NodeID = graph.NoNode
	for i, sym := range symbols {
		id, err := g.AddWaypoint(sym, float64(i)*spacing, 0, 0, graph.RoleNone, "")
		if err != nil {
			return err
		}
		if prev != graph.NoNode {
			if err := g.ConnectBoth(prev, id); err != nil {
				return err
			}
		}
		prev = id
	}
	nc.use(warehouse.New(g))
	return nil
}

func (nc *navigationContext) botAtWithLimits(id int, symbol string, accel, decel, vmax, turn float64) error {
	node, err := nc.node(symbol)
	if err != nil {
		return err
	}
	limits := kinematics.Limits{MaxAcceleration: accel, MaxDeceleration: decel, MaxVelocity: vmax, TurnSpeed: turn}
	_, err = nc.controller.AddBot(id, node, limits, 0)
	return err
}

func (nc *navigationContext) aGridWarehouseWithOneOutputStationAndPods(pods int) error {
	w, err := warehouse.Build(warehouse.Layout{
		Tiers:   1,
		Columns: 5,
		Rows:    3,
		Spacing: 1,
		Stations: []warehouse.StationLayout{
			{ID: "out", Kind: warehouse.StationOutput, Column: 1, QueueLength: 2, HandlingTime: 1},
		},
		Pods:        pods,
		PodCapacity: 10,
		SKUs:        1,
		UnitsPerSKU: 5,
	})
	if err != nil {
		return err
	}
	nc.use(w)
	return nil
}

func (nc *navigationContext) aBotWaitingNextToThePods() error {
	starts, err := warehouse.StartNodes(nc.w, 1)
	if err != nil {
		return err
	}
	nc.botID = 1
	limits := kinematics.Limits{MaxAcceleration: 1, MaxDeceleration: 1, MaxVelocity: 1.5, TurnSpeed: math.Pi / 2}
	_, err = nc.controller.AddBot(nc.botID, starts[0], limits, 0)
	return err
}

// When steps

func (nc *navigationContext) botIsToldToRelocateTo(id int, symbol string) error {
	node, err := nc.node(symbol)
	if err != nil {
		return err
	}
	return nc.controller.AssignTask(id, &task.Relocate{Destination: node})
}

func (nc *navigationContext) theSimulationRunsForSeconds(seconds float64) error {
	return nc.controller.Run(context.Background(), nc.controller.Now()+seconds)
}

func (nc *navigationContext) theBotIsSentToBringPodToTheStation(pod string) error {
	return nc.controller.AssignTask(nc.botID, &task.Extract{Pod: pod, Station: "out", Storage: graph.NoNode})
}

func (nc *navigationContext) anotherBotTakesPodAway(podID string) error {
	pod, ok := nc.w.Pods[podID]
	if !ok {
		return fmt.Errorf("pod %s not found", podID)
	}
	return nc.w.PickupPod(99, podID, pod.Node)
}

// Then steps

func (nc *navigationContext) botShouldBeAtTheCoordinatesOf(id int, symbol string) error {
	node, err := nc.node(symbol)
	if err != nil {
		return err
	}
	want := nc.w.Graph.Waypoint(node)
	x, y, tier, err := nc.controller.Position(id)
	if err != nil {
		return err
	}
	if math.Abs(x-want.X) > positionTolerance || math.Abs(y-want.Y) > positionTolerance || tier != want.Tier {
		return fmt.Errorf("expected bot %d at %s (%g, %g), got (%g, %g) on tier %d", id, symbol, want.X, want.Y, x, y, tier)
	}
	return nil
}

func (nc *navigationContext) botShouldHaveNoNextOrDestinationWaypoint(id int) error {
	b, err := nc.bot(id)
	if err != nil {
		return err
	}
	if b.NextNode() != graph.NoNode || b.DestinationNode() != graph.NoNode {
		return fmt.Errorf("expected no next or destination waypoint, got next %d destination %d", b.NextNode(), b.DestinationNode())
	}
	return nil
}

func (nc *navigationContext) botShouldHaveCompletedTask(id, count int) error {
	if got := nc.outcomes.completed[id]; got != count {
		return fmt.Errorf("expected bot %d to complete %d tasks, got %d", id, count, got)
	}
	return nil
}

func (nc *navigationContext) theReservationTableShouldBeValid() error {
	return nc.controller.Paths().Validate()
}

func (nc *navigationContext) theTaskShouldBeAborted() error {
	if len(nc.outcomes.aborted) != 1 {
		return fmt.Errorf("expected 1 aborted task, got %d", len(nc.outcomes.aborted))
	}
	var taskErr *shared.TaskError
	if !errors.As(nc.outcomes.aborted[0], &taskErr) {
		return fmt.Errorf("expected a task error, got %v", nc.outcomes.aborted[0])
	}
	return nil
}

func (nc *navigationContext) theBotShouldBeIdleWithoutAPod() error {
	b, err := nc.bot(nc.botID)
	if err != nil {
		return err
	}
	if !b.IsIdle() {
		return fmt.Errorf("expected bot to be idle, states %v", b.StateNames())
	}
	if b.Pod() != "" {
		return fmt.Errorf("expected bot to carry no pod, carries %s", b.Pod())
	}
	return nil
}

func InitializeNavigationScenario(ctx *godog.ScenarioContext) {
	nc := &navigationContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		nc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a straight corridor (.+) with ([0-9.]+)m spacing$`, nc.aStraightCorridorWithSpacing)
	ctx.Step(`^bot (\d+) at "([^"]*)" with acceleration ([0-9.]+), deceleration ([0-9.]+), top speed ([0-9.]+) and turn speed ([0-9.]+)$`, nc.botAtWithLimits)
	ctx.Step(`^a grid warehouse with one output station and (\d+) pods?$`, nc.aGridWarehouseWithOneOutputStationAndPods)
	ctx.Step(`^a bot waiting next to the pods$`, nc.aBotWaitingNextToThePods)

	// When steps
	ctx.Step(`^bot (\d+) is told to relocate to "([^"]*)"$`, nc.botIsToldToRelocateTo)
	ctx.Step(`^the simulation runs for ([0-9.]+) seconds$`, nc.theSimulationRunsForSeconds)
	ctx.Step(`^the bot is sent to bring pod "([^"]*)" to the station$`, nc.theBotIsSentToBringPodToTheStation)
	ctx.Step(`^another bot takes pod "([^"]*)" away$`, nc.anotherBotTakesPodAway)

	// Then steps
	ctx.Step(`^bot (\d+) should be at the coordinates of "([^"]*)"$`, nc.botShouldBeAtTheCoordinatesOf)
	ctx.Step(`^bot (\d+) should have no next or destination waypoint$`, nc.botShouldHaveNoNextOrDestinationWaypoint)
	ctx.Step(`^bot (\d+) should have completed (\d+) tasks?$`, nc.botShouldHaveCompletedTask)
	ctx.Step(`^the reservation table should be valid$`, nc.theReservationTableShouldBeValid)
	ctx.Step(`^the task should be aborted$`, nc.theTaskShouldBeAborted)
	ctx.Step(`^the bot should be idle without a pod$`, nc.theBotShouldBeIdleWithoutAPod)
}
