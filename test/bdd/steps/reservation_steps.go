package steps

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
)

type reservationContext struct {
	table    *reservation.Table
	nodes    map[string]graph.NodeID
	accepted bool
	blockers []int
}

func (rc *reservationContext) reset() {
	rc.table = nil
	rc.nodes = make(map[string]graph.NodeID)
	rc.accepted = false
	rc.blockers = nil
}

// node hands out ids to waypoint names on first use
func (rc *reservationContext) node(name string) graph.NodeID {
	if id, ok := rc.nodes[name]; ok {
		return id
	}
	id := graph.NodeID(len(rc.nodes))
	rc.nodes[name] = id
	return id
}

// Given steps

func (rc *reservationContext) aReservationTableWithTolerance(tol float64) error {
	rc.table = reservation.NewTable(tol)
	return nil
}

func (rc *reservationContext) botHoldsWaypointFromTo(bot int, name string, start, end float64) error {
	ok, blockers := rc.table.Register(bot, []reservation.Interval{{Node: rc.node(name), Start: start, End: end}})
	if !ok {
		return fmt.Errorf("bot %d could not claim %s: blocked by %v", bot, name, blockers)
	}
	return nil
}

// When steps

func (rc *reservationContext) botRegistersWaypointFromTo(bot int, name string, start, end float64) error {
	rc.accepted, rc.blockers = rc.table.Register(bot, []reservation.Interval{{Node: rc.node(name), Start: start, End: end}})
	return nil
}

// Then steps

func (rc *reservationContext) theRegistrationShouldBeRefused() error {
	if rc.accepted {
		return fmt.Errorf("expected the registration to be refused, but it was accepted")
	}
	return nil
}

func (rc *reservationContext) theRegistrationShouldBeAccepted() error {
	if !rc.accepted {
		return fmt.Errorf("expected the registration to be accepted, but it was blocked by %v", rc.blockers)
	}
	return nil
}

func (rc *reservationContext) theBlockingBotsShouldBe(bot int) error {
	if !reflect.DeepEqual(rc.blockers, []int{bot}) {
		return fmt.Errorf("expected blocking bots [%d], got %v", bot, rc.blockers)
	}
	return nil
}

func (rc *reservationContext) botShouldStillHoldWaypointFromTo(bot int, name string, start, end float64) error {
	node := rc.node(name)
	for _, iv := range rc.table.Chain(bot) {
		if iv.Node == node && iv.Start == start && iv.End == end {
			return nil
		}
	}
	return fmt.Errorf("bot %d does not hold %s [%g, %g): chain %v", bot, name, start, end, rc.table.Chain(bot))
}

func (rc *reservationContext) theTableShouldBeValid() error {
	return rc.table.Validate()
}

func InitializeReservationScenario(ctx *godog.ScenarioContext) {
	rc := &reservationContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		rc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a reservation table with tolerance ([0-9.]+)$`, rc.aReservationTableWithTolerance)
	ctx.Step(`^bot (\d+) holds waypoint "([^"]*)" from ([0-9.]+) to ([0-9.]+)$`, rc.botHoldsWaypointFromTo)

	// When steps
	ctx.Step(`^bot (\d+) registers waypoint "([^"]*)" from ([0-9.]+) to ([0-9.]+)$`, rc.botRegistersWaypointFromTo)

	// Then steps
	ctx.Step(`^the registration should be refused$`, rc.theRegistrationShouldBeRefused)
	ctx.Step(`^the registration should be accepted$`, rc.theRegistrationShouldBeAccepted)
	ctx.Step(`^the blocking bots should be (\d+)$`, rc.theBlockingBotsShouldBe)
	ctx.Step(`^bot (\d+) should still hold waypoint "([^"]*)" from ([0-9.]+) to ([0-9.]+)$`, rc.botShouldStillHoldWaypointFromTo)
	ctx.Step(`^the table should be valid$`, rc.theTableShouldBeValid)
}
