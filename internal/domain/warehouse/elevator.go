package warehouse

import (
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
)

// Elevator moves one bot at a time between tiers. Its waypoints form the
// terminal of an elevator queue on every served tier.
type Elevator struct {
	ID string
	// Stops maps tier to the elevator waypoint on that tier
	Stops map[int]graph.NodeID
	// TravelTime is the time per tier travelled
	TravelTime float64
	InUse      bool
	Occupant   int
}

func NewElevator(id string, travelTime float64) *Elevator {
	return &Elevator{ID: id, Stops: make(map[int]graph.NodeID), TravelTime: travelTime, Occupant: NoBot}
}

// Enter locks the elevator for bot; false when someone else is inside
func (e *Elevator) Enter(bot int) bool {
	if e.InUse && e.Occupant != bot {
		return false
	}
	e.InUse = true
	e.Occupant = bot
	return true
}

// Exit unlocks the elevator if bot holds it
func (e *Elevator) Exit(bot int) {
	if e.Occupant == bot {
		e.InUse = false
		e.Occupant = NoBot
	}
}

// Open reports whether a new bot may enter
func (e *Elevator) Open() bool {
	return !e.InUse
}

// TierOf returns the tier served at node
func (e *Elevator) TierOf(node graph.NodeID) (int, bool) {
	for tier, n := range e.Stops {
		if n == node {
			return tier, true
		}
	}
	return 0, false
}

// TripTime is the time to travel between two tiers
func (e *Elevator) TripTime(fromTier, toTier int) float64 {
	return e.TravelTime * math.Abs(float64(toTier-fromTier))
}
