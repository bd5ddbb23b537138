package routing

import (
	"context"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
)

// AgentSnapshot is the path finder's view of one bot at sweep time
type AgentSnapshot struct {
	ID int
	// Start is where planning begins: the node the bot stands on, or the
	// node it is currently driving to.
	Start graph.NodeID
	// StartTime is the earliest time the bot can leave Start
	StartTime   float64
	Destination graph.NodeID
	Orientation float64
	Kinematics  *kinematics.Model
	// Chain is the bot's committed reservation chain
	Chain []reservation.Interval
	// Fixed bots do not move and are planned around
	Fixed   bool
	Resting bool
}

// Request is the input of one re-optimisation sweep
type Request struct {
	Now          float64
	Graph        *graph.Graph
	Agents       []AgentSnapshot
	Reservations reservation.View
}

// PathFinder plans paths for a set of agents. Returned paths start after
// the agent's Start node; agents missing from the result keep no path.
type PathFinder interface {
	FindPaths(ctx context.Context, req Request) (map[int]*Path, error)
}

// PathFinderFunc adapts a function to PathFinder
type PathFinderFunc func(ctx context.Context, req Request) (map[int]*Path, error)

func (f PathFinderFunc) FindPaths(ctx context.Context, req Request) (map[int]*Path, error) {
	return f(ctx, req)
}
