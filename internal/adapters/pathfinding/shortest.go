package pathfinding

import (
	"context"
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

// Shortest routes every agent along its shortest path. Moving agents are
// ignored and their conflicts left to the reservation table at drive time,
// but nodes another agent holds open-ended are routed around when a detour
// exists.
type Shortest struct {
	searches map[*graph.Graph]map[graph.NodeID]*graph.ReverseSearch
}

func NewShortest() *Shortest {
	return &Shortest{searches: make(map[*graph.Graph]map[graph.NodeID]*graph.ReverseSearch)}
}

func (s *Shortest) Name() string { return "shortest" }

func (s *Shortest) FindPaths(ctx context.Context, req routing.Request) (map[int]*routing.Path, error) {
	paths := make(map[int]*routing.Path)
	for _, a := range req.Agents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.Fixed || a.Destination == graph.NoNode || a.Start == a.Destination {
			continue
		}
		route := s.search(req.Graph, a.Destination).Route(a.Start)
		if held := heldByOthers(req, a); held != nil && crosses(route, held) {
			if detour := graph.RouteAvoiding(req.Graph, a.Start, a.Destination, held); len(detour) > 0 {
				route = detour
			}
		}
		if len(route) == 0 {
			continue
		}
		paths[a.ID] = routing.PathThrough(route...)
	}
	return paths, nil
}

func (s *Shortest) search(g *graph.Graph, goal graph.NodeID) *graph.ReverseSearch {
	byGoal, ok := s.searches[g]
	if !ok {
		byGoal = make(map[graph.NodeID]*graph.ReverseSearch)
		s.searches[g] = byGoal
	}
	rs, ok := byGoal[goal]
	if !ok {
		rs = graph.NewReverseSearch(g, goal)
		byGoal[goal] = rs
	}
	return rs
}

// heldByOthers admits the nodes another agent holds until forever: parked
// and aborted bots. Start and destination are never avoided.
func heldByOthers(req routing.Request, a routing.AgentSnapshot) func(graph.NodeID) bool {
	if req.Reservations == nil {
		return nil
	}
	return func(n graph.NodeID) bool {
		if n == a.Start || n == a.Destination {
			return false
		}
		for _, iv := range req.Reservations.Intervals(n) {
			if iv.Owner != a.ID && math.IsInf(iv.End, 1) {
				return true
			}
		}
		return false
	}
}

func crosses(route []graph.NodeID, held func(graph.NodeID) bool) bool {
	for _, n := range route {
		if held(n) {
			return true
		}
	}
	return false
}
