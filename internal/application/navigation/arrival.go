package navigation

import (
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// PredictArrivalTime estimates when b reaches goal, ignoring other bots.
// The bot's own path is used when it already leads to goal, unless
// forceNewPath asks for a fresh shortest route. Unreachable goals yield
// +Inf.
func (pm *PathManager) PredictArrivalTime(b *agent.Bot, goal graph.NodeID, now float64, forceNewPath bool) float64 {
	if !pm.g.Valid(goal) {
		return shared.Forever
	}
	start, at := b.PlanningStart(now)
	if start == goal {
		return at
	}

	route := []graph.NodeID{start}
	waits := 0.0
	p := b.Path()
	if last, ok := p.Last(); !forceNewPath && ok && last.Node == goal {
		for i := 0; i < p.Len(); i++ {
			a := p.At(i)
			if a.Node != route[len(route)-1] {
				route = append(route, a.Node)
			}
			waits += a.Wait
		}
	} else {
		nodes := pm.search(goal).Route(start)
		if len(nodes) == 0 {
			return shared.Forever
		}
		route = append(route, nodes...)
	}
	return at + waits + pm.traversalTime(b, route)
}

func (pm *PathManager) search(goal graph.NodeID) *graph.ReverseSearch {
	s, ok := pm.searches[goal]
	if !ok {
		s = graph.NewReverseSearch(pm.g, goal)
		pm.searches[goal] = s
	}
	return s
}

// traversalTime drives route as straight runs from standstill to
// standstill, rotating between runs
func (pm *PathManager) traversalTime(b *agent.Bot, route []graph.NodeID) float64 {
	kin := b.Kinematics()
	tol := kin.Tolerance()
	orientation := b.Orientation()
	total := 0.0
	for i := 0; i+1 < len(route); {
		from := route[i]
		if !pm.g.SameTier(from, route[i+1]) {
			total += pm.hopTime(from, route[i+1])
			i++
			continue
		}
		heading := pm.g.Heading(from, route[i+1])
		total += kin.TurnTime(orientation, heading)
		orientation = heading

		dist := pm.g.Distance(from, route[i+1])
		j := i + 1
		for j+1 < len(route) && pm.g.SameTier(route[j], route[j+1]) && pm.g.Collinear(route[j-1], route[j], route[j+1], tol) {
			dist += pm.g.Distance(route[j], route[j+1])
			j++
		}
		total += kin.TravelTime(0, dist)
		i = j
	}
	return total
}

func (pm *PathManager) hopTime(from, to graph.NodeID) float64 {
	e := pm.w.ElevatorAt(from)
	if e == nil {
		return graph.ElevatorHopCost
	}
	fromTier, ok1 := e.TierOf(from)
	toTier, ok2 := e.TierOf(to)
	if !ok1 || !ok2 {
		return graph.ElevatorHopCost
	}
	return e.TripTime(fromTier, toTier)
}
