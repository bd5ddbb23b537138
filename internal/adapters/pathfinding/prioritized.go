package pathfinding

import (
	"container/heap"
	"context"
	"math"
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/reservation"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

// Prioritized plans the flagged agents one after the other with a
// space-time A* over (node, time). Each agent avoids the reservation table
// and every agent planned before it in the same sweep. An agent the search
// cannot route gets its plain shortest path; the reservation table sorts
// out the rest at drive time.
type Prioritized struct {
	// MaxTime is the planning horizon past the request time
	MaxTime float64
	// WaitStep is the length of one wait action
	WaitStep float64
	// MaxExpansions bounds the search effort per agent
	MaxExpansions int

	shortest *Shortest
}

func NewPrioritized(maxTime, waitStep float64, maxExpansions int) *Prioritized {
	if waitStep <= 0 {
		waitStep = 0.5
	}
	if maxExpansions <= 0 {
		maxExpansions = 20000
	}
	return &Prioritized{
		MaxTime:       maxTime,
		WaitStep:      waitStep,
		MaxExpansions: maxExpansions,
		shortest:      NewShortest(),
	}
}

func (p *Prioritized) Name() string { return "prioritized" }

func (p *Prioritized) FindPaths(ctx context.Context, req routing.Request) (map[int]*routing.Path, error) {
	var flagged []routing.AgentSnapshot
	for _, a := range req.Agents {
		if !a.Fixed && a.Destination != graph.NoNode && a.Start != a.Destination {
			flagged = append(flagged, a)
		}
	}
	if len(flagged) == 0 {
		return map[int]*routing.Path{}, nil
	}

	// longest trips first, they have the fewest alternatives
	remaining := make(map[int]float64, len(flagged))
	for _, a := range flagged {
		remaining[a.ID] = p.shortest.search(req.Graph, a.Destination).Distance(a.Start)
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		di, dj := remaining[flagged[i].ID], remaining[flagged[j].ID]
		if di != dj {
			return di > dj
		}
		return flagged[i].ID < flagged[j].ID
	})

	local := reservation.NewTable(flagged[0].Kinematics.Tolerance())
	paths := make(map[int]*routing.Path, len(flagged))
	for _, a := range flagged {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if math.IsInf(remaining[a.ID], 1) {
			continue
		}
		path, intervals := p.plan(req, local, a)
		if path == nil {
			route := p.shortest.search(req.Graph, a.Destination).Route(a.Start)
			paths[a.ID] = routing.PathThrough(route...)
			continue
		}
		local.Add(intervals, a.ID)
		paths[a.ID] = path
	}
	return paths, nil
}

type searchNode struct {
	node        graph.NodeID
	t           float64
	depart      float64
	orientation float64
	f           float64
	parent      *searchNode
	index       int
}

type searchHeap []*searchNode

func (h searchHeap) Len() int { return len(h) }
func (h searchHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].t > h[j].t
}
func (h searchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *searchHeap) Push(x interface{}) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *searchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

type stateKey struct {
	node   graph.NodeID
	bucket int64
}

// plan runs the space-time search for one agent. It returns nil when the
// goal cannot be reached within the horizon or the expansion budget.
func (p *Prioritized) plan(req routing.Request, local *reservation.Table, a routing.AgentSnapshot) (*routing.Path, []reservation.Interval) {
	g := req.Graph
	kin := a.Kinematics
	goal := a.Destination
	rs := p.shortest.search(g, goal)
	vmax := kin.Limits().MaxVelocity
	horizon := req.Now + p.MaxTime

	free := func(node graph.NodeID, start, end float64) bool {
		if req.Reservations != nil && !req.Reservations.IsFree(node, start, end, a.ID) {
			return false
		}
		return local.IsFree(node, start, end, a.ID)
	}
	h := func(node graph.NodeID) float64 {
		return rs.Distance(node) / vmax
	}
	key := func(node graph.NodeID, t float64) stateKey {
		return stateKey{node: node, bucket: int64(math.Round(t / p.WaitStep))}
	}

	start := math.Max(req.Now, a.StartTime)
	root := &searchNode{node: a.Start, t: start, depart: start, orientation: a.Orientation}
	root.f = start + h(a.Start)
	open := &searchHeap{}
	heap.Push(open, root)
	closed := make(map[stateKey]bool)

	for expansions := 0; open.Len() > 0 && expansions < p.MaxExpansions; expansions++ {
		cur := heap.Pop(open).(*searchNode)
		if cur.node == goal {
			return p.reconstruct(cur)
		}
		k := key(cur.node, cur.t)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, next := range g.Neighbors(cur.node) {
			if !g.SameTier(cur.node, next) {
				continue
			}
			heading := g.Heading(cur.node, next)
			depart := cur.t + kin.TurnTime(cur.orientation, heading)
			arrive := depart + kin.TravelTime(0, g.Distance(cur.node, next))
			if arrive > horizon || closed[key(next, arrive)] {
				continue
			}
			if !free(cur.node, cur.t, arrive) || !free(next, depart, arrive) {
				continue
			}
			if next == goal && !free(goal, arrive, math.Inf(1)) {
				continue
			}
			heap.Push(open, &searchNode{
				node:        next,
				t:           arrive,
				depart:      depart,
				orientation: heading,
				f:           arrive + h(next),
				parent:      cur,
			})
		}

		until := cur.t + p.WaitStep
		if until <= horizon && !closed[key(cur.node, until)] && free(cur.node, cur.t, until) {
			heap.Push(open, &searchNode{
				node:        cur.node,
				t:           until,
				depart:      until,
				orientation: cur.orientation,
				f:           until + h(cur.node),
				parent:      cur,
			})
		}
	}
	return nil, nil
}

// reconstruct turns the search chain ending in goal into path actions and
// the intervals the agent will occupy
func (p *Prioritized) reconstruct(goal *searchNode) (*routing.Path, []reservation.Interval) {
	var steps []*searchNode
	for n := goal; n != nil; n = n.parent {
		steps = append(steps, n)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	var actions []routing.Action
	var intervals []reservation.Interval
	held := reservation.Interval{Node: steps[0].node, Start: steps[0].t}
	for i := 1; i < len(steps); i++ {
		prev, s := steps[i-1], steps[i]
		if s.node == prev.node {
			wait := s.t - prev.t
			if len(actions) == 0 {
				actions = append(actions, routing.Action{Node: s.node, Wait: wait})
			} else {
				last := &actions[len(actions)-1]
				last.Wait += wait
				last.Stop = true
			}
			continue
		}
		held.End = s.t
		intervals = append(intervals, held)
		held = reservation.Interval{Node: s.node, Start: s.depart}
		actions = append(actions, routing.Action{Node: s.node})
	}
	held.End = math.Inf(1)
	intervals = append(intervals, held)
	if len(actions) > 0 {
		actions[len(actions)-1].Stop = true
	}
	return routing.NewPath(actions...), intervals
}
