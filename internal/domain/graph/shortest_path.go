package graph

import (
	"container/heap"
	"math"
)

// ElevatorHopCost is the distance-equivalent weight of a tier change
const ElevatorHopCost = 10.0

// ReverseSearch is a Dijkstra search rooted at a goal and run over reversed
// edges. It is resumable: nodes are settled only as far as queries need, and
// later queries continue from where earlier ones stopped.
type ReverseSearch struct {
	g       *Graph
	goal    NodeID
	dist    []float64
	next    []NodeID
	settled []bool
	open    searchHeap
}

func NewReverseSearch(g *Graph, goal NodeID) *ReverseSearch {
	n := g.Len()
	s := &ReverseSearch{
		g:       g,
		goal:    goal,
		dist:    make([]float64, n),
		next:    make([]NodeID, n),
		settled: make([]bool, n),
	}
	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.next[i] = NoNode
	}
	if g.Valid(goal) {
		s.dist[goal] = 0
		heap.Push(&s.open, searchItem{node: goal, cost: 0})
	}
	return s
}

func (s *ReverseSearch) Goal() NodeID {
	return s.goal
}

// Distance is the shortest-path cost from `from` to the goal, +Inf when the
// goal is unreachable.
func (s *ReverseSearch) Distance(from NodeID) float64 {
	if !s.g.Valid(from) {
		return math.Inf(1)
	}
	s.expandUntil(from)
	return s.dist[from]
}

// Next is the successor of `from` on a shortest path to the goal
func (s *ReverseSearch) Next(from NodeID) NodeID {
	if math.IsInf(s.Distance(from), 1) {
		return NoNode
	}
	return s.next[from]
}

// Route lists the nodes after `from` up to and including the goal. It is
// empty when `from` is the goal or the goal is unreachable.
func (s *ReverseSearch) Route(from NodeID) []NodeID {
	var route []NodeID
	for cur := from; cur != s.goal; {
		nxt := s.Next(cur)
		if nxt == NoNode {
			return nil
		}
		route = append(route, nxt)
		cur = nxt
	}
	return route
}

func (s *ReverseSearch) expandUntil(target NodeID) {
	for !s.settled[target] && s.open.Len() > 0 {
		item := heap.Pop(&s.open).(searchItem)
		if s.settled[item.node] || item.cost > s.dist[item.node] {
			continue
		}
		s.settled[item.node] = true
		for _, pred := range s.g.Predecessors(item.node) {
			cost := item.cost + s.edgeCost(pred, item.node)
			if cost < s.dist[pred] {
				s.dist[pred] = cost
				s.next[pred] = item.node
				heap.Push(&s.open, searchItem{node: pred, cost: cost})
			}
		}
	}
}

func (s *ReverseSearch) edgeCost(from, to NodeID) float64 {
	return hopCost(s.g, from, to)
}

// RouteAvoiding is a forward shortest route from `from` to goal that never
// enters a node avoid admits. The goal itself is always enterable. The route
// lists the nodes after `from`; it is empty when no such route exists.
func RouteAvoiding(g *Graph, from, goal NodeID, avoid func(NodeID) bool) []NodeID {
	if !g.Valid(from) || !g.Valid(goal) || from == goal {
		return nil
	}
	n := g.Len()
	dist := make([]float64, n)
	prev := make([]NodeID, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = NoNode
	}
	dist[from] = 0
	var open searchHeap
	heap.Push(&open, searchItem{node: from, cost: 0})
	for open.Len() > 0 {
		item := heap.Pop(&open).(searchItem)
		if item.cost > dist[item.node] {
			continue
		}
		if item.node == goal {
			break
		}
		for _, succ := range g.Neighbors(item.node) {
			if succ != goal && avoid(succ) {
				continue
			}
			cost := item.cost + hopCost(g, item.node, succ)
			if cost < dist[succ] {
				dist[succ] = cost
				prev[succ] = item.node
				heap.Push(&open, searchItem{node: succ, cost: cost})
			}
		}
	}
	if math.IsInf(dist[goal], 1) {
		return nil
	}
	var route []NodeID
	for cur := goal; cur != from; cur = prev[cur] {
		route = append(route, cur)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}

func hopCost(g *Graph, from, to NodeID) float64 {
	if !g.SameTier(from, to) {
		return ElevatorHopCost
	}
	return g.Distance(from, to)
}

type searchItem struct {
	node NodeID
	cost float64
}

type searchHeap []searchItem

func (h searchHeap) Len() int { return len(h) }
func (h searchHeap) Less(i, j int) bool {
	if h[i].cost == h[j].cost {
		return h[i].node < h[j].node
	}
	return h[i].cost < h[j].cost
}
func (h searchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *searchHeap) Push(x interface{}) { *h = append(*h, x.(searchItem)) }
func (h *searchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
