package warehouse

import (
	"math"
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
)

// ResourceKind is the kind of claimable location
type ResourceKind int

const (
	ResourceStorage ResourceKind = iota
	ResourceRest
)

// Resources tracks claims on storage slots and resting locations. A storage
// slot is free when nobody claimed it and no pod stands on it.
type Resources struct {
	g        *graph.Graph
	kind     map[graph.NodeID]ResourceKind
	owner    map[graph.NodeID]int
	occupied map[graph.NodeID]string
}

// NewResources registers every storage and rest waypoint of g
func NewResources(g *graph.Graph) *Resources {
	r := &Resources{
		g:        g,
		kind:     make(map[graph.NodeID]ResourceKind),
		owner:    make(map[graph.NodeID]int),
		occupied: make(map[graph.NodeID]string),
	}
	for _, id := range g.ByRole(graph.RoleStorage) {
		r.kind[id] = ResourceStorage
	}
	for _, id := range g.ByRole(graph.RoleRest) {
		r.kind[id] = ResourceRest
	}
	return r
}

// IsFree reports whether node can be claimed by anyone
func (r *Resources) IsFree(node graph.NodeID) bool {
	if _, ok := r.kind[node]; !ok {
		return false
	}
	if _, claimed := r.owner[node]; claimed {
		return false
	}
	_, taken := r.occupied[node]
	return !taken
}

// Claim reserves node for bot. Claiming a node the bot already holds succeeds.
func (r *Resources) Claim(node graph.NodeID, bot int) bool {
	if owner, ok := r.owner[node]; ok {
		return owner == bot
	}
	if !r.IsFree(node) {
		return false
	}
	r.owner[node] = bot
	return true
}

// ClaimNearest claims the free location of kind closest to near, preferring
// near's tier. Only nodes accept admits are considered; a nil accept admits
// every node. Ties resolve to the lower node id.
func (r *Resources) ClaimNearest(kind ResourceKind, bot int, near graph.NodeID, accept func(graph.NodeID) bool) (graph.NodeID, bool) {
	origin := r.g.Waypoint(near)
	best := graph.NoNode
	bestCost := math.Inf(1)
	for _, node := range r.sortedOfKind(kind) {
		if !r.IsFree(node) || (accept != nil && !accept(node)) {
			continue
		}
		cost := 0.0
		if origin != nil {
			w := r.g.Waypoint(node)
			cost = origin.DistanceTo(w)
			if w.Tier != origin.Tier {
				cost += graph.ElevatorHopCost * math.Abs(float64(w.Tier-origin.Tier)) * 100
			}
		}
		if cost < bestCost {
			best, bestCost = node, cost
		}
	}
	if best == graph.NoNode {
		return graph.NoNode, false
	}
	r.owner[best] = bot
	return best, true
}

// Release drops bot's claim on node
func (r *Resources) Release(node graph.NodeID, bot int) {
	if owner, ok := r.owner[node]; ok && owner == bot {
		delete(r.owner, node)
	}
}

// ReleaseAll drops every claim of bot and returns the released nodes
func (r *Resources) ReleaseAll(bot int) []graph.NodeID {
	released := r.Claims(bot)
	for _, node := range released {
		delete(r.owner, node)
	}
	return released
}

// Claims lists the nodes held by bot, ascending
func (r *Resources) Claims(bot int) []graph.NodeID {
	var nodes []graph.NodeID
	for node, owner := range r.owner {
		if owner == bot {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// Owner returns the bot holding node, NoBot if unclaimed
func (r *Resources) Owner(node graph.NodeID) int {
	if owner, ok := r.owner[node]; ok {
		return owner
	}
	return NoBot
}

// Kind returns the resource kind at node
func (r *Resources) Kind(node graph.NodeID) (ResourceKind, bool) {
	k, ok := r.kind[node]
	return k, ok
}

func (r *Resources) setOccupied(node graph.NodeID, pod string) {
	r.occupied[node] = pod
}

func (r *Resources) clearOccupied(node graph.NodeID) {
	delete(r.occupied, node)
}

func (r *Resources) sortedOfKind(kind ResourceKind) []graph.NodeID {
	var nodes []graph.NodeID
	for node, k := range r.kind {
		if k == kind {
			nodes = append(nodes, node)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}
