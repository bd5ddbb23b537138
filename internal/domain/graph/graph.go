package graph

import (
	"fmt"
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// Graph is the waypoint registry. It keeps the bijection between waypoint
// symbols and dense NodeIDs plus a directed adjacency list.
type Graph struct {
	waypoints []*Waypoint
	bySymbol  map[string]NodeID
	out       [][]NodeID
	in        [][]NodeID
}

func New() *Graph {
	return &Graph{bySymbol: make(map[string]NodeID)}
}

// AddWaypoint registers a waypoint and returns its id. Symbols must be unique.
func (g *Graph) AddWaypoint(symbol string, x, y float64, tier int, role Role, owner string) (NodeID, error) {
	if symbol == "" {
		return NoNode, shared.NewValidationError("symbol", "waypoint symbol cannot be empty")
	}
	if _, exists := g.bySymbol[symbol]; exists {
		return NoNode, shared.NewGraphError(fmt.Sprintf("waypoint %s already registered", symbol))
	}

	id := NodeID(len(g.waypoints))
	g.waypoints = append(g.waypoints, &Waypoint{
		ID:     id,
		Symbol: symbol,
		X:      x,
		Y:      y,
		Tier:   tier,
		Role:   role,
		Owner:  owner,
	})
	g.bySymbol[symbol] = id
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id, nil
}

// Connect adds the directed edge from → to. Tier changes are only allowed
// between two elevator waypoints.
func (g *Graph) Connect(from, to NodeID) error {
	if !g.Valid(from) || !g.Valid(to) {
		return fmt.Errorf("connect %d→%d: %w", from, to, shared.ErrUnknownWaypoint)
	}
	if from == to {
		return shared.NewGraphError(fmt.Sprintf("self loop at %s", g.waypoints[from].Symbol))
	}
	a, b := g.waypoints[from], g.waypoints[to]
	if a.Tier != b.Tier && (a.Role != RoleElevator || b.Role != RoleElevator) {
		return shared.NewGraphError(fmt.Sprintf("edge %s→%s crosses tiers outside an elevator", a.Symbol, b.Symbol))
	}
	if g.HasEdge(from, to) {
		return nil
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	return nil
}

// ConnectBoth adds edges in both directions
func (g *Graph) ConnectBoth(a, b NodeID) error {
	if err := g.Connect(a, b); err != nil {
		return err
	}
	return g.Connect(b, a)
}

func (g *Graph) Len() int {
	return len(g.waypoints)
}

func (g *Graph) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.waypoints)
}

// ID resolves a symbol to its node id
func (g *Graph) ID(symbol string) (NodeID, bool) {
	id, ok := g.bySymbol[symbol]
	return id, ok
}

// Waypoint returns the waypoint for id, or nil when id is unknown
func (g *Graph) Waypoint(id NodeID) *Waypoint {
	if !g.Valid(id) {
		return nil
	}
	return g.waypoints[id]
}

// Symbol returns the symbol of id, "-" for NoNode
func (g *Graph) Symbol(id NodeID) string {
	if w := g.Waypoint(id); w != nil {
		return w.Symbol
	}
	return "-"
}

func (g *Graph) Waypoints() []*Waypoint {
	return g.waypoints
}

// Neighbors returns the successors of id
func (g *Graph) Neighbors(id NodeID) []NodeID {
	if !g.Valid(id) {
		return nil
	}
	return g.out[id]
}

// Predecessors returns the nodes with an edge into id
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if !g.Valid(id) {
		return nil
	}
	return g.in[id]
}

func (g *Graph) HasEdge(from, to NodeID) bool {
	for _, n := range g.Neighbors(from) {
		if n == to {
			return true
		}
	}
	return false
}

// Distance is the planar distance between two nodes. Elevator hops report
// zero since they are not driven.
func (g *Graph) Distance(from, to NodeID) float64 {
	a, b := g.Waypoint(from), g.Waypoint(to)
	if a == nil || b == nil || a.Tier != b.Tier {
		return 0
	}
	return a.DistanceTo(b)
}

// Heading is the orientation of the edge from → to
func (g *Graph) Heading(from, to NodeID) float64 {
	a, b := g.Waypoint(from), g.Waypoint(to)
	return kinematics.Heading(b.X-a.X, b.Y-a.Y)
}

// SameTier reports whether both nodes are on the same floor
func (g *Graph) SameTier(a, b NodeID) bool {
	wa, wb := g.Waypoint(a), g.Waypoint(b)
	return wa != nil && wb != nil && wa.Tier == wb.Tier
}

// Nearest returns the waypoint on tier closest to (x, y)
func (g *Graph) Nearest(x, y float64, tier int) NodeID {
	best := NoNode
	bestDist := math.Inf(1)
	for _, w := range g.waypoints {
		if w.Tier != tier {
			continue
		}
		if d := math.Hypot(w.X-x, w.Y-y); d < bestDist {
			best, bestDist = w.ID, d
		}
	}
	return best
}

// ByRole lists the waypoints with the given role in id order
func (g *Graph) ByRole(role Role) []NodeID {
	var ids []NodeID
	for _, w := range g.waypoints {
		if w.Role == role {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

// Collinear reports whether b continues the heading of a → b when moving to c
func (g *Graph) Collinear(a, b, c NodeID, tol float64) bool {
	return kinematics.SameHeading(g.Heading(a, b), g.Heading(b, c), tol)
}
