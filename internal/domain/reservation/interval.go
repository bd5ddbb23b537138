package reservation

import (
	"fmt"
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
)

// NoOwner marks candidate intervals that are not yet committed
const NoOwner = -1

// Interval is a claim on a node for [Start, End) seconds. End may be +Inf.
type Interval struct {
	Node  graph.NodeID
	Start float64
	End   float64
	Owner int
}

// Overlaps reports whether two intervals on the same node share more than
// tol seconds. Touching intervals do not overlap.
func (i Interval) Overlaps(o Interval, tol float64) bool {
	return i.Node == o.Node && i.Start < o.End-tol && o.Start < i.End-tol
}

// Open reports whether the interval never ends
func (i Interval) Open() bool {
	return math.IsInf(i.End, 1)
}

func (i Interval) String() string {
	return fmt.Sprintf("node %d [%.3f, %.3f) owner %d", i.Node, i.Start, i.End, i.Owner)
}

// CreateIntervals returns the intervals a bot occupies when driving the edge
// from → to, departing no earlier than start and standing still until
// blockUntil. It returns nil when the edge does not exist.
func CreateIntervals(g *graph.Graph, model *kinematics.Model, start, blockUntil, speed float64, from, to graph.NodeID, mustArriveFree bool) []Interval {
	if from == to {
		return CreateRunIntervals(g, model, start, blockUntil, speed, []graph.NodeID{from}, 0, mustArriveFree)
	}
	return CreateRunIntervals(g, model, start, blockUntil, speed, []graph.NodeID{from, to}, 0, mustArriveFree)
}

// CreateRunIntervals generalises CreateIntervals to a straight run of
// consecutive nodes driven as one profile. offset is the distance already
// covered past nodes[0] (non-zero when a drive is cut short mid-edge).
//
// Node i is held from the moment the bot leaves node i-1 until it reaches
// node i+1. The first node is held from start; the last one until +Inf when
// mustArriveFree is set, otherwise until arrival.
func CreateRunIntervals(g *graph.Graph, model *kinematics.Model, start, blockUntil, speed float64, nodes []graph.NodeID, offset float64, mustArriveFree bool) []Interval {
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		if !g.Valid(n) {
			return nil
		}
	}
	for i := 1; i < len(nodes); i++ {
		if !g.HasEdge(nodes[i-1], nodes[i]) || !g.SameTier(nodes[i-1], nodes[i]) {
			return nil
		}
	}

	depart := math.Max(start, blockUntil)
	if len(nodes) == 1 {
		end := depart
		if mustArriveFree {
			end = math.Inf(1)
		}
		return []Interval{{Node: nodes[0], Start: start, End: end, Owner: NoOwner}}
	}

	cum := make([]float64, len(nodes))
	for i := 1; i < len(nodes); i++ {
		cum[i] = cum[i-1] + g.Distance(nodes[i-1], nodes[i])
	}
	last := len(nodes) - 1
	profile := model.Plan(speed, cum[last]-offset)
	at := func(s float64) float64 {
		if s <= offset {
			return depart
		}
		return depart + profile.TimeAt(s-offset)
	}

	intervals := make([]Interval, 0, len(nodes))
	for i, n := range nodes {
		begin := start
		if i > 0 {
			begin = math.Max(start, at(cum[i-1]))
		}
		var end float64
		switch {
		case i < last:
			end = at(cum[i+1])
		case mustArriveFree:
			end = math.Inf(1)
		default:
			end = depart + profile.Duration()
		}
		intervals = append(intervals, Interval{Node: n, Start: begin, End: end, Owner: NoOwner})
	}
	return intervals
}

// WithOwner stamps owner onto a copy of intervals
func WithOwner(intervals []Interval, owner int) []Interval {
	out := make([]Interval, len(intervals))
	for i, iv := range intervals {
		iv.Owner = owner
		out[i] = iv
	}
	return out
}
