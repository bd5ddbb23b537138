package agent

import (
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

type turnPhase struct {
	from, to float64
	start    float64
	duration float64
}

func (t *turnPhase) end() float64 {
	return t.start + t.duration
}

// drivePhase is one straight run. Distances are measured from nodes[0];
// offset is where along the run the profile starts (non-zero after an abort
// caught the bot between two nodes).
type drivePhase struct {
	nodes   []graph.NodeID
	cum     []float64
	offset  float64
	start   float64
	profile kinematics.Profile
	x0, y0  float64
	heading float64

	covered float64
	passed  int
}

func newDrivePhase(g *graph.Graph, nodes []graph.NodeID, offset, start float64, profile kinematics.Profile) *drivePhase {
	cum := make([]float64, len(nodes))
	for i := 1; i < len(nodes); i++ {
		cum[i] = cum[i-1] + g.Distance(nodes[i-1], nodes[i])
	}
	origin := g.Waypoint(nodes[0])
	d := &drivePhase{
		nodes:   nodes,
		cum:     cum,
		offset:  offset,
		start:   start,
		profile: profile,
		x0:      origin.X,
		y0:      origin.Y,
		covered: offset,
	}
	if len(nodes) > 1 {
		d.heading = g.Heading(nodes[0], nodes[1])
	}
	for d.passed+1 < len(cum) && cum[d.passed+1] <= offset {
		d.passed++
	}
	return d
}

func (d *drivePhase) end() float64 {
	return d.start + d.profile.Duration()
}

func (d *drivePhase) last() graph.NodeID {
	return d.nodes[len(d.nodes)-1]
}

func (d *drivePhase) total() float64 {
	return d.cum[len(d.cum)-1]
}

// startMotion arms a rotation towards heading followed by a drive along run.
// The drive begins once the rotation is done.
func (b *Bot) startMotion(g *graph.Graph, now, rotation, heading float64, run []graph.NodeID) {
	if rotation > 0 {
		b.turn = &turnPhase{from: b.orientation, to: heading, start: now, duration: rotation}
	}
	nodes := append([]graph.NodeID(nil), run...)
	d := newDrivePhase(g, nodes, 0, now+rotation, kinematics.Profile{})
	d.profile = b.kin.Plan(0, d.total())
	b.drive = d
	b.next = d.last()
}

// Advance integrates the bot's motion up to now. Nodes passed along the way
// become the current node; at the end of a drive the bot snaps onto the last
// node and stops.
func (b *Bot) Advance(g *graph.Graph, now float64, stats *shared.SimulationStats) {
	if t := b.turn; t != nil {
		elapsed := now - t.start
		if elapsed >= t.duration-b.kin.Tolerance() {
			b.orientation = kinematics.WrapOrientation(t.to)
			b.turn = nil
		} else if elapsed > 0 {
			b.orientation = b.kin.OrientationAt(t.from, t.to, elapsed)
		}
	}

	d := b.drive
	if d == nil || now < d.start {
		return
	}
	elapsed := now - d.start
	tol := b.kin.Tolerance()
	if elapsed >= d.profile.Duration()-tol {
		b.travel(d, d.total(), stats)
		wp := g.Waypoint(d.last())
		b.x, b.y = wp.X, wp.Y
		b.current = d.last()
		b.next = graph.NoNode
		b.speed = 0
		b.drive = nil
		return
	}

	s := d.offset + d.profile.DistanceAt(elapsed)
	b.travel(d, s, stats)
	b.x = d.x0 + s*math.Cos(d.heading)
	b.y = d.y0 + s*math.Sin(d.heading)
	b.speed = d.profile.SpeedAt(elapsed)
	b.orientation = kinematics.WrapOrientation(d.heading)
	for d.passed+1 < len(d.nodes) && d.cum[d.passed+1] <= s+tol {
		d.passed++
		b.current = d.nodes[d.passed]
	}
}

func (b *Bot) travel(d *drivePhase, s float64, stats *shared.SimulationStats) {
	moved := s - d.covered
	if moved <= 0 {
		return
	}
	d.covered = s
	b.counters.Distance += moved
	if stats != nil {
		stats.DistanceTraveled += moved
	}
}

// StopAtNearestNode shortens the current drive so the bot stops at the
// first node it can still brake for. It returns the remaining run, the
// distance already covered on its first edge and the current speed, which is
// what the caller needs to reserve the shortened drive. A bot that has not
// left yet drops its pending drive and stays on its current node.
func (b *Bot) StopAtNearestNode(g *graph.Graph, now float64) (run []graph.NodeID, offset, speed float64) {
	d := b.drive
	if d == nil || now < d.start {
		b.drive = nil
		b.next = graph.NoNode
		b.pendingWait = 0
		return []graph.NodeID{b.current}, 0, 0
	}

	s := d.covered
	speed = b.speed
	brake := b.kin.BrakingDistance(speed)
	tol := b.kin.Tolerance()
	stop := len(d.nodes) - 1
	for k := d.passed + 1; k < len(d.nodes); k++ {
		if d.cum[k]-s >= brake-tol {
			stop = k
			break
		}
	}

	run = append([]graph.NodeID(nil), d.nodes[d.passed:stop+1]...)
	offset = s - d.cum[d.passed]
	nd := newDrivePhase(g, run, offset, now, kinematics.Profile{})
	nd.profile = b.kin.Plan(speed, nd.total()-offset)
	nd.heading = d.heading
	b.drive = nd
	b.next = nd.last()
	b.pendingWait = 0
	return run, offset, speed
}
