package warehouse

import "github.com/andrescamacho/robofleet/internal/domain/graph"

// MateRole is the side a bot takes in a rendezvous
type MateRole int

const (
	MatePrimary MateRole = iota
	MateHelper
)

// RendezvousKey identifies one meeting of a primary bot and its helper
type RendezvousKey struct {
	Primary int
	Helper  int
	Node    graph.NodeID
}

type rendezvous struct {
	arrived  [2]bool
	left     [2]bool
	started  bool
	start    float64
	duration float64
}

// Mates pairs primary bots with helpers. Both sides announce their arrival;
// once both are in place the assist timer starts and both are released when
// it expires.
type Mates struct {
	meets map[RendezvousKey]*rendezvous
}

func NewMates() *Mates {
	return &Mates{meets: make(map[RendezvousKey]*rendezvous)}
}

// Arrive records that role is in place. The first caller's duration wins.
// It returns the release time once both sides have arrived.
func (m *Mates) Arrive(key RendezvousKey, role MateRole, duration, now float64) (float64, bool) {
	meet, ok := m.meets[key]
	if !ok {
		meet = &rendezvous{duration: duration}
		m.meets[key] = meet
	}
	meet.arrived[role] = true
	if !meet.started && meet.arrived[MatePrimary] && meet.arrived[MateHelper] {
		meet.started = true
		meet.start = now
	}
	return m.ReleaseAt(key)
}

// ReleaseAt returns the end of the assist; false until both sides arrived
func (m *Mates) ReleaseAt(key RendezvousKey) (float64, bool) {
	meet, ok := m.meets[key]
	if !ok || !meet.started {
		return 0, false
	}
	return meet.start + meet.duration, true
}

// Leave marks role as gone; the meeting is forgotten when both have left
func (m *Mates) Leave(key RendezvousKey, role MateRole) {
	meet, ok := m.meets[key]
	if !ok {
		return
	}
	meet.left[role] = true
	other := MatePrimary
	if role == MatePrimary {
		other = MateHelper
	}
	if meet.left[other] || !meet.arrived[other] {
		delete(m.meets, key)
	}
}

// Cancel withdraws role from a meeting that has not started yet. A started
// meeting runs to completion for the partner.
func (m *Mates) Cancel(key RendezvousKey, role MateRole) {
	meet, ok := m.meets[key]
	if !ok {
		return
	}
	if meet.started {
		m.Leave(key, role)
		return
	}
	meet.arrived[role] = false
	if !meet.arrived[MatePrimary] && !meet.arrived[MateHelper] {
		delete(m.meets, key)
	}
}

// Waiting reports whether role has arrived and still waits for its partner
func (m *Mates) Waiting(key RendezvousKey, role MateRole) bool {
	meet, ok := m.meets[key]
	return ok && meet.arrived[role] && !meet.started
}

func (m *Mates) Len() int {
	return len(m.meets)
}
