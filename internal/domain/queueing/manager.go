package queueing

import (
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

// Member is the queue manager's view of a bot
type Member interface {
	ID() int
	CurrentNode() graph.NodeID
	DestinationNode() graph.NodeID
	Moving() bool
	HasPath() bool
	BypassesQueue() bool
	AssignQueuePath(p *routing.Path)
}

// Manager sequences the bots heading for one terminal waypoint along a
// linear chain of queue slots. Bots only ever move towards the terminal and
// never pass each other, so slot order equals arrival order.
type Manager struct {
	id          string
	slots       []graph.NodeID
	index       map[graph.NodeID]int
	gate        func() bool
	cruiseBatch int

	locks   map[graph.NodeID]int
	targets map[int]int
}

// NewManager creates a manager for slots ordered from the tail to the
// terminal. gate, when set, must return true for the terminal to be
// enterable (elevators); cruiseBatch caps how many slots a bot may advance at
// once.
func NewManager(id string, slots []graph.NodeID, gate func() bool, cruiseBatch int) *Manager {
	if cruiseBatch < 1 {
		cruiseBatch = 1
	}
	index := make(map[graph.NodeID]int, len(slots))
	for i, n := range slots {
		index[n] = i
	}
	return &Manager{
		id:          id,
		slots:       append([]graph.NodeID(nil), slots...),
		index:       index,
		gate:        gate,
		cruiseBatch: cruiseBatch,
		locks:       make(map[graph.NodeID]int),
		targets:     make(map[int]int),
	}
}

func (m *Manager) ID() string {
	return m.id
}

func (m *Manager) Terminal() graph.NodeID {
	return m.slots[len(m.slots)-1]
}

// Entry is the tail slot where bots join the queue
func (m *Manager) Entry() graph.NodeID {
	return m.slots[0]
}

func (m *Manager) Slots() []graph.NodeID {
	return append([]graph.NodeID(nil), m.slots...)
}

// Contains reports whether node is one of the queue's slots
func (m *Manager) Contains(node graph.NodeID) bool {
	_, ok := m.index[node]
	return ok
}

// Manages reports whether bot currently has a place in the queue
func (m *Manager) Manages(bot int) bool {
	_, ok := m.targets[bot]
	return ok
}

// Position is the bot's distance in slots from the terminal (0 = terminal)
func (m *Manager) Position(bot int, node graph.NodeID) (int, bool) {
	if !m.Manages(bot) {
		return 0, false
	}
	i, ok := m.index[node]
	if !ok {
		return 0, false
	}
	return len(m.slots) - 1 - i, true
}

// Locks returns a copy of the slot locks (node → bot)
func (m *Manager) Locks() map[graph.NodeID]int {
	out := make(map[graph.NodeID]int, len(m.locks))
	for n, b := range m.locks {
		out[n] = b
	}
	return out
}

// Leave removes bot from queue management and frees its slots
func (m *Manager) Leave(bot int) {
	delete(m.targets, bot)
	for n, owner := range m.locks {
		if owner == bot {
			delete(m.locks, n)
		}
	}
}

// Update recomputes places for every bot inside the queue zone whose
// destination is the terminal. Bots that changed destination or asked to
// bypass the queue are released.
func (m *Manager) Update(now float64, bots []Member) {
	var inside []Member
	present := make(map[int]bool)
	occupied := make(map[graph.NodeID]int)
	for _, b := range bots {
		if !m.Contains(b.CurrentNode()) {
			continue
		}
		if b.DestinationNode() != m.Terminal() || b.BypassesQueue() {
			// not queued, but still standing on the slot
			occupied[b.CurrentNode()] = b.ID()
			continue
		}
		inside = append(inside, b)
		present[b.ID()] = true
	}
	for id := range m.targets {
		if !present[id] {
			m.Leave(id)
		}
	}

	// front of the queue first
	sort.SliceStable(inside, func(i, j int) bool {
		return m.index[inside[i].CurrentNode()] > m.index[inside[j].CurrentNode()]
	})

	m.locks = occupied
	for _, b := range inside {
		cur := m.index[b.CurrentNode()]
		target, known := m.targets[b.ID()]
		if !known || target < cur || (!b.Moving() && !b.HasPath()) {
			target = cur
		}
		m.targets[b.ID()] = target
		for i := cur; i <= target; i++ {
			m.locks[m.slots[i]] = b.ID()
		}
	}

	for _, b := range inside {
		if b.Moving() || b.HasPath() {
			continue
		}
		cur := m.index[b.CurrentNode()]
		target := cur
		for next := cur + 1; next < len(m.slots) && next-cur <= m.cruiseBatch; next++ {
			if owner, locked := m.locks[m.slots[next]]; locked && owner != b.ID() {
				break
			}
			if next == len(m.slots)-1 && m.gate != nil && !m.gate() {
				break
			}
			target = next
		}
		if target == cur {
			continue
		}
		for i := cur + 1; i <= target; i++ {
			m.locks[m.slots[i]] = b.ID()
		}
		m.targets[b.ID()] = target
		b.AssignQueuePath(routing.PathThrough(m.slots[cur+1 : target+1]...))
	}
}
