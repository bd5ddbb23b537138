package queueing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/queueing"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

type fakeBot struct {
	id          int
	current     graph.NodeID
	destination graph.NodeID
	path        *routing.Path
	bypass      bool
}

func (f *fakeBot) ID() int                         { return f.id }
func (f *fakeBot) CurrentNode() graph.NodeID       { return f.current }
func (f *fakeBot) DestinationNode() graph.NodeID   { return f.destination }
func (f *fakeBot) Moving() bool                    { return false }
func (f *fakeBot) HasPath() bool                   { return !f.path.IsEmpty() }
func (f *fakeBot) BypassesQueue() bool             { return f.bypass }
func (f *fakeBot) AssignQueuePath(p *routing.Path) { f.path = p }

// drive teleports the bot to the end of its assigned path
func (f *fakeBot) drive() {
	if last, ok := f.path.Last(); ok {
		f.current = last.Node
	}
	f.path = nil
}

// slots 10 (tail) .. 15 (terminal)
func slots() []graph.NodeID {
	return []graph.NodeID{10, 11, 12, 13, 14, 15}
}

func members(bots ...*fakeBot) []queueing.Member {
	out := make([]queueing.Member, len(bots))
	for i, b := range bots {
		out[i] = b
	}
	return out
}

func TestUpdate_CruiseBatchAdvancesSeveralSlots(t *testing.T) {
	m := queueing.NewManager("st", slots(), nil, 3)
	bot := &fakeBot{id: 1, current: 10, destination: 15}

	m.Update(0, members(bot))

	require.False(t, bot.path.IsEmpty())
	assert.Equal(t, []graph.NodeID{11, 12, 13}, bot.path.Nodes())
	last, _ := bot.path.Last()
	assert.True(t, last.Stop)
	assert.Equal(t, 1, m.Locks()[13])
}

func TestUpdate_FIFOWithClosedGate(t *testing.T) {
	gateOpen := false
	m := queueing.NewManager("lift", slots(), func() bool { return gateOpen }, 2)
	// bots arrive in order 1, 2, 3; bot 1 is furthest ahead
	b1 := &fakeBot{id: 1, current: 12, destination: 15}
	b2 := &fakeBot{id: 2, current: 11, destination: 15}
	b3 := &fakeBot{id: 3, current: 10, destination: 15}
	all := members(b3, b1, b2)

	for tick := 0; tick < 10; tick++ {
		m.Update(float64(tick), all)
		for _, b := range []*fakeBot{b1, b2, b3} {
			b.drive()
		}
	}

	assert.Equal(t, graph.NodeID(14), b1.current)
	assert.Equal(t, graph.NodeID(13), b2.current)
	assert.Equal(t, graph.NodeID(12), b3.current)

	p1, _ := m.Position(1, b1.current)
	p2, _ := m.Position(2, b2.current)
	p3, _ := m.Position(3, b3.current)
	assert.Less(t, p1, p2)
	assert.Less(t, p2, p3)

	gateOpen = true
	m.Update(11, all)
	b1.drive()
	assert.Equal(t, graph.NodeID(15), b1.current)
}

func TestUpdate_NeverPassesBotAhead(t *testing.T) {
	m := queueing.NewManager("st", slots(), nil, 5)
	front := &fakeBot{id: 9, current: 12, destination: 15}
	back := &fakeBot{id: 1, current: 10, destination: 15}

	m.Update(0, members(back, front))

	assert.Equal(t, []graph.NodeID{13, 14, 15}, front.path.Nodes())
	assert.Equal(t, []graph.NodeID{11}, back.path.Nodes())
}

func TestUpdate_ReleasesBotThatChangedDestination(t *testing.T) {
	m := queueing.NewManager("st", slots(), nil, 1)
	bot := &fakeBot{id: 4, current: 15, destination: 15}
	m.Update(0, members(bot))
	require.True(t, m.Manages(4))

	bot.destination = 3
	m.Update(1, members(bot))

	assert.False(t, m.Manages(4))
	// still standing on the terminal
	assert.Equal(t, 4, m.Locks()[15])

	bot.current = 3
	m.Update(2, members(bot))
	assert.Empty(t, m.Locks())
}

func TestUpdate_WaitsBehindNonQueuedOccupant(t *testing.T) {
	m := queueing.NewManager("st", slots(), nil, 5)
	leaving := &fakeBot{id: 7, current: 15, destination: graph.NoNode}
	queued := &fakeBot{id: 1, current: 13, destination: 15}

	m.Update(0, members(leaving, queued))

	assert.Equal(t, []graph.NodeID{14}, queued.path.Nodes())
}

func TestUpdate_IgnoresBypassingAndOutsideBots(t *testing.T) {
	m := queueing.NewManager("st", slots(), nil, 1)
	outside := &fakeBot{id: 1, current: 2, destination: 15}
	bypass := &fakeBot{id: 2, current: 11, destination: 15, bypass: true}

	m.Update(0, members(outside, bypass))

	assert.False(t, m.Manages(1))
	assert.False(t, m.Manages(2))
	assert.Nil(t, outside.path)
}
