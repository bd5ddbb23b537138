package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
)

func TestPathThrough_StopsAtLastNode(t *testing.T) {
	p := routing.PathThrough(3, 4, 5)

	assert.Equal(t, 3, p.Len())
	last, ok := p.Last()
	assert.True(t, ok)
	assert.True(t, last.Stop)
	assert.False(t, p.At(0).Stop)
	assert.Equal(t, "[3 4 5!]", p.String())
}

func TestPath_PopFrontConsumes(t *testing.T) {
	p := routing.PathThrough(1, 2)

	a, ok := p.PopFront()
	assert.True(t, ok)
	assert.Equal(t, graph.NodeID(1), a.Node)
	assert.Equal(t, []graph.NodeID{2}, p.Nodes())

	p.PopFront()
	_, ok = p.PopFront()
	assert.False(t, ok)
	assert.True(t, p.IsEmpty())
}

func TestPath_CloneIsIndependent(t *testing.T) {
	p := routing.PathThrough(1, 2)
	c := p.Clone()

	c.PopFront()

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1, c.Len())
}
