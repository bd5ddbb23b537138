package routing

import (
	"fmt"
	"strings"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
)

// Action is one planned node visit
type Action struct {
	Node graph.NodeID
	// Stop requires the bot to come to standstill at Node
	Stop bool
	// Wait is the time to stay at Node after stopping
	Wait float64
}

// Path is the ordered list of planned actions of one bot. The Move state
// consumes it from the front as the bot progresses.
type Path struct {
	actions []Action
}

func NewPath(actions ...Action) *Path {
	return &Path{actions: append([]Action(nil), actions...)}
}

// PathThrough builds a path visiting nodes with a stop at the last one
func PathThrough(nodes ...graph.NodeID) *Path {
	p := &Path{}
	for i, n := range nodes {
		p.actions = append(p.actions, Action{Node: n, Stop: i == len(nodes)-1})
	}
	return p
}

func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.actions)
}

func (p *Path) IsEmpty() bool {
	return p.Len() == 0
}

// Front returns the next action; ok is false for an empty path
func (p *Path) Front() (Action, bool) {
	if p.Len() == 0 {
		return Action{}, false
	}
	return p.actions[0], true
}

// At returns the i-th action
func (p *Path) At(i int) Action {
	return p.actions[i]
}

func (p *Path) PopFront() (Action, bool) {
	a, ok := p.Front()
	if ok {
		p.actions = p.actions[1:]
	}
	return a, ok
}

// Append adds an action at the end
func (p *Path) Append(a Action) {
	p.actions = append(p.actions, a)
}

func (p *Path) Clear() {
	if p != nil {
		p.actions = nil
	}
}

// Last returns the final action
func (p *Path) Last() (Action, bool) {
	if p.Len() == 0 {
		return Action{}, false
	}
	return p.actions[len(p.actions)-1], true
}

// Nodes lists the nodes visited by the path
func (p *Path) Nodes() []graph.NodeID {
	nodes := make([]graph.NodeID, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		nodes = append(nodes, p.actions[i].Node)
	}
	return nodes
}

// Clone returns an independent copy
func (p *Path) Clone() *Path {
	if p == nil {
		return &Path{}
	}
	return NewPath(p.actions...)
}

func (p *Path) String() string {
	parts := make([]string, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		a := p.actions[i]
		s := fmt.Sprintf("%d", a.Node)
		if a.Stop {
			s += "!"
		}
		if a.Wait > 0 {
			s += fmt.Sprintf("(%.1f)", a.Wait)
		}
		parts = append(parts, s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
