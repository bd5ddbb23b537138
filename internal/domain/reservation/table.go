package reservation

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// View is the read-only side of the table handed to path finders
type View interface {
	IsFree(node graph.NodeID, start, end float64, except int) bool
	Intervals(node graph.NodeID) []Interval
}

// Table is the time-space reservation table. Per node it keeps intervals
// sorted by start; per owner it keeps the owner's current chain.
//
// Invariants:
// - intervals of different owners on one node never overlap
// - every interval in a node list is also in its owner's chain
type Table struct {
	tolerance float64
	nodes     map[graph.NodeID][]Interval
	chains    map[int][]Interval
}

func NewTable(tolerance float64) *Table {
	return &Table{
		tolerance: tolerance,
		nodes:     make(map[graph.NodeID][]Interval),
		chains:    make(map[int][]Interval),
	}
}

func (t *Table) Tolerance() float64 {
	return t.tolerance
}

// IntersectionFree tests candidate intervals against reservations of other
// owners and returns the ids of the owners in the way, sorted.
func (t *Table) IntersectionFree(intervals []Interval) (bool, []int) {
	seen := map[int]bool{}
	var blockers []int
	for _, cand := range intervals {
		for _, held := range t.nodes[cand.Node] {
			if held.Owner == cand.Owner && cand.Owner != NoOwner {
				continue
			}
			if held.Start >= cand.End-t.tolerance {
				break
			}
			if cand.Overlaps(held, t.tolerance) && !seen[held.Owner] {
				seen[held.Owner] = true
				blockers = append(blockers, held.Owner)
			}
		}
	}
	sort.Ints(blockers)
	return len(blockers) == 0, blockers
}

// Add commits intervals for owner without checking for conflicts
func (t *Table) Add(intervals []Interval, owner int) {
	for _, iv := range intervals {
		iv.Owner = owner
		list := t.nodes[iv.Node]
		idx := sort.Search(len(list), func(i int) bool { return list[i].Start > iv.Start })
		list = append(list, Interval{})
		copy(list[idx+1:], list[idx:])
		list[idx] = iv
		t.nodes[iv.Node] = list
		t.chains[owner] = append(t.chains[owner], iv)
	}
}

// Remove deletes the given intervals. Intervals that are not present are
// ignored, so removing twice is harmless.
func (t *Table) Remove(intervals []Interval) {
	for _, iv := range intervals {
		t.nodes[iv.Node] = removeInterval(t.nodes[iv.Node], iv)
		if len(t.nodes[iv.Node]) == 0 {
			delete(t.nodes, iv.Node)
		}
		t.chains[iv.Owner] = removeInterval(t.chains[iv.Owner], iv)
		if len(t.chains[iv.Owner]) == 0 {
			delete(t.chains, iv.Owner)
		}
	}
}

// ClearOwner removes and returns the owner's whole chain
func (t *Table) ClearOwner(owner int) []Interval {
	chain := t.Chain(owner)
	t.Remove(chain)
	return chain
}

// Register atomically swaps owner's chain for intervals: the old chain is
// removed, the new one tested and committed when free. On conflict the old
// chain is put back unchanged and the blocking owners are returned.
func (t *Table) Register(owner int, intervals []Interval) (bool, []int) {
	candidate := WithOwner(intervals, owner)
	old := t.ClearOwner(owner)
	if free, blockers := t.IntersectionFree(candidate); !free {
		t.Add(old, owner)
		return false, blockers
	}
	t.Add(candidate, owner)
	return true, nil
}

// Replace swaps owner's chain without testing. It is reserved for abort
// handling, where the bot physically cannot do anything else.
func (t *Table) Replace(owner int, intervals []Interval) {
	t.ClearOwner(owner)
	t.Add(intervals, owner)
}

// Chain returns a copy of owner's current chain
func (t *Table) Chain(owner int) []Interval {
	chain := t.chains[owner]
	out := make([]Interval, len(chain))
	copy(out, chain)
	return out
}

// Intervals returns a copy of the reservations held on node
func (t *Table) Intervals(node graph.NodeID) []Interval {
	list := t.nodes[node]
	out := make([]Interval, len(list))
	copy(out, list)
	return out
}

// IsFree reports whether node is unclaimed by anyone but except during [start, end)
func (t *Table) IsFree(node graph.NodeID, start, end float64, except int) bool {
	want := Interval{Node: node, Start: start, End: end, Owner: except}
	for _, held := range t.nodes[node] {
		if held.Start >= end-t.tolerance {
			break
		}
		if held.Owner != except && want.Overlaps(held, t.tolerance) {
			return false
		}
	}
	return true
}

// Reorganize drops intervals that ended before now and returns how many
// were purged.
func (t *Table) Reorganize(now float64) int {
	var stale []Interval
	for _, list := range t.nodes {
		for _, iv := range list {
			if iv.End < now-t.tolerance {
				stale = append(stale, iv)
			}
		}
	}
	t.Remove(stale)
	return len(stale)
}

// Owners lists the owners holding a chain, ascending
func (t *Table) Owners() []int {
	owners := make([]int, 0, len(t.chains))
	for o := range t.chains {
		owners = append(owners, o)
	}
	sort.Ints(owners)
	return owners
}

// Len is the number of intervals stored
func (t *Table) Len() int {
	n := 0
	for _, list := range t.nodes {
		n += len(list)
	}
	return n
}

// Validate checks the exclusivity invariant over the whole table
func (t *Table) Validate() error {
	for node, list := range t.nodes {
		for i := range list {
			for j := i + 1; j < len(list); j++ {
				if list[j].Start >= list[i].End-t.tolerance {
					break
				}
				if list[i].Owner != list[j].Owner && list[i].Overlaps(list[j], t.tolerance) {
					return shared.NewDomainError(fmt.Sprintf("node %d: %s overlaps %s", node, list[i], list[j]))
				}
			}
		}
	}
	return nil
}

func removeInterval(list []Interval, iv Interval) []Interval {
	for i, held := range list {
		if held == iv {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
