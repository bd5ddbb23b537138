package warehouse

import (
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
)

// NoBot marks a pod that nobody carries or a slot nobody claimed
const NoBot = -1

// Pod is a movable shelf holding items
type Pod struct {
	ID string
	// Node is where the pod stands; NoNode while it is carried
	Node     graph.NodeID
	Carrier  int
	Capacity int
	Items    map[string]int
}

func NewPod(id string, node graph.NodeID, capacity int) *Pod {
	return &Pod{
		ID:       id,
		Node:     node,
		Carrier:  NoBot,
		Capacity: capacity,
		Items:    make(map[string]int),
	}
}

// Load is the number of units on the pod
func (p *Pod) Load() int {
	total := 0
	for _, n := range p.Items {
		total += n
	}
	return total
}

func (p *Pod) FreeCapacity() int {
	return p.Capacity - p.Load()
}

func (p *Pod) IsCarried() bool {
	return p.Carrier != NoBot
}

// SKUs lists the item kinds present on the pod, sorted
func (p *Pod) SKUs() []string {
	skus := make([]string, 0, len(p.Items))
	for sku, n := range p.Items {
		if n > 0 {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)
	return skus
}
