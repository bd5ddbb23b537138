package task

import (
	"fmt"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// Kind tags the task variants
type Kind string

const (
	KindParkPod          Kind = "park-pod"
	KindInsert           Kind = "insert"
	KindExtract          Kind = "extract"
	KindRest             Kind = "rest"
	KindMultiPointGather Kind = "multi-point-gather"
	KindAssist           Kind = "assist"
	KindRelocate         Kind = "relocate"
)

// Task is a mission handed to a bot by the assignment layer. The closed set
// of implementations below is expanded into states by the agent package.
type Task interface {
	Kind() Kind
	String() string
}

// ParkPod brings the carried pod to a storage slot. A NoNode storage lets the
// bot claim a free slot itself.
type ParkPod struct {
	Pod     string
	Storage graph.NodeID
}

func (t *ParkPod) Kind() Kind { return KindParkPod }
func (t *ParkPod) String() string {
	return fmt.Sprintf("park %s", t.Pod)
}

// Extract fetches a pod, brings it to an output station for picking and
// parks it again afterwards.
type Extract struct {
	Pod      string
	Station  string
	Requests []*warehouse.Request
	// Storage is where to park the pod afterwards; NoNode claims any free slot
	Storage graph.NodeID
}

func (t *Extract) Kind() Kind { return KindExtract }
func (t *Extract) String() string {
	return fmt.Sprintf("extract %d requests with %s at %s", len(t.Requests), t.Pod, t.Station)
}

// Insert is the replenishment counterpart of Extract at an input station
type Insert struct {
	Pod      string
	Station  string
	Requests []*warehouse.Request
	Storage  graph.NodeID
}

func (t *Insert) Kind() Kind { return KindInsert }
func (t *Insert) String() string {
	return fmt.Sprintf("insert %d requests into %s at %s", len(t.Requests), t.Pod, t.Station)
}

// Rest parks the bot at a resting location. A NoNode location is claimed by
// the bot itself.
type Rest struct {
	Location graph.NodeID
	Duration float64
}

func (t *Rest) Kind() Kind { return KindRest }
func (t *Rest) String() string {
	return fmt.Sprintf("rest %.0fs", t.Duration)
}

// GatherPoint is one stop of a MultiPointGather task where a helper bot
// assists for Duration seconds.
type GatherPoint struct {
	Node     graph.NodeID
	Helper   int
	Duration float64
}

// MultiPointGather visits several points in order, meeting a helper at each.
type MultiPointGather struct {
	Points []GatherPoint
}

func (t *MultiPointGather) Kind() Kind { return KindMultiPointGather }
func (t *MultiPointGather) String() string {
	return fmt.Sprintf("gather at %d points", len(t.Points))
}

// Assist sends a helper to Location, next to the gather point Point of a
// primary bot, where it assists for Duration seconds.
type Assist struct {
	Primary  int
	Point    graph.NodeID
	Location graph.NodeID
	Duration float64
}

func (t *Assist) Kind() Kind { return KindAssist }
func (t *Assist) String() string {
	return fmt.Sprintf("assist bot %d", t.Primary)
}

// Relocate moves the bot to Destination, taking one elevator hop when the
// destination is on another tier.
type Relocate struct {
	Destination graph.NodeID
}

func (t *Relocate) Kind() Kind { return KindRelocate }
func (t *Relocate) String() string {
	return fmt.Sprintf("relocate to %d", t.Destination)
}
