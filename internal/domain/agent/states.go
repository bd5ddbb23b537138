package agent

import (
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// State is one step of mission execution. The set of implementations is
// closed; behaviour lives in Act, not on the states.
type State interface {
	Name() string
	Finished() bool
	markFinished()
}

type status struct {
	finished bool
}

func (s *status) Finished() bool { return s.finished }
func (s *status) markFinished()  { s.finished = true }

// Move drives the bot to Destination along its path
type Move struct {
	status
	Destination graph.NodeID
	// Braking moves only bring a bot to standstill after a cancelled drive
	// and are not counted as trips.
	Braking bool

	started       bool
	tripStart     float64
	queueZone     bool
	zoneEnteredAt float64
}

func NewMove(destination graph.NodeID) *Move {
	return &Move{Destination: destination, zoneEnteredAt: -1}
}

func (s *Move) Name() string { return "Move" }

// PickupPod lifts Pod at Node
type PickupPod struct {
	status
	Pod  string
	Node graph.NodeID
	done bool
}

func NewPickupPod(pod string, node graph.NodeID) *PickupPod {
	return &PickupPod{Pod: pod, Node: node}
}

func (s *PickupPod) Name() string { return "PickupPod" }

// SetdownPod puts the carried Pod down at Node
type SetdownPod struct {
	status
	Pod  string
	Node graph.NodeID
	done bool
}

func NewSetdownPod(pod string, node graph.NodeID) *SetdownPod {
	return &SetdownPod{Pod: pod, Node: node}
}

func (s *SetdownPod) Name() string { return "SetdownPod" }

// stationWork is shared by GetItems and PutItems
type stationWork struct {
	Station   string
	Requests  []*warehouse.Request
	submitted bool
	next      int
}

// GetItems waits at an output station until its pick requests are done
type GetItems struct {
	status
	stationWork
}

func NewGetItems(station string, requests []*warehouse.Request) *GetItems {
	return &GetItems{stationWork: stationWork{Station: station, Requests: requests}}
}

func (s *GetItems) Name() string { return "GetItems" }

// PutItems waits at an input station until its store requests are done
type PutItems struct {
	status
	stationWork
}

func NewPutItems(station string, requests []*warehouse.Request) *PutItems {
	return &PutItems{stationWork: stationWork{Station: station, Requests: requests}}
}

func (s *PutItems) Name() string { return "PutItems" }

// Rest keeps the bot still for Duration
type Rest struct {
	status
	Location graph.NodeID
	Duration float64
	started  bool
}

func NewRest(location graph.NodeID, duration float64) *Rest {
	return &Rest{Location: location, Duration: duration}
}

func (s *Rest) Name() string { return "Rest" }

// rendezvous is shared by WaitForMate and WaitForStation
type rendezvous struct {
	Key      warehouse.RendezvousKey
	Duration float64
	arrived  bool
}

// WaitForMate is the primary side of a rendezvous: the bot waits for its
// helper and then for the assist to finish.
type WaitForMate struct {
	status
	rendezvous
}

func NewWaitForMate(key warehouse.RendezvousKey, duration float64) *WaitForMate {
	return &WaitForMate{rendezvous: rendezvous{Key: key, Duration: duration}}
}

func (s *WaitForMate) Name() string { return "WaitForMate" }

// WaitForStation is the helper side of a rendezvous
type WaitForStation struct {
	status
	rendezvous
}

func NewWaitForStation(key warehouse.RendezvousKey, duration float64) *WaitForStation {
	return &WaitForStation{rendezvous: rendezvous{Key: key, Duration: duration}}
}

func (s *WaitForStation) Name() string { return "WaitForStation" }

// UseElevator rides Elevator from the stop the bot stands on to To
type UseElevator struct {
	status
	Elevator  string
	To        graph.NodeID
	entered   bool
	arrivalAt float64
}

func NewUseElevator(elevator string, to graph.NodeID) *UseElevator {
	return &UseElevator{Elevator: elevator, To: to}
}

func (s *UseElevator) Name() string { return "UseElevator" }

// Purpose is what a PreparePartialTask claims a slot for
type Purpose int

const (
	PurposeParkPod Purpose = iota
	PurposeRest
)

// PreparePartialTask keeps trying to claim a slot. When it waited longer
// than Timeout it detours the bot to a resting location and resumes from
// there; once a slot is claimed it replaces itself with the states that use
// the slot.
type PreparePartialTask struct {
	status
	Purpose      Purpose
	Pod          string
	RestDuration float64
	Timeout      float64

	started     bool
	since       float64
	nextAttempt float64
	detour      graph.NodeID
	detoured    bool
}

func NewPreparePartialTask(purpose Purpose, pod string, restDuration, timeout float64) *PreparePartialTask {
	return &PreparePartialTask{Purpose: purpose, Pod: pod, RestDuration: restDuration, Timeout: timeout, detour: graph.NoNode}
}

func (s *PreparePartialTask) Name() string { return "PreparePartialTask" }
