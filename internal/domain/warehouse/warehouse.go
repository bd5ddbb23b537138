package warehouse

import (
	"fmt"
	"math"
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// QueueSpec describes the queue in front of a station or elevator terminal
type QueueSpec struct {
	Owner string
	// Slots run from the queue tail to the terminal (last element)
	Slots    []graph.NodeID
	Elevator bool
}

// Terminal is the last slot of the queue
func (q QueueSpec) Terminal() graph.NodeID {
	return q.Slots[len(q.Slots)-1]
}

// Warehouse aggregates everything bots interact with besides the graph
// itself: pods, stations, elevators, claimable locations, rendezvous
// bookkeeping and the pool of unassigned requests.
type Warehouse struct {
	Graph     *graph.Graph
	Pods      map[string]*Pod
	Stations  map[string]*Station
	Elevators map[string]*Elevator
	Resources *Resources
	Mates     *Mates
	Queues    []QueueSpec

	pool          []*Request
	nextRequestID int
}

// New wraps g. Storage and rest waypoints must already be in g.
func New(g *graph.Graph) *Warehouse {
	return &Warehouse{
		Graph:     g,
		Pods:      make(map[string]*Pod),
		Stations:  make(map[string]*Station),
		Elevators: make(map[string]*Elevator),
		Resources: NewResources(g),
		Mates:     NewMates(),
	}
}

func (w *Warehouse) AddPod(pod *Pod) error {
	if _, exists := w.Pods[pod.ID]; exists {
		return shared.NewDomainError(fmt.Sprintf("pod %s already exists", pod.ID))
	}
	if pod.Node != graph.NoNode {
		if !w.Resources.IsFree(pod.Node) {
			return shared.NewDomainError(fmt.Sprintf("pod %s: storage %s is not free", pod.ID, w.Graph.Symbol(pod.Node)))
		}
		w.Resources.setOccupied(pod.Node, pod.ID)
	}
	w.Pods[pod.ID] = pod
	return nil
}

func (w *Warehouse) AddStation(s *Station) error {
	if _, exists := w.Stations[s.ID]; exists {
		return shared.NewDomainError(fmt.Sprintf("station %s already exists", s.ID))
	}
	w.Stations[s.ID] = s
	return nil
}

func (w *Warehouse) AddElevator(e *Elevator) error {
	if _, exists := w.Elevators[e.ID]; exists {
		return shared.NewDomainError(fmt.Sprintf("elevator %s already exists", e.ID))
	}
	w.Elevators[e.ID] = e
	return nil
}

func (w *Warehouse) AddQueue(spec QueueSpec) {
	w.Queues = append(w.Queues, spec)
}

// PodAt returns the pod standing on node
func (w *Warehouse) PodAt(node graph.NodeID) *Pod {
	for _, id := range w.podIDs() {
		if p := w.Pods[id]; p.Node == node {
			return p
		}
	}
	return nil
}

// PickupPod lifts pod from node onto bot
func (w *Warehouse) PickupPod(bot int, podID string, node graph.NodeID) error {
	pod, ok := w.Pods[podID]
	if !ok {
		return fmt.Errorf("pickup %s: %w", podID, shared.ErrUnknownPod)
	}
	if pod.IsCarried() {
		return shared.NewDomainError(fmt.Sprintf("pod %s is carried by bot %d", podID, pod.Carrier))
	}
	if pod.Node != node {
		return shared.NewDomainError(fmt.Sprintf("pod %s is not at %s", podID, w.Graph.Symbol(node)))
	}
	for _, other := range w.Pods {
		if other.Carrier == bot {
			return shared.NewDomainError(fmt.Sprintf("bot %d already carries pod %s", bot, other.ID))
		}
	}
	w.Resources.clearOccupied(node)
	pod.Node = graph.NoNode
	pod.Carrier = bot
	return nil
}

// SetdownPod puts the pod carried by bot down on node, which must be a
// storage slot that is free or claimed by bot. The claim is consumed.
func (w *Warehouse) SetdownPod(bot int, podID string, node graph.NodeID) error {
	pod, ok := w.Pods[podID]
	if !ok {
		return fmt.Errorf("setdown %s: %w", podID, shared.ErrUnknownPod)
	}
	if pod.Carrier != bot {
		return shared.NewDomainError(fmt.Sprintf("bot %d does not carry pod %s", bot, podID))
	}
	if kind, ok := w.Resources.Kind(node); !ok || kind != ResourceStorage {
		return shared.NewDomainError(fmt.Sprintf("%s is not a storage slot", w.Graph.Symbol(node)))
	}
	if owner := w.Resources.Owner(node); owner != NoBot && owner != bot {
		return shared.NewDomainError(fmt.Sprintf("storage %s is claimed by bot %d", w.Graph.Symbol(node), owner))
	}
	if occupant := w.PodAt(node); occupant != nil {
		return shared.NewDomainError(fmt.Sprintf("storage %s holds pod %s", w.Graph.Symbol(node), occupant.ID))
	}
	w.Resources.Release(node, bot)
	w.Resources.setOccupied(node, podID)
	pod.Node = node
	pod.Carrier = NoBot
	return nil
}

// CarriedBy returns the pod carried by bot
func (w *Warehouse) CarriedBy(bot int) *Pod {
	for _, id := range w.podIDs() {
		if p := w.Pods[id]; p.Carrier == bot {
			return p
		}
	}
	return nil
}

// StationAt returns the station whose terminal is node
func (w *Warehouse) StationAt(node graph.NodeID) *Station {
	for _, s := range w.Stations {
		if s.Terminal == node {
			return s
		}
	}
	return nil
}

// ElevatorAt returns the elevator serving node
func (w *Warehouse) ElevatorAt(node graph.NodeID) *Elevator {
	for _, e := range w.Elevators {
		if _, ok := e.TierOf(node); ok {
			return e
		}
	}
	return nil
}

// NewRequest creates a request and puts it into the pool
func (w *Warehouse) NewRequest(kind RequestKind, sku string, quantity int) *Request {
	w.nextRequestID++
	r := &Request{ID: w.nextRequestID, Kind: kind, SKU: sku, Quantity: quantity, Bot: NoBot}
	w.pool = append(w.pool, r)
	return r
}

// ReturnRequest puts an aborted or withdrawn request back into the pool
func (w *Warehouse) ReturnRequest(r *Request) {
	r.reset()
	w.pool = append(w.pool, r)
}

// TakeRequests removes up to n pool requests of kind that pod can serve
func (w *Warehouse) TakeRequests(kind RequestKind, pod *Pod, n int) []*Request {
	var taken, rest []*Request
	for _, r := range w.pool {
		if len(taken) < n && r.Kind == kind && servable(r, pod) {
			taken = append(taken, r)
			continue
		}
		rest = append(rest, r)
	}
	w.pool = rest
	return taken
}

// PoolSize is the number of unassigned requests
func (w *Warehouse) PoolSize() int {
	return len(w.pool)
}

// ProcessResult summarises one Process call
type ProcessResult struct {
	Finished int
	Aborted  int
}

// Process advances every station to now, in station id order
func (w *Warehouse) Process(now float64) ProcessResult {
	var res ProcessResult
	for _, id := range w.stationIDs() {
		for _, r := range w.Stations[id].Process(now, w.Pods) {
			if r.Status == RequestFinished {
				res.Finished++
			} else {
				res.Aborted++
			}
		}
	}
	return res
}

// NextEvent is the earliest station completion time
func (w *Warehouse) NextEvent() float64 {
	next := math.Inf(1)
	for _, s := range w.Stations {
		next = math.Min(next, s.NextEvent())
	}
	return next
}

func (w *Warehouse) stationIDs() []string {
	ids := make([]string, 0, len(w.Stations))
	for id := range w.Stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *Warehouse) podIDs() []string {
	ids := make([]string, 0, len(w.Pods))
	for id := range w.Pods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PodIDs lists all pod ids, sorted
func (w *Warehouse) PodIDs() []string {
	return w.podIDs()
}

func servable(r *Request, pod *Pod) bool {
	if pod == nil {
		return false
	}
	if r.Kind == RequestPick {
		return pod.Items[r.SKU] >= r.Quantity
	}
	return pod.FreeCapacity() >= r.Quantity
}
