package warehouse

import (
	"math"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
)

// StationKind distinguishes pick (output) from replenishment (input) stations
type StationKind int

const (
	StationOutput StationKind = iota
	StationInput
)

func (k StationKind) String() string {
	if k == StationInput {
		return "input"
	}
	return "output"
}

// Station processes requests one at a time for the bot standing on its
// terminal waypoint.
type Station struct {
	ID       string
	Kind     StationKind
	Terminal graph.NodeID
	// HandlingTime is the time needed per item unit
	HandlingTime float64

	active []*Request
}

func NewStation(id string, kind StationKind, terminal graph.NodeID, handlingTime float64) *Station {
	return &Station{ID: id, Kind: kind, Terminal: terminal, HandlingTime: handlingTime}
}

// Submit queues requests for processing in order
func (s *Station) Submit(reqs ...*Request) {
	for _, r := range reqs {
		r.Station = s.ID
		s.active = append(s.active, r)
	}
}

// Withdraw removes the bot's requests that are not finished yet
func (s *Station) Withdraw(bot int) []*Request {
	var kept, withdrawn []*Request
	for _, r := range s.active {
		if r.Bot == bot && r.Status == RequestUnfinished {
			withdrawn = append(withdrawn, r)
			continue
		}
		kept = append(kept, r)
	}
	s.active = kept
	return withdrawn
}

// Pending is the number of requests waiting or in progress
func (s *Station) Pending() int {
	return len(s.active)
}

// Process advances request handling to now. Requests whose pod is missing
// or cannot satisfy them are aborted. It returns the requests that reached a
// final status during this call.
func (s *Station) Process(now float64, pods map[string]*Pod) []*Request {
	var done []*Request
	cursor := now
	for len(s.active) > 0 {
		r := s.active[0]
		if r.Status != RequestUnfinished {
			s.active = s.active[1:]
			continue
		}
		if !r.started {
			if !s.feasible(r, pods) {
				r.Status = RequestAborted
				s.active = s.active[1:]
				done = append(done, r)
				continue
			}
			r.started = true
			r.startedAt = cursor
		}
		finish := r.startedAt + s.HandlingTime*float64(r.Quantity)
		if finish > now {
			break
		}
		s.apply(r, pods[r.Pod])
		r.Status = RequestFinished
		s.active = s.active[1:]
		done = append(done, r)
		cursor = finish
	}
	return done
}

// NextEvent is the time the request in progress finishes, +Inf when idle
func (s *Station) NextEvent() float64 {
	if len(s.active) == 0 || !s.active[0].started {
		return math.Inf(1)
	}
	r := s.active[0]
	return r.startedAt + s.HandlingTime*float64(r.Quantity)
}

func (s *Station) feasible(r *Request, pods map[string]*Pod) bool {
	pod, ok := pods[r.Pod]
	if !ok || pod.Carrier != r.Bot {
		return false
	}
	switch r.Kind {
	case RequestPick:
		return pod.Items[r.SKU] >= r.Quantity
	case RequestStore:
		return pod.FreeCapacity() >= r.Quantity
	}
	return false
}

func (s *Station) apply(r *Request, pod *Pod) {
	if pod == nil {
		return
	}
	switch r.Kind {
	case RequestPick:
		pod.Items[r.SKU] -= r.Quantity
		if pod.Items[r.SKU] <= 0 {
			delete(pod.Items, r.SKU)
		}
	case RequestStore:
		pod.Items[r.SKU] += r.Quantity
	}
}
