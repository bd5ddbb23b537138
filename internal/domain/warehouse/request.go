package warehouse

import "fmt"

// RequestStatus is the processing state of a station request
type RequestStatus int

const (
	RequestUnfinished RequestStatus = iota
	RequestFinished
	RequestAborted
)

func (s RequestStatus) String() string {
	switch s {
	case RequestFinished:
		return "finished"
	case RequestAborted:
		return "aborted"
	default:
		return "unfinished"
	}
}

// RequestKind tells whether items leave the pod or are put on it
type RequestKind int

const (
	RequestPick RequestKind = iota
	RequestStore
)

// Request is one unit of station work: pick items from a pod at an output
// station or store items onto it at an input station.
type Request struct {
	ID       int
	Kind     RequestKind
	Station  string
	Pod      string
	SKU      string
	Quantity int
	Bot      int
	Status   RequestStatus

	startedAt float64
	started   bool
}

func (r *Request) String() string {
	verb := "pick"
	if r.Kind == RequestStore {
		verb = "store"
	}
	return fmt.Sprintf("request %d: %s %d×%s pod %s at %s (%s)", r.ID, verb, r.Quantity, r.SKU, r.Pod, r.Station, r.Status)
}

// reset prepares an aborted request for another attempt
func (r *Request) reset() {
	r.Status = RequestUnfinished
	r.Bot = NoBot
	r.Pod = ""
	r.started = false
	r.startedAt = 0
}
