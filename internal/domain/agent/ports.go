package agent

import (
	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// Navigator is the bot's link to the path manager. It owns the reservation
// table; bots never touch it directly.
type Navigator interface {
	Graph() *graph.Graph

	// RegisterNextWaypoint reserves the straight run starting at the bot's
	// current node. The bot departs at blockUntil, after rotating for
	// rotation seconds. On failure the bot keeps its previous chain and the
	// blocking bots are returned.
	RegisterNextWaypoint(b *Bot, now, blockUntil, rotation float64, run []graph.NodeID) (bool, []int)

	// ForceAbort stops the given bots at their nearest stoppable node,
	// cascading to whoever blocks the new stops.
	ForceAbort(bots []int, now float64)

	// AbortDrive stops b at its nearest stoppable node
	AbortDrive(b *Bot, now float64)

	// Relocate moves b's standing reservation to node, used after elevator
	// trips. It fails when node is reserved by someone else.
	Relocate(b *Bot, node graph.NodeID, now float64) bool

	InQueueZone(node graph.NodeID) bool
	LeaveQueues(bot int)
}

// TaskListener is notified when a bot's task ends
type TaskListener interface {
	TaskCompleted(b *Bot, t task.Task, now float64)
	TaskAborted(b *Bot, t task.Task, reason error, now float64)
	TaskCancelled(b *Bot, t task.Task, now float64)
}

// Settings tunes bot behaviour
type Settings struct {
	// RetryDelay is how long a bot waits before retrying a failed
	// registration or slot claim
	RetryDelay float64
	// AbortAfterFailures force-aborts the blockers after this many
	// consecutive failed registrations; zero disables it
	AbortAfterFailures int
	PodTransferTime    float64
	// PrepareTimeout is how long a bot waits for a free slot before
	// detouring to a resting location
	PrepareTimeout float64
}

func DefaultSettings() Settings {
	return Settings{
		RetryDelay:         0.5,
		AbortAfterFailures: 6,
		PodTransferTime:    1,
		PrepareTimeout:     10,
	}
}

// Env is everything a bot needs while acting on its states
type Env struct {
	Nav       Navigator
	Warehouse *warehouse.Warehouse
	Listener  TaskListener
	Stats     *shared.SimulationStats
	Settings  Settings
}

func (e *Env) stats() *shared.SimulationStats {
	if e.Stats == nil {
		e.Stats = shared.NewSimulationStats()
	}
	return e.Stats
}

type noopListener struct{}

func (noopListener) TaskCompleted(*Bot, task.Task, float64)      {}
func (noopListener) TaskAborted(*Bot, task.Task, error, float64) {}
func (noopListener) TaskCancelled(*Bot, task.Task, float64)      {}

func (e *Env) listener() TaskListener {
	if e.Listener == nil {
		return noopListener{}
	}
	return e.Listener
}
