package agent

import (
	"fmt"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/kinematics"
	"github.com/andrescamacho/robofleet/internal/domain/routing"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
)

// maxDrainIterations bounds the number of state transitions a bot may make
// within one update. Hitting it means some state keeps signalling progress
// without changing anything.
const maxDrainIterations = 64

// Counters are per-bot statistics
type Counters struct {
	TripsStarted       int
	TripsCompleted     int
	TripTime           float64
	QueueTime          float64
	Distance           float64
	FailedReservations int
	Aborts             int
	PodPickups         int
	PodSetdowns        int
	ItemsHandled       int
	TasksCompleted     int
	TasksAborted       int
	TasksCancelled     int
	RestStarts         int
}

// Bot is one autonomous mobile robot. All mutation happens on the simulation
// goroutine; a Bot is not safe for concurrent use.
type Bot struct {
	id   int
	kin  *kinematics.Model
	x, y float64
	tier int

	orientation float64
	speed       float64

	current     graph.NodeID
	next        graph.NodeID
	destination graph.NodeID

	path   *routing.Path
	states StateQueue
	task   task.Task

	blockedUntil   float64
	retryAt        float64
	failedAttempts int
	pendingWait    float64
	reoptimize     bool

	turn  *turnPhase
	drive *drivePhase

	pod         string
	resting     bool
	lastRest    graph.NodeID
	fixed       bool
	bypassQueue bool

	counters Counters
}

// NewBot places a bot on node, standing still
func NewBot(id int, g *graph.Graph, node graph.NodeID, kin *kinematics.Model, orientation float64) (*Bot, error) {
	wp := g.Waypoint(node)
	if wp == nil {
		return nil, fmt.Errorf("bot %d: start node %d: %w", id, node, shared.ErrUnknownWaypoint)
	}
	if kin == nil {
		return nil, shared.NewValidationError("kinematics", "model is required")
	}
	return &Bot{
		id:          id,
		kin:         kin,
		x:           wp.X,
		y:           wp.Y,
		tier:        wp.Tier,
		orientation: kinematics.WrapOrientation(orientation),
		current:     node,
		next:        graph.NoNode,
		destination: graph.NoNode,
		lastRest:    graph.NoNode,
	}, nil
}

func (b *Bot) ID() int                         { return b.id }
func (b *Bot) Kinematics() *kinematics.Model   { return b.kin }
func (b *Bot) Position() (float64, float64)    { return b.x, b.y }
func (b *Bot) Tier() int                       { return b.tier }
func (b *Bot) Orientation() float64            { return b.orientation }
func (b *Bot) Speed() float64                  { return b.speed }
func (b *Bot) CurrentNode() graph.NodeID       { return b.current }
func (b *Bot) NextNode() graph.NodeID          { return b.next }
func (b *Bot) DestinationNode() graph.NodeID   { return b.destination }
func (b *Bot) Task() task.Task                 { return b.task }
func (b *Bot) BlockedUntil() float64           { return b.blockedUntil }
func (b *Bot) Pod() string                     { return b.pod }
func (b *Bot) IsResting() bool                 { return b.resting }
func (b *Bot) LastRestLocation() graph.NodeID  { return b.lastRest }
func (b *Bot) Counters() Counters              { return b.counters }
func (b *Bot) States() []State                 { return b.states.Items() }
func (b *Bot) StateNames() []string            { return b.states.Names() }
func (b *Bot) NeedsReoptimization() bool       { return b.reoptimize }
func (b *Bot) Fixed() bool                     { return b.fixed }
func (b *Bot) BypassesQueue() bool             { return b.bypassQueue }
func (b *Bot) HasPath() bool                   { return !b.path.IsEmpty() }
func (b *Bot) Moving() bool                    { return b.IsMoving() }
func (b *Bot) AssignQueuePath(p *routing.Path) { b.AssignPath(p) }
func (b *Bot) SetFixed(fixed bool)             { b.fixed = fixed }
func (b *Bot) SetBypassQueue(bypass bool)      { b.bypassQueue = bypass }
func (b *Bot) IsIdle() bool                    { return b.task == nil && b.states.Len() == 0 }
func (b *Bot) RequestReoptimization()          { b.reoptimize = true }
func (b *Bot) ClearReoptimization()            { b.reoptimize = false }
func (b *Bot) FailedAttempts() int             { return b.failedAttempts }

// Path returns a copy of the remaining path
func (b *Bot) Path() *routing.Path {
	return b.path.Clone()
}

// AssignPath replaces the bot's path. The bot picks it up at its next
// registration attempt.
func (b *Bot) AssignPath(p *routing.Path) {
	b.path = p
	b.reoptimize = false
	b.retryAt = 0
}

// ClearPath drops the path and asks for a new one
func (b *Bot) ClearPath() {
	b.path = nil
	b.reoptimize = true
}

// MarkAborted records a forced stop and asks for a new path
func (b *Bot) MarkAborted() {
	b.counters.Aborts++
	b.ClearPath()
}

// IsMoving reports whether the bot is turning or driving
func (b *Bot) IsMoving() bool {
	return b.turn != nil || b.drive != nil
}

// IsDriving reports whether the bot is travelling along an edge right now
func (b *Bot) IsDriving(now float64) bool {
	return b.drive != nil && now >= b.drive.start
}

// PlanningStart is the node and time from which a path-finder can plan this
// bot: the end of its current drive, or its current node when standing.
func (b *Bot) PlanningStart(now float64) (graph.NodeID, float64) {
	if b.drive != nil {
		return b.drive.last(), b.drive.end()
	}
	start := now
	if b.turn != nil {
		start = b.turn.end()
	}
	if b.blockedUntil > start {
		start = b.blockedUntil
	}
	return b.current, start
}

// NextEvent is the earliest future time at which the bot changes state on
// its own: end of a motion phase, of a blocked wait or of a retry delay.
func (b *Bot) NextEvent(now float64) float64 {
	next := shared.Forever
	consider := func(t float64) {
		if t > now && t < next {
			next = t
		}
	}
	if b.turn != nil {
		consider(b.turn.end())
	}
	if b.drive != nil {
		consider(b.drive.start)
		consider(b.drive.end())
	}
	consider(b.blockedUntil)
	consider(b.retryAt)
	return next
}

// Update drains the state queue: the front state acts until it reports no
// further progress. A queue that never settles is a logic defect.
func (b *Bot) Update(last, now float64, env *Env) {
	for i := 0; ; i++ {
		if i >= maxDrainIterations {
			panic(b.violation("state queue did not settle"))
		}
		s := b.states.Front()
		if s == nil {
			break
		}
		if !Act(s, b, last, now, env) {
			break
		}
	}
	if b.task != nil && b.states.Len() == 0 {
		b.finishTask(env, now)
	}
}

// complete marks s finished and removes it from the front of the queue
func (b *Bot) complete(s State) {
	if b.states.Front() != s {
		panic(b.violation(fmt.Sprintf("%s completed while not at the front", s.Name())))
	}
	b.states.Dequeue()
	s.markFinished()
}

func (b *Bot) violation(reason string) *shared.InvariantViolation {
	return &shared.InvariantViolation{
		BotID:       b.id,
		Current:     int(b.current),
		Next:        int(b.next),
		Destination: int(b.destination),
		States:      b.states.Names(),
		Reason:      reason,
	}
}

// teleport puts the bot onto node without driving, used by elevators
func (b *Bot) teleport(g *graph.Graph, node graph.NodeID) {
	wp := g.Waypoint(node)
	b.x, b.y, b.tier = wp.X, wp.Y, wp.Tier
	b.current = node
	b.next = graph.NoNode
	b.speed = 0
	b.turn = nil
	b.drive = nil
}

func (b *Bot) String() string {
	return fmt.Sprintf("bot %d at %d", b.id, b.current)
}
