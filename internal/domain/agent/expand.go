package agent

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/task"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// Expand turns a task into the ordered states that execute it. Slots named by
// the task are claimed here; unnamed ones are claimed by a
// PreparePartialTask once the bot gets there.
func Expand(b *Bot, t task.Task, env *Env) ([]State, error) {
	w := env.Warehouse
	g := env.Nav.Graph()

	switch tk := t.(type) {
	case *task.ParkPod:
		if b.pod != tk.Pod {
			return nil, shared.NewTaskError(b.id, "ParkPod", fmt.Sprintf("bot does not carry pod %s", tk.Pod))
		}
		return b.parkStates(tk.Pod, tk.Storage, env), nil

	case *task.Extract:
		return b.stationVisit(tk.Pod, tk.Station, warehouse.StationOutput, tk.Requests, tk.Storage, env)

	case *task.Insert:
		return b.stationVisit(tk.Pod, tk.Station, warehouse.StationInput, tk.Requests, tk.Storage, env)

	case *task.Rest:
		if tk.Location == graph.NoNode {
			return []State{NewPreparePartialTask(PurposeRest, "", tk.Duration, env.Settings.PrepareTimeout)}, nil
		}
		if kind, ok := w.Resources.Kind(tk.Location); !ok || kind != warehouse.ResourceRest {
			return nil, shared.NewTaskError(b.id, "Rest", fmt.Sprintf("%s is not a resting location", g.Symbol(tk.Location)))
		}
		if !w.Resources.Claim(tk.Location, b.id) {
			return []State{NewPreparePartialTask(PurposeRest, "", tk.Duration, env.Settings.PrepareTimeout)}, nil
		}
		return []State{NewMove(tk.Location), NewRest(tk.Location, tk.Duration)}, nil

	case *task.MultiPointGather:
		if len(tk.Points) == 0 {
			return nil, shared.NewTaskError(b.id, "MultiPointGather", "no gather points")
		}
		states := make([]State, 0, 2*len(tk.Points))
		for _, p := range tk.Points {
			if !g.Valid(p.Node) {
				return nil, fmt.Errorf("gather point %d: %w", p.Node, shared.ErrUnknownWaypoint)
			}
			key := warehouse.RendezvousKey{Primary: b.id, Helper: p.Helper, Node: p.Node}
			states = append(states, NewMove(p.Node), NewWaitForMate(key, p.Duration))
		}
		return states, nil

	case *task.Assist:
		if !g.Valid(tk.Location) {
			return nil, fmt.Errorf("assist location %d: %w", tk.Location, shared.ErrUnknownWaypoint)
		}
		key := warehouse.RendezvousKey{Primary: tk.Primary, Helper: b.id, Node: tk.Point}
		return []State{NewMove(tk.Location), NewWaitForStation(key, tk.Duration)}, nil

	case *task.Relocate:
		return b.relocation(tk.Destination, env)

	default:
		return nil, shared.NewTaskError(b.id, "Expand", fmt.Sprintf("unsupported task %T", t))
	}
}

func (b *Bot) stationVisit(podID, stationID string, kind warehouse.StationKind, requests []*warehouse.Request, storage graph.NodeID, env *Env) ([]State, error) {
	w := env.Warehouse
	pod, ok := w.Pods[podID]
	if !ok {
		return nil, fmt.Errorf("pod %s: %w", podID, shared.ErrUnknownPod)
	}
	st, ok := w.Stations[stationID]
	if !ok {
		return nil, fmt.Errorf("station %s: %w", stationID, shared.ErrUnknownStation)
	}
	if st.Kind != kind {
		return nil, shared.NewTaskError(b.id, "Expand", fmt.Sprintf("station %s is an %s station", st.ID, st.Kind))
	}
	if !env.Nav.Graph().SameTier(b.current, st.Terminal) {
		return nil, shared.NewTaskError(b.id, "Expand", fmt.Sprintf("station %s is on another tier", st.ID))
	}

	var states []State
	if b.pod != podID {
		if b.pod != "" {
			return nil, shared.NewTaskError(b.id, "Expand", fmt.Sprintf("bot already carries pod %s", b.pod))
		}
		states = append(states, NewMove(pod.Node), NewPickupPod(podID, pod.Node))
	}
	states = append(states, NewMove(st.Terminal))
	if kind == warehouse.StationOutput {
		states = append(states, NewGetItems(st.ID, requests))
	} else {
		states = append(states, NewPutItems(st.ID, requests))
	}
	return append(states, b.parkStates(podID, storage, env)...), nil
}

func (b *Bot) parkStates(podID string, storage graph.NodeID, env *Env) []State {
	if storage != graph.NoNode && env.Warehouse.Resources.Claim(storage, b.id) {
		return []State{NewMove(storage), NewSetdownPod(podID, storage)}
	}
	return []State{NewPreparePartialTask(PurposeParkPod, podID, 0, env.Settings.PrepareTimeout)}
}

// relocation drives to destination, riding one elevator when it is on
// another tier
func (b *Bot) relocation(destination graph.NodeID, env *Env) ([]State, error) {
	g := env.Nav.Graph()
	target := g.Waypoint(destination)
	if target == nil {
		return nil, fmt.Errorf("relocate to %d: %w", destination, shared.ErrUnknownWaypoint)
	}
	if target.Tier == b.tier {
		return []State{NewMove(destination)}, nil
	}
	e, ok := linkingElevator(env.Warehouse, b.tier, target.Tier)
	if !ok {
		return nil, shared.NewTaskError(b.id, "Relocate", fmt.Sprintf("no elevator links tier %d and tier %d", b.tier, target.Tier))
	}
	from, to := e.Stops[b.tier], e.Stops[target.Tier]
	states := []State{NewMove(from), NewUseElevator(e.ID, to)}
	if to != destination {
		states = append(states, NewMove(destination))
	}
	return states, nil
}

// linkingElevator is the first elevator, by id, stopping on both tiers
func linkingElevator(w *warehouse.Warehouse, from, to int) (*warehouse.Elevator, bool) {
	for _, id := range elevatorIDs(w) {
		e := w.Elevators[id]
		_, okFrom := e.Stops[from]
		_, okTo := e.Stops[to]
		if okFrom && okTo {
			return e, true
		}
	}
	return nil, false
}

// AssignTask expands t and queues its states. A bot takes one task at a
// time; the assignment layer cancels the running one first.
func (b *Bot) AssignTask(t task.Task, now float64, env *Env) error {
	if b.task != nil {
		return shared.NewTaskError(b.id, "AssignTask", fmt.Sprintf("bot is busy with %s", b.task))
	}
	// a finished rest keeps its location claimed until the next task
	env.Warehouse.Resources.ReleaseAll(b.id)
	states, err := Expand(b, t, env)
	if err != nil {
		return err
	}
	b.task = t
	b.resting = false
	b.states.Enqueue(states...)
	b.reoptimize = true
	env.stats().TasksAssigned++
	return nil
}

// CancelTask ends the running task early. Active states release what they
// hold, a driving bot brakes to its nearest stoppable node and the listener
// is told.
func (b *Bot) CancelTask(now float64, env *Env) {
	if b.task == nil && b.states.Len() == 0 {
		return
	}
	t := b.task
	b.cleanup(env)
	env.Nav.AbortDrive(b, now)
	b.states.Clear()
	b.path = nil
	b.reoptimize = false
	b.destination = graph.NoNode
	if b.drive != nil {
		m := NewMove(b.drive.last())
		m.Braking = true
		b.states.Enqueue(m)
	}
	b.task = nil
	b.counters.TasksCancelled++
	env.stats().TasksCancelled++
	if t != nil {
		env.listener().TaskCancelled(b, t, now)
	}
}

// abortTask ends the task after a structural failure. The bot stands still,
// so its reservations are left alone.
func (b *Bot) abortTask(env *Env, now float64, reason error) {
	t := b.task
	b.cleanup(env)
	b.states.Clear()
	b.path = nil
	b.destination = graph.NoNode
	b.task = nil
	b.counters.TasksAborted++
	env.stats().TasksAborted++
	if t != nil {
		env.listener().TaskAborted(b, t, reason, now)
	}
}

func (b *Bot) finishTask(env *Env, now float64) {
	t := b.task
	b.task = nil
	if t.Kind() != task.KindRest {
		env.Warehouse.Resources.ReleaseAll(b.id)
	}
	b.counters.TasksCompleted++
	env.stats().TasksCompleted++
	env.listener().TaskCompleted(b, t, now)
}

// cleanup undoes what the queued states hold in the warehouse
func (b *Bot) cleanup(env *Env) {
	w := env.Warehouse
	for _, s := range b.states.Items() {
		switch st := s.(type) {
		case *GetItems:
			b.returnRequests(w, &st.stationWork)
		case *PutItems:
			b.returnRequests(w, &st.stationWork)
		case *WaitForMate:
			if st.arrived {
				w.Mates.Cancel(st.Key, warehouse.MatePrimary)
			}
		case *WaitForStation:
			if st.arrived {
				w.Mates.Cancel(st.Key, warehouse.MateHelper)
			}
		case *UseElevator:
			if st.entered {
				if e, ok := w.Elevators[st.Elevator]; ok {
					e.Exit(b.id)
				}
				b.blockedUntil = 0
			}
		case *Rest:
			b.resting = false
			b.blockedUntil = 0
		}
	}
	w.Resources.ReleaseAll(b.id)
	env.Nav.LeaveQueues(b.id)
}

func (b *Bot) returnRequests(w *warehouse.Warehouse, work *stationWork) {
	if work.submitted {
		if st, ok := w.Stations[work.Station]; ok {
			st.Withdraw(b.id)
		}
	}
	for _, r := range work.Requests[work.next:] {
		if r.Status != warehouse.RequestFinished {
			w.ReturnRequest(r)
		}
	}
	work.next = len(work.Requests)
}

func elevatorIDs(w *warehouse.Warehouse) []string {
	ids := make([]string, 0, len(w.Elevators))
	for id := range w.Elevators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
