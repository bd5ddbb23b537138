package agent

import (
	"fmt"

	"github.com/andrescamacho/robofleet/internal/domain/graph"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
	"github.com/andrescamacho/robofleet/internal/domain/warehouse"
)

// Act lets s make progress for bot b at simulation time now; last is the
// time of the previous update. It returns true when the front of b's state
// queue changed, in which case the caller keeps draining. Acting on a state
// that already finished is a no-op.
func Act(s State, b *Bot, last, now float64, env *Env) bool {
	if s.Finished() {
		return true
	}
	switch st := s.(type) {
	case *Move:
		return actMove(st, b, now, env)
	case *PickupPod:
		return actPickup(st, b, now, env)
	case *SetdownPod:
		return actSetdown(st, b, now, env)
	case *GetItems:
		return actStationWork(st, &st.stationWork, b, now, env)
	case *PutItems:
		return actStationWork(st, &st.stationWork, b, now, env)
	case *Rest:
		return actRest(st, b, now)
	case *WaitForMate:
		return actRendezvous(st, &st.rendezvous, warehouse.MatePrimary, b, now, env)
	case *WaitForStation:
		return actRendezvous(st, &st.rendezvous, warehouse.MateHelper, b, now, env)
	case *UseElevator:
		return actElevator(st, b, now, env)
	case *PreparePartialTask:
		return actPrepare(st, b, now, env)
	default:
		panic(b.violation(fmt.Sprintf("unknown state %T", s)))
	}
}

func actMove(m *Move, b *Bot, now float64, env *Env) bool {
	g := env.Nav.Graph()
	if !m.started {
		if !g.SameTier(b.current, m.Destination) && b.current != m.Destination {
			panic(b.violation(fmt.Sprintf("move target %s is on another tier", g.Symbol(m.Destination))))
		}
		m.started = true
		m.tripStart = now
		if !m.Braking {
			b.counters.TripsStarted++
		}
		m.queueZone = env.Nav.InQueueZone(m.Destination)
		b.destination = m.Destination
		if b.current != m.Destination && b.path.IsEmpty() {
			b.reoptimize = true
		}
	}
	if b.IsMoving() {
		return false
	}
	if m.queueZone && m.zoneEnteredAt < 0 && env.Nav.InQueueZone(b.current) {
		m.zoneEnteredAt = now
	}
	if b.pendingWait > 0 {
		b.blockedUntil = now + b.pendingWait
		b.pendingWait = 0
	}
	if now < b.blockedUntil {
		return false
	}

	if b.current == m.Destination {
		if !m.Braking {
			b.counters.TripsCompleted++
			b.counters.TripTime += now - m.tripStart
		}
		if m.zoneEnteredAt >= 0 {
			b.counters.QueueTime += now - m.zoneEnteredAt
		}
		b.next = graph.NoNode
		b.destination = graph.NoNode
		b.failedAttempts = 0
		b.complete(m)
		return true
	}

	if now < b.retryAt {
		return false
	}

	// wait actions at the node the bot stands on
	for {
		a, ok := b.path.Front()
		if !ok || a.Node != b.current {
			break
		}
		b.path.PopFront()
		if a.Wait > 0 {
			b.blockedUntil = now + a.Wait
			return false
		}
	}

	front, ok := b.path.Front()
	if !ok {
		b.reoptimize = true
		b.retryAt = now + env.Settings.RetryDelay
		return false
	}
	if !g.SameTier(b.current, front.Node) {
		panic(b.violation(fmt.Sprintf("path leads to %s on another tier", g.Symbol(front.Node))))
	}
	if !g.HasEdge(b.current, front.Node) {
		// stale path, e.g. after an abort moved the bot
		b.ClearPath()
		b.retryAt = now + env.Settings.RetryDelay
		return false
	}

	run := b.straightRun(g)
	heading := g.Heading(b.current, front.Node)
	rotation := b.kin.TurnTime(b.orientation, heading)
	stats := env.stats()

	granted, blockers := env.Nav.RegisterNextWaypoint(b, now, now+rotation, rotation, run)
	if !granted {
		b.failedAttempts++
		b.counters.FailedReservations++
		stats.ReservationConflicts++
		b.retryAt = now + env.Settings.RetryDelay
		b.reoptimize = true
		if env.Settings.AbortAfterFailures > 0 && b.failedAttempts >= env.Settings.AbortAfterFailures && len(blockers) > 0 {
			b.failedAttempts = 0
			env.Nav.ForceAbort(blockers, now)
		}
		return false
	}
	stats.ReservationsGranted++
	b.failedAttempts = 0

	for i := 1; i < len(run); i++ {
		a, _ := b.path.PopFront()
		if i == len(run)-1 && a.Wait > 0 {
			b.pendingWait = a.Wait
		}
	}
	b.startMotion(g, now, rotation, heading, run)
	return false
}

// straightRun collects the current node and the following path nodes that
// lie on one straight line, up to the first stop or wait.
func (b *Bot) straightRun(g *graph.Graph) []graph.NodeID {
	run := []graph.NodeID{b.current}
	tol := b.kin.Tolerance()
	for i := 0; i < b.path.Len(); i++ {
		a := b.path.At(i)
		prev := run[len(run)-1]
		if !g.HasEdge(prev, a.Node) || !g.SameTier(prev, a.Node) {
			break
		}
		if len(run) > 1 && !g.Collinear(run[len(run)-2], prev, a.Node, tol) {
			break
		}
		run = append(run, a.Node)
		if a.Stop || a.Wait > 0 {
			break
		}
	}
	return run
}

func actPickup(s *PickupPod, b *Bot, now float64, env *Env) bool {
	if !s.done {
		if b.current != s.Node {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), "bot is not at the pod location"))
			return false
		}
		if err := env.Warehouse.PickupPod(b.id, s.Pod, s.Node); err != nil {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), err.Error()))
			return false
		}
		s.done = true
		b.pod = s.Pod
		b.blockedUntil = now + env.Settings.PodTransferTime
		b.counters.PodPickups++
		env.stats().PodPickups++
	}
	if now < b.blockedUntil {
		return false
	}
	b.complete(s)
	return true
}

func actSetdown(s *SetdownPod, b *Bot, now float64, env *Env) bool {
	if !s.done {
		if b.current != s.Node {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), "bot is not at the storage location"))
			return false
		}
		if err := env.Warehouse.SetdownPod(b.id, s.Pod, s.Node); err != nil {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), err.Error()))
			return false
		}
		s.done = true
		b.pod = ""
		b.blockedUntil = now + env.Settings.PodTransferTime
		b.counters.PodSetdowns++
		env.stats().PodSetdowns++
	}
	if now < b.blockedUntil {
		return false
	}
	b.complete(s)
	return true
}

func actStationWork(s State, w *stationWork, b *Bot, now float64, env *Env) bool {
	wh := env.Warehouse
	if !w.submitted {
		st, ok := wh.Stations[w.Station]
		if !ok {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), fmt.Sprintf("station %s: %v", w.Station, shared.ErrUnknownStation)))
			return false
		}
		if b.current != st.Terminal {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), "bot is not at the station"))
			return false
		}
		for _, r := range w.Requests {
			r.Bot = b.id
			r.Pod = b.pod
			r.Station = st.ID
		}
		st.Submit(w.Requests...)
		w.submitted = true
	}
	stats := env.stats()
	for w.next < len(w.Requests) {
		r := w.Requests[w.next]
		switch r.Status {
		case warehouse.RequestUnfinished:
			return false
		case warehouse.RequestFinished:
			b.counters.ItemsHandled += r.Quantity
			stats.RequestsFinished++
		case warehouse.RequestAborted:
			wh.ReturnRequest(r)
			stats.RequestsAborted++
		}
		w.next++
	}
	b.complete(s)
	return true
}

func actRest(s *Rest, b *Bot, now float64) bool {
	if !s.started {
		s.started = true
		b.resting = true
		b.blockedUntil = now + s.Duration
		b.counters.RestStarts++
	}
	if now < b.blockedUntil {
		return false
	}
	b.resting = false
	b.lastRest = b.current
	b.complete(s)
	return true
}

func actRendezvous(s State, r *rendezvous, role warehouse.MateRole, b *Bot, now float64, env *Env) bool {
	mates := env.Warehouse.Mates
	if !r.arrived {
		r.arrived = true
		mates.Arrive(r.Key, role, r.Duration, now)
	}
	release, met := mates.ReleaseAt(r.Key)
	if !met {
		return false
	}
	if now < release {
		b.blockedUntil = release
		return false
	}
	mates.Leave(r.Key, role)
	if role == warehouse.MatePrimary {
		env.stats().Rendezvous++
	}
	b.complete(s)
	return true
}

func actElevator(s *UseElevator, b *Bot, now float64, env *Env) bool {
	e, ok := env.Warehouse.Elevators[s.Elevator]
	if !ok {
		b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), fmt.Sprintf("unknown elevator %s", s.Elevator)))
		return false
	}
	if !s.entered {
		from, onStop := e.TierOf(b.current)
		to, servesTarget := e.TierOf(s.To)
		if !onStop || !servesTarget {
			b.abortTask(env, now, shared.NewTaskError(b.id, s.Name(), "bot is not at a stop of the elevator"))
			return false
		}
		if now < b.retryAt {
			return false
		}
		if !e.Enter(b.id) {
			b.retryAt = now + env.Settings.RetryDelay
			return false
		}
		s.entered = true
		s.arrivalAt = now + e.TripTime(from, to)
		b.blockedUntil = s.arrivalAt
		env.stats().ElevatorTrips++
	}
	if now < s.arrivalAt || now < b.blockedUntil {
		return false
	}
	if !env.Nav.Relocate(b, s.To, now) {
		b.blockedUntil = now + env.Settings.RetryDelay
		return false
	}
	b.teleport(env.Nav.Graph(), s.To)
	e.Exit(b.id)
	b.complete(s)
	return true
}

func actPrepare(s *PreparePartialTask, b *Bot, now float64, env *Env) bool {
	res := env.Warehouse.Resources
	if !s.started {
		s.started = true
		s.since = now
	}
	if now < s.nextAttempt {
		return false
	}

	kind := warehouse.ResourceStorage
	if s.Purpose == PurposeRest {
		kind = warehouse.ResourceRest
	}
	if slot, ok := res.ClaimNearest(kind, b.id, b.current, b.reachable(env)); ok {
		next, err := s.continuation(b, slot, env)
		if err != nil {
			// reachable admitted slot, so only a broken elevator map gets here
			res.Release(slot, b.id)
			b.abortTask(env, now, err)
			return false
		}
		if s.detour != graph.NoNode {
			res.Release(s.detour, b.id)
			s.detour = graph.NoNode
		}
		b.complete(s)
		b.states.PushFront(next...)
		return true
	}

	s.nextAttempt = now + env.Settings.RetryDelay
	if b.blockedUntil < s.nextAttempt {
		b.blockedUntil = s.nextAttempt
	}
	if !s.detoured && s.Purpose != PurposeRest && now-s.since >= s.Timeout {
		s.detoured = true
		if rest, ok := res.ClaimNearest(warehouse.ResourceRest, b.id, b.current, b.sameTier(env)); ok {
			s.detour = rest
			if rest != b.current {
				b.blockedUntil = now
				b.states.PushFront(NewMove(rest))
				return true
			}
		}
	}
	return false
}

// continuation drives to the prepared slot, through an elevator when it is
// on another tier, and uses it
func (s *PreparePartialTask) continuation(b *Bot, slot graph.NodeID, env *Env) ([]State, error) {
	states, err := b.relocation(slot, env)
	if err != nil {
		return nil, err
	}
	if s.Purpose == PurposeRest {
		return append(states, NewRest(slot, s.RestDuration)), nil
	}
	return append(states, NewSetdownPod(s.Pod, slot)), nil
}

// sameTier admits nodes on b's tier
func (b *Bot) sameTier(env *Env) func(graph.NodeID) bool {
	g := env.Nav.Graph()
	return func(n graph.NodeID) bool {
		wp := g.Waypoint(n)
		return wp != nil && wp.Tier == b.tier
	}
}

// reachable admits nodes on b's tier and on tiers one elevator ride away
func (b *Bot) reachable(env *Env) func(graph.NodeID) bool {
	g := env.Nav.Graph()
	return func(n graph.NodeID) bool {
		wp := g.Waypoint(n)
		if wp == nil {
			return false
		}
		if wp.Tier == b.tier {
			return true
		}
		_, ok := linkingElevator(env.Warehouse, b.tier, wp.Tier)
		return ok
	}
}
