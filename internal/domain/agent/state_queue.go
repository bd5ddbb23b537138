package agent

import "github.com/andrescamacho/robofleet/internal/domain/shared"

// StateQueue is the FIFO of states of one bot. Only the front state is
// active.
type StateQueue struct {
	items []State
}

// Front returns the active state, nil when the queue is empty
func (q *StateQueue) Front() State {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *StateQueue) Enqueue(states ...State) {
	q.items = append(q.items, states...)
}

// PushFront inserts states ahead of the current front, keeping their order
func (q *StateQueue) PushFront(states ...State) {
	q.items = append(append([]State(nil), states...), q.items...)
}

// Dequeue removes the front state. An empty queue is a logic defect.
func (q *StateQueue) Dequeue() State {
	if len(q.items) == 0 {
		panic(&shared.InvariantViolation{BotID: -1, Current: -1, Next: -1, Destination: -1, Reason: "dequeue from empty state queue"})
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s
}

func (q *StateQueue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queued states
func (q *StateQueue) Items() []State {
	return append([]State(nil), q.items...)
}

func (q *StateQueue) Clear() {
	q.items = nil
}

// Names lists the state names front to back
func (q *StateQueue) Names() []string {
	names := make([]string, len(q.items))
	for i, s := range q.items {
		names[i] = s.Name()
	}
	return names
}
