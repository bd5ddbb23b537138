package simulation

import (
	"github.com/andrescamacho/robofleet/internal/domain/agent"
	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/task"
)

// listeners fans task outcomes out to every registered listener
type listeners struct {
	all []TaskListener
}

func (l *listeners) add(listener TaskListener) {
	if listener != nil {
		l.all = append(l.all, listener)
	}
}

func (l *listeners) TaskCompleted(b *agent.Bot, t task.Task, now float64) {
	for _, x := range l.all {
		x.TaskCompleted(b, t, now)
	}
}

func (l *listeners) TaskAborted(b *agent.Bot, t task.Task, reason error, now float64) {
	for _, x := range l.all {
		x.TaskAborted(b, t, reason, now)
	}
}

func (l *listeners) TaskCancelled(b *agent.Bot, t task.Task, now float64) {
	for _, x := range l.all {
		x.TaskCancelled(b, t, now)
	}
}

// TaskLog keeps every task outcome of a run in order
type TaskLog struct {
	runID  string
	events []run.TaskEvent
}

func NewTaskLog(runID string) *TaskLog {
	return &TaskLog{runID: runID}
}

func (l *TaskLog) TaskCompleted(b *agent.Bot, t task.Task, now float64) {
	l.record(b, t, run.OutcomeCompleted, "", now)
}

func (l *TaskLog) TaskAborted(b *agent.Bot, t task.Task, reason error, now float64) {
	msg := ""
	if reason != nil {
		msg = reason.Error()
	}
	l.record(b, t, run.OutcomeAborted, msg, now)
}

func (l *TaskLog) TaskCancelled(b *agent.Bot, t task.Task, now float64) {
	l.record(b, t, run.OutcomeCancelled, "", now)
}

func (l *TaskLog) record(b *agent.Bot, t task.Task, outcome run.Outcome, reason string, now float64) {
	l.events = append(l.events, run.TaskEvent{
		RunID:   l.runID,
		BotID:   b.ID(),
		Kind:    string(t.Kind()),
		Task:    t.String(),
		Outcome: outcome,
		Reason:  reason,
		SimTime: now,
	})
}

// Events returns a copy of the recorded outcomes
func (l *TaskLog) Events() []run.TaskEvent {
	return append([]run.TaskEvent(nil), l.events...)
}

// Count returns how many tasks ended with outcome
func (l *TaskLog) Count(outcome run.Outcome) int {
	n := 0
	for _, e := range l.events {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}
