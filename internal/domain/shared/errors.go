package shared

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Lookup errors

var (
	ErrUnknownBot      = errors.New("unknown bot")
	ErrUnknownWaypoint = errors.New("unknown waypoint")
	ErrUnknownPod      = errors.New("unknown pod")
	ErrUnknownStation  = errors.New("unknown station")
)

// Validation error

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Graph errors

type GraphError struct {
	*DomainError
}

func NewGraphError(message string) *GraphError {
	return &GraphError{DomainError: NewDomainError(message)}
}

// Reservation errors

// ReservationConflictError reports a failed waypoint registration. It is
// recoverable: the bot stays put and asks for a new path.
type ReservationConflictError struct {
	*DomainError
	BotID    int
	Blockers []int
}

func NewReservationConflictError(botID int, blockers []int) *ReservationConflictError {
	return &ReservationConflictError{
		DomainError: NewDomainError(fmt.Sprintf("bot %d: reservation blocked by %v", botID, blockers)),
		BotID:       botID,
		Blockers:    blockers,
	}
}

// Task errors

// TaskError is a structural failure that ends the current task, e.g. a pod
// that is no longer where the task expected it.
type TaskError struct {
	*DomainError
	BotID int
	State string
}

func NewTaskError(botID int, state, message string) *TaskError {
	return &TaskError{
		DomainError: NewDomainError(fmt.Sprintf("bot %d: %s: %s", botID, state, message)),
		BotID:       botID,
		State:       state,
	}
}

// InvariantViolation signals a logic defect. It is raised with panic and
// recovered by the simulation controller, which stops the run.
type InvariantViolation struct {
	BotID       int
	Current     int
	Next        int
	Destination int
	States      []string
	Reason      string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s (bot=%d current=%d next=%d destination=%d states=[%s])",
		v.Reason, v.BotID, v.Current, v.Next, v.Destination, strings.Join(v.States, ","))
}

// AsInvariantViolation extracts an InvariantViolation from a recovered panic value.
func AsInvariantViolation(r interface{}) (*InvariantViolation, bool) {
	switch v := r.(type) {
	case *InvariantViolation:
		return v, true
	case error:
		var iv *InvariantViolation
		if errors.As(v, &iv) {
			return iv, true
		}
	}
	return nil, false
}
