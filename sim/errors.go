package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrPastScheduling is matched by every PastSchedulingError.
	ErrPastScheduling = errors.New("scheduling into the past")
	// ErrUnknownAgent is matched by every UnknownAgentError.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrCapacityExceeded is matched by every CapacityExceededError.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrMessagingDisabled is returned when an agent sends with messaging off.
	ErrMessagingDisabled = errors.New("messaging is disabled")
	// ErrNotSnapshottable is returned when checkpointing an agent that does
	// not implement Snapshotter.
	ErrNotSnapshottable = errors.New("agent does not implement Snapshotter")
)

// PastSchedulingError reports work due before the current time.
type PastSchedulingError struct {
	Due Time
	Now Time
}

func (e *PastSchedulingError) Error() string {
	return fmt.Sprintf("scheduling into the past: due %d, now %d", e.Due, e.Now)
}

func (e *PastSchedulingError) Is(target error) bool { return target == ErrPastScheduling }

// UnknownAgentError reports an event or message addressed to an unregistered id.
type UnknownAgentError struct {
	ID AgentID
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %d", e.ID)
}

func (e *UnknownAgentError) Is(target error) bool { return target == ErrUnknownAgent }

// CapacityExceededError reports an arena or buffer bound being hit.
type CapacityExceededError struct {
	Resource string // e.g. "arena", "mailbox 0->1"
	Limit    int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s capacity of %d exceeded", e.Resource, e.Limit)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// AgentError wraps a handler failure with where it happened.
type AgentError struct {
	Agent AgentID
	Time  Time
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %d at t=%d: %v", e.Agent, e.Time, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// IsPastScheduling returns true if err is or wraps a PastSchedulingError.
func IsPastScheduling(err error) bool {
	return errors.Is(err, ErrPastScheduling)
}

// IsUnknownAgent returns true if err is or wraps an UnknownAgentError.
func IsUnknownAgent(err error) bool {
	return errors.Is(err, ErrUnknownAgent)
}

// IsCapacityExceeded returns true if err is or wraps a CapacityExceededError.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}
