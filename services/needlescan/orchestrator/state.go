package orchestrator

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a Module.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrState is returned for operations that are illegal in the current lifecycle state.
var ErrState = errors.New("illegal state transition")

// StateError names the rejected operation and the state it was attempted in.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s while %s", ErrState, e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrState }
