package domain

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	// ErrNoSuchFlow is returned when a flow id is not registered.
	ErrNoSuchFlow = errors.New("no such flow")
	// ErrNoSuchState is returned when a state id does not exist in a flow.
	ErrNoSuchState = errors.New("no such state")
	// ErrNoSuchAction is returned when an action name is not registered.
	ErrNoSuchAction = errors.New("no such action")
)

// ErrNoMatchingTransition matches every *NoMatchingTransitionError via errors.Is.
var ErrNoMatchingTransition = errors.New("no matching transition")

// Invalid use.
var (
	// ErrIllegalState is returned when the stack is used in a way its current state forbids,
	// e.g. signaling an event on an empty stack.
	ErrIllegalState = errors.New("illegal state")
	// ErrReservedName is returned when a caller writes a reserved attribute name.
	ErrReservedName = errors.New("reserved attribute name")
	// ErrMaxDepthExceeded is returned when spawning a subflow would exceed the configured nesting depth.
	ErrMaxDepthExceeded = errors.New("maximum subflow depth exceeded")
	// ErrStepLimitExceeded is returned when one event cascades into more internal steps than allowed.
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	// ErrInvalidDefinition is returned when a flow definition fails validation.
	ErrInvalidDefinition = errors.New("invalid flow definition")
)

// ErrMissingAttribute is returned by strict attribute mappers when a source is absent.
var ErrMissingAttribute = errors.New("missing attribute")

// ErrExecutionNotFound is returned when an execution id cannot be found in the store.
var ErrExecutionNotFound = errors.New("execution not found")

// NoMatchingTransitionError reports that no transition of the current state accepted the event.
type NoMatchingTransitionError struct {
	FlowID  string
	StateID string
	EventID string
	// Cascaded is set when the event was raised by a preceding step, such as
	// an action result or the end state id of a subflow, rather than by the
	// caller.
	Cascaded bool
}

func (e *NoMatchingTransitionError) Error() string {
	if e.Cascaded {
		return fmt.Sprintf("no transition in state '%s' of flow '%s' matches cascaded event '%s'", e.StateID, e.FlowID, e.EventID)
	}
	return fmt.Sprintf("no transition in state '%s' of flow '%s' matches event '%s'", e.StateID, e.FlowID, e.EventID)
}

// Is makes errors.Is(err, ErrNoMatchingTransition) succeed.
func (e *NoMatchingTransitionError) Is(target error) bool {
	return target == ErrNoMatchingTransition
}

// StateFaultError wraps a failure raised while a state executed its unit of work.
type StateFaultError struct {
	FlowID  string
	StateID string
	Err     error
}

func (e *StateFaultError) Error() string {
	return fmt.Sprintf("state '%s' of flow '%s' failed: %v", e.StateID, e.FlowID, e.Err)
}

func (e *StateFaultError) Unwrap() error {
	return e.Err
}

// MappingError reports a failed attribute mapping.
type MappingError struct {
	Source string
	Target string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping '%s' -> '%s' failed: %v", e.Source, e.Target, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Coded is implemented by faults that carry a stable code, so that
// declarative fault handlers (e.g. loaded from YAML) can match them.
type Coded interface {
	FaultCode() string
}

// Fault is a simple coded error that actions can return.
type Fault struct {
	Code    string
	Message string
}

// NewFault creates a coded fault.
func NewFault(code, message string) *Fault {
	return &Fault{Code: code, Message: message}
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return f.Code
	}
	return f.Code + ": " + f.Message
}

// FaultCode implements Coded.
func (f *Fault) FaultCode() string {
	return f.Code
}
