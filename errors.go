package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInitialState is returned by Builder.Build when Initial was never called.
	ErrNoInitialState = errors.New("fsm: initial state is not set")
	// ErrInitialStateSet is returned by Builder.Build when Initial was called more than once.
	ErrInitialStateSet = errors.New("fsm: initial state is already set")
	// ErrTableSealed is returned when adding a rule to a table that is already used by a machine.
	ErrTableSealed = errors.New("fsm: transition table is sealed")
	// ErrNilTable is returned by New when no table is supplied.
	ErrNilTable = errors.New("fsm: transition table is nil")
)

// ErrCallback is returned when a callback (OnEnter, OnExit), a transition Handler
// or a hook (OnTransition) returns an error or panics. It wraps the original error,
// allowing it to be inspected using functions like errors.Is and errors.As.
type ErrCallback struct {
	// HookType is the type of callback or hook where the error occurred (e.g., "OnEnter", "Handler").
	HookType string
	// State is the state associated with the callback. It may be empty for global hooks.
	State State
	// Err is the original error returned by the callback or the error created after recovering from a panic.
	Err error
}

func (e *ErrCallback) Error() string {
	if e.State != "" {
		return fmt.Sprintf("fsm: error in %s callback for state %q: %v", e.HookType, e.State, e.Err)
	}

	return fmt.Sprintf("fsm: error in %s hook: %v", e.HookType, e.Err)
}

// Unwrap provides compatibility with the standard library's errors package,
// allowing the use of errors.Is and errors.As to inspect the wrapped error.
func (e *ErrCallback) Unwrap() error { return e.Err }

// ErrInvalidTransition is returned by a machine running with the Reject policy when
// no rule matches the event in the current state, or when the rule's guard vetoes it.
type ErrInvalidTransition struct {
	From  State
	Event Event
	// Guarded is true when a rule exists but its guard returned false.
	Guarded bool
}

func (e *ErrInvalidTransition) Error() string {
	if e.Guarded {
		return fmt.Sprintf("fsm: transition for event %q from state %q rejected by guard", e.Event, e.From)
	}

	return fmt.Sprintf("fsm: no matching transition for event %q from state %q", e.Event, e.From)
}

// ErrDuplicateTransition is returned when a second rule is registered for the
// same (from, event) pair and the table uses RejectDuplicates.
type ErrDuplicateTransition struct {
	From  State
	Event Event
}

func (e *ErrDuplicateTransition) Error() string {
	return fmt.Sprintf("fsm: duplicate transition for event %q from state %q", e.Event, e.From)
}

// ErrUndeclared is returned when a rule or the initial state references a state
// or event outside of the declared vocabulary.
type ErrUndeclared struct {
	// Kind is either "state" or "event".
	Kind string
	Name string
}

func (e *ErrUndeclared) Error() string {
	return fmt.Sprintf("fsm: undeclared %s %q", e.Kind, e.Name)
}

// ErrUnknownState is returned when attempting to restore or force a state that
// the machine's table does not know. This prevents the FSM from entering
// an invalid, undeclared state.
type ErrUnknownState struct {
	State State
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("fsm: unknown state %q", e.State)
}

// IsInvalidTransition reports whether err is, or wraps, an *ErrInvalidTransition.
func IsInvalidTransition(err error) bool {
	var target *ErrInvalidTransition
	return errors.As(err, &target)
}

// IsDuplicateTransition reports whether err is, or wraps, an *ErrDuplicateTransition.
func IsDuplicateTransition(err error) bool {
	var target *ErrDuplicateTransition
	return errors.As(err, &target)
}
