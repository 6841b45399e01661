package fsm

import (
	"log/slog"
	"sync"

	"github.com/enetx/g"
)

// Logger is the logger used by machines created without WithLogger.
// When nil, slog.Default() is resolved at creation time.
var Logger *slog.Logger

// DefaultLogger returns Logger, or slog.Default() when Logger is nil.
func DefaultLogger() *slog.Logger {
	if Logger != nil {
		return Logger
	}

	return slog.Default()
}

type (
	// State represents a finite state in the FSM.
	State g.String
	// Event represents an event that triggers a transition.
	Event g.String

	// Callback is a function called on entering or exiting a state.
	Callback func(ctx *Context) error
	// GuardFunc determines whether a transition is allowed.
	GuardFunc func(ctx *Context) bool
	// Handler is the action attached to a single transition rule.
	// It runs after OnExit callbacks and before the state is changed.
	Handler func(from, to State, ctx *Context) error
	// TransitionHook is a global callback called for every transition of a machine.
	// It runs after the rule's Handler and before OnEnter.
	TransitionHook func(from, to State, event Event, ctx *Context) error

	// UnhandledPolicy decides what Fire does with an event that has no rule
	// for the current state.
	UnhandledPolicy int

	// DuplicatePolicy decides what Table.Add does with a second rule for the
	// same (from, event) pair.
	DuplicatePolicy int

	// FSM is the main state machine struct.
	// It is not safe for concurrent use; wrap it with Sync when needed.
	FSM struct {
		table        *Table
		initial      State
		current      State
		history      g.Slice[State]
		onTransition g.Slice[TransitionHook]
		unhandled    UnhandledPolicy
		logger       *slog.Logger

		ctx *Context
	}

	// SyncFSM is a thread-safe wrapper around an FSM.
	// It protects all state-mutating and state-reading operations with a sync.RWMutex,
	// making it safe for use across multiple goroutines.
	// All methods on SyncFSM are the thread-safe counterparts to the methods on the base FSM.
	SyncFSM struct {
		fsm *FSM
		mu  sync.RWMutex
	}
)

const (
	// Ignore treats an unregistered (state, event) pair as a no-op.
	Ignore UnhandledPolicy = iota
	// Reject returns *ErrInvalidTransition for an unregistered (state, event) pair.
	Reject
)

const (
	// RejectDuplicates makes Table.Add fail with *ErrDuplicateTransition.
	RejectDuplicates DuplicatePolicy = iota
	// Overwrite replaces the previously registered rule.
	Overwrite
)

// AnyState is the source state of wildcard rules registered with Table.AddAny.
const AnyState State = "*"

func (s State) String() string { return string(s) }

func (e Event) String() string { return string(e) }

func (p UnhandledPolicy) String() string {
	if p == Reject {
		return "reject"
	}

	return "ignore"
}

func (p DuplicatePolicy) String() string {
	if p == Overwrite {
		return "overwrite"
	}

	return "reject"
}
