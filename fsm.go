// Package fsm provides a table-driven finite state machine (FSM).
//
// A Table maps (state, event) pairs to transition rules; an FSM holds the
// current state and fires events against a sealed Table. Events without a
// rule are either ignored or rejected depending on the machine's
// UnhandledPolicy. It is built with types and utilities from the
// github.com/enetx/g library.
package fsm

import (
	"fmt"

	"github.com/enetx/g"
)

// Interface compliance check.
var _ StateMachine = (*FSM)(nil)

// New creates a machine in the initial state driven by table.
// The table is sealed and must not be modified afterwards.
func New(initial State, table *Table, opts ...Option) (*FSM, error) {
	if table == nil {
		return nil, ErrNilTable
	}

	if initial == "" {
		return nil, ErrNoInitialState
	}

	if table.declaresStates() && !table.states.Contains(initial) {
		return nil, &ErrUndeclared{Kind: "state", Name: string(initial)}
	}

	table.Seal()

	f := &FSM{
		table:   table,
		initial: initial,
		current: initial,
		history: g.Slice[State]{initial},
		logger:  DefaultLogger(),
		ctx:     newContext(initial),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// MustNew is like New but panics on error.
func MustNew(initial State, table *Table, opts ...Option) *FSM {
	f, err := New(initial, table, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}

	return f
}

// Clone creates a new FSM instance with the same table, hooks and policy but a fresh state.
func (f *FSM) Clone() *FSM {
	return &FSM{
		table:        f.table,
		initial:      f.initial,
		current:      f.initial,
		history:      g.Slice[State]{f.initial},
		onTransition: f.onTransition.Clone(),
		unhandled:    f.unhandled,
		logger:       f.logger,
		ctx:          newContext(f.initial),
	}
}

// Context returns the FSM's context for managing data.
func (f *FSM) Context() *Context { return f.ctx }

// Current returns the FSM's current state.
func (f *FSM) Current() State { return f.current }

// Is reports whether the machine is in state.
func (f *FSM) Is(state State) bool { return f.current == state }

// Initial returns the state the machine was created in.
func (f *FSM) Initial() State { return f.initial }

// Table returns the machine's sealed transition table.
func (f *FSM) Table() *Table { return f.table }

// Policy returns the machine's policy for unregistered events.
func (f *FSM) Policy() UnhandledPolicy { return f.unhandled }

// History returns a copy of the list of previously visited states.
func (f *FSM) History() g.Slice[State] { return f.history.Clone() }

// Reset resets the FSM to its initial state and clears all context data.
func (f *FSM) Reset() {
	f.current = f.initial
	f.ctx = newContext(f.initial)
	f.history = g.Slice[State]{f.initial}
}

// SetState sets the current state manually, without triggering any callbacks.
// The state must be known to the machine's table.
func (f *FSM) SetState(s State) error {
	if !f.knows(s) {
		return &ErrUnknownState{State: s}
	}

	f.current = s
	f.ctx.State = s
	f.history.Push(s)

	return nil
}

// States returns a slice of all unique states known to the machine.
func (f *FSM) States() g.Slice[State] {
	states := f.table.States()
	if !states.Contains(f.initial) {
		states.Push(f.initial)
	}

	return states
}

// OnTransition registers a global transition hook.
func (f *FSM) OnTransition(hook TransitionHook) *FSM {
	f.onTransition.Push(hook)
	return f
}

// Can reports whether event would fire a transition from the current state.
// Guards are evaluated without input.
func (f *FSM) Can(event Event) bool {
	rule, ok := f.table.Lookup(f.current, event)
	if !ok {
		return false
	}

	if rule.Guard == nil {
		return true
	}

	f.ctx.begin(f.current, rule.To, event, nil)
	defer f.ctx.end()

	return rule.Guard(f.ctx)
}

// Fire looks up the rule for (current, event) and executes it.
// It accepts an optional single 'input' argument to pass data to guards and callbacks.
// This input is only valid for the duration of this specific call.
//
// On success the new state is returned. When no rule matches, the machine's
// policy applies: Ignore returns the unchanged state and a nil error, Reject
// returns *ErrInvalidTransition. Callback failures return *ErrCallback; in
// every failure case the state is left unchanged.
func (f *FSM) Fire(event Event, input ...any) (State, error) {
	from := f.current

	rule, ok := f.table.Lookup(from, event)
	if !ok {
		return f.unhandledEvent(from, event, false)
	}

	f.ctx.begin(from, rule.To, event, input)
	defer f.ctx.end()

	if rule.Guard != nil && !rule.Guard(f.ctx) {
		return f.unhandledEvent(from, event, true)
	}

	if err := f.transition(from, rule); err != nil {
		f.ctx.State = from
		f.logger.Debug("fsm: transition aborted", "from", from, "to", rule.To, "event", event, "error", err)

		return from, err
	}

	f.current = rule.To
	f.history.Push(rule.To)
	f.logger.Debug("fsm: transition", "from", from, "to", rule.To, "event", event)

	return rule.To, nil
}

// transition runs the callbacks of rule in order: OnExit, Handler, hooks, OnEnter.
func (f *FSM) transition(from State, rule Transition) error {
	to := rule.To

	f.ctx.State = from

	for _, cb := range f.table.onExit[from] {
		if err := f.executeCallback(cb, "OnExit", from); err != nil {
			return err
		}
	}

	if rule.Handler != nil {
		if err := f.executeHandler(rule.Handler, from, to); err != nil {
			return err
		}
	}

	f.ctx.State = to

	for _, hook := range f.onTransition {
		if err := f.executeHook(hook, from, to, rule.Event); err != nil {
			return err
		}
	}

	for _, cb := range f.table.onEnter[to] {
		if err := f.executeCallback(cb, "OnEnter", to); err != nil {
			return err
		}
	}

	return nil
}

func (f *FSM) unhandledEvent(from State, event Event, guarded bool) (State, error) {
	if f.unhandled == Reject {
		f.logger.Warn("fsm: event rejected", "state", from, "event", event, "guarded", guarded)
		return from, &ErrInvalidTransition{From: from, Event: event, Guarded: guarded}
	}

	f.logger.Debug("fsm: event ignored", "state", from, "event", event, "guarded", guarded)

	return from, nil
}

// executeCallback safely executes a callback, recovering from panics.
func (f *FSM) executeCallback(cb Callback, hookType string, state State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: hookType, State: state, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if cbErr := cb(f.ctx); cbErr != nil {
		err = &ErrCallback{HookType: hookType, State: state, Err: cbErr}
	}

	return err
}

func (f *FSM) executeHandler(h Handler, from, to State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: "Handler", State: from, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if hErr := h(from, to, f.ctx); hErr != nil {
		err = &ErrCallback{HookType: "Handler", State: from, Err: hErr}
	}

	return err
}

func (f *FSM) executeHook(hook TransitionHook, from, to State, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: "OnTransition", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if hookErr := hook(from, to, event, f.ctx); hookErr != nil {
		err = &ErrCallback{HookType: "OnTransition", Err: hookErr}
	}

	return err
}

// CallEnter manually invokes all OnEnter callbacks for a state without a transition.
// Note: It does not set ctx.Input. Use ctx.Data/Meta for pre-loading data.
func (f *FSM) CallEnter(state State) error {
	f.ctx.State = state

	for _, cb := range f.table.onEnter[state] {
		if err := f.executeCallback(cb, "OnEnter", state); err != nil {
			return err
		}
	}

	return nil
}

// Sync returns a thread-safe wrapper around the FSM.
// The FSM must not be used directly afterwards.
func (f *FSM) Sync() *SyncFSM { return &SyncFSM{fsm: f} }

func (f *FSM) knows(s State) bool { return s == f.initial || f.table.HasState(s) }
