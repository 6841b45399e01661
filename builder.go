package fsm

import (
	"errors"
	"fmt"
	"log/slog"
)

type pendingRule struct {
	from  State
	event Event
	to    State
	opts  []TransitionOption
}

type pendingCallback struct {
	state State
	cb    Callback
	enter bool
}

// Builder assembles a Table and an initial state into a ready machine.
//
// Configuration errors are collected and reported together by Build, so a
// chain of calls never has to be interrupted for error checks.
type Builder struct {
	initial    State
	initialSet int
	states     []State
	events     []Event
	rules      []pendingRule
	callbacks  []pendingCallback
	duplicates DuplicatePolicy
	opts       []Option
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder { return new(Builder) }

// Initial sets the initial state. It must be called exactly once.
func (b *Builder) Initial(state State) *Builder {
	b.initial = state
	b.initialSet++

	return b
}

// States declares the state vocabulary.
func (b *Builder) States(states ...State) *Builder {
	b.states = append(b.states, states...)
	return b
}

// Events declares the event vocabulary.
func (b *Builder) Events(events ...Event) *Builder {
	b.events = append(b.events, events...)
	return b
}

// Transition adds the rule from -> event -> to.
func (b *Builder) Transition(from State, event Event, to State, opts ...TransitionOption) *Builder {
	b.rules = append(b.rules, pendingRule{from: from, event: event, to: to, opts: opts})
	return b
}

// TransitionWhen adds a guarded rule.
func (b *Builder) TransitionWhen(from State, event Event, to State, guard GuardFunc) *Builder {
	return b.Transition(from, event, to, WithGuard(guard))
}

// TransitionAny adds a rule that fires on event from any state without an exact rule.
func (b *Builder) TransitionAny(event Event, to State, opts ...TransitionOption) *Builder {
	return b.Transition(AnyState, event, to, opts...)
}

// OnEnter registers a callback for when entering a given state.
func (b *Builder) OnEnter(state State, cb Callback) *Builder {
	b.callbacks = append(b.callbacks, pendingCallback{state: state, cb: cb, enter: true})
	return b
}

// OnExit registers a callback for when exiting a given state.
func (b *Builder) OnExit(state State, cb Callback) *Builder {
	b.callbacks = append(b.callbacks, pendingCallback{state: state, cb: cb})
	return b
}

// Strict makes the built machine reject unregistered events.
func (b *Builder) Strict() *Builder {
	b.opts = append(b.opts, WithStrict())
	return b
}

// AllowOverwrite makes a repeated (from, event) rule replace the earlier one
// instead of failing the build.
func (b *Builder) AllowOverwrite() *Builder {
	b.duplicates = Overwrite
	return b
}

// Logger sets the logger of the built machine.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(logger))
	return b
}

// With appends machine options.
func (b *Builder) With(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// BuildTable creates the table without a machine. The table is not sealed.
func (b *Builder) BuildTable() (*Table, error) {
	table := NewTable(
		WithStates(b.states...),
		WithEvents(b.events...),
		WithDuplicates(b.duplicates),
	)

	var errs []error

	for i, r := range b.rules {
		if err := table.Add(r.from, r.event, r.to, r.opts...); err != nil {
			errs = append(errs, fmt.Errorf("transition[%d] %s -(%s)-> %s: %w", i, r.from, r.event, r.to, err))
		}
	}

	for _, c := range b.callbacks {
		register := table.OnExit
		if c.enter {
			register = table.OnEnter
		}

		if err := register(c.state, c.cb); err != nil {
			errs = append(errs, fmt.Errorf("callback for state %q: %w", c.state, err))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return table, nil
}

// Build validates the configuration and returns a machine in the initial state.
func (b *Builder) Build() (*FSM, error) {
	var errs []error

	switch {
	case b.initialSet == 0:
		errs = append(errs, ErrNoInitialState)
	case b.initialSet > 1:
		errs = append(errs, ErrInitialStateSet)
	}

	table, err := b.BuildTable()
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return New(b.initial, table, b.opts...)
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *FSM {
	f, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build state machine: %v", err))
	}

	return f
}
