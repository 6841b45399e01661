package fsm

import (
	"sync/atomic"

	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// Transition is a single rule of a Table: from -> event -> to, with an optional
// guard and handler. Rules registered with AddAny have From == AnyState.
type Transition struct {
	From    State
	Event   Event
	To      State
	Guard   GuardFunc
	Handler Handler
}

// TransitionOption configures a single rule.
type TransitionOption func(*Transition)

// WithGuard sets a guard that must return true for the rule to fire.
func WithGuard(guard GuardFunc) TransitionOption {
	return func(t *Transition) { t.Guard = guard }
}

// WithHandler sets the action executed while the rule fires.
func WithHandler(handler Handler) TransitionOption {
	return func(t *Transition) { t.Handler = handler }
}

// TableOption configures a Table at construction.
type TableOption func(*Table)

// WithStates declares the state vocabulary. Once declared, rules and initial
// states outside of it are rejected with *ErrUndeclared.
func WithStates(states ...State) TableOption {
	return func(t *Table) {
		for _, s := range states {
			t.states.Insert(s)
		}
	}
}

// WithEvents declares the event vocabulary.
func WithEvents(events ...Event) TableOption {
	return func(t *Table) {
		for _, e := range events {
			t.events.Insert(e)
		}
	}
}

// WithDuplicates sets the policy for a second rule on the same (from, event) pair.
func WithDuplicates(policy DuplicatePolicy) TableOption {
	return func(t *Table) { t.duplicates = policy }
}

type ruleKey struct {
	from  State
	event Event
}

// Table maps (state, event) pairs to transition rules.
//
// A table is mutable until Seal is called; New seals the table it is given.
// A sealed table is read-only and may be shared by any number of machines.
type Table struct {
	rules      g.Map[ruleKey, Transition]
	order      g.Slice[ruleKey]
	onEnter    g.Map[State, g.Slice[Callback]]
	onExit     g.Map[State, g.Slice[Callback]]
	states     g.Set[State]
	events     g.Set[Event]
	duplicates DuplicatePolicy
	sealed     atomic.Bool
}

// NewTable creates an empty, unsealed table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		rules:   g.NewMap[ruleKey, Transition](),
		onEnter: g.NewMap[State, g.Slice[Callback]](),
		onExit:  g.NewMap[State, g.Slice[Callback]](),
		states:  g.NewSet[State](),
		events:  g.NewSet[Event](),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Add registers the rule from -> event -> to.
func (t *Table) Add(from State, event Event, to State, opts ...TransitionOption) error {
	if t.sealed.Load() {
		return ErrTableSealed
	}

	if from != AnyState {
		if err := t.checkState(from); err != nil {
			return err
		}
	}

	if err := t.checkState(to); err != nil {
		return err
	}

	if err := t.checkEvent(event); err != nil {
		return err
	}

	rule := Transition{From: from, Event: event, To: to}
	for _, opt := range opts {
		opt(&rule)
	}

	key := ruleKey{from: from, event: event}
	if _, exists := t.rules[key]; exists {
		if t.duplicates == RejectDuplicates {
			return &ErrDuplicateTransition{From: from, Event: event}
		}
	} else {
		t.order.Push(key)
	}

	t.rules[key] = rule

	return nil
}

// AddAny registers a rule that fires on event from every state without an
// exact rule for that event.
func (t *Table) AddAny(event Event, to State, opts ...TransitionOption) error {
	return t.Add(AnyState, event, to, opts...)
}

// OnEnter registers a callback for when entering a given state.
func (t *Table) OnEnter(state State, cb Callback) error {
	if t.sealed.Load() {
		return ErrTableSealed
	}

	if err := t.checkState(state); err != nil {
		return err
	}

	t.onEnter[state] = append(t.onEnter[state], cb)

	return nil
}

// OnExit registers a callback for when exiting a given state.
func (t *Table) OnExit(state State, cb Callback) error {
	if t.sealed.Load() {
		return ErrTableSealed
	}

	if err := t.checkState(state); err != nil {
		return err
	}

	t.onExit[state] = append(t.onExit[state], cb)

	return nil
}

// Lookup returns the rule for (from, event). An exact rule wins over a
// wildcard one. The boolean is false when the pair is not registered.
func (t *Table) Lookup(from State, event Event) (Transition, bool) {
	if rule, ok := t.rules[ruleKey{from: from, event: event}]; ok {
		return rule, true
	}

	rule, ok := t.rules[ruleKey{from: AnyState, event: event}]

	return rule, ok
}

// Seal makes the table read-only. It is safe to call more than once.
func (t *Table) Seal() { t.sealed.Store(true) }

// Sealed reports whether the table is read-only.
func (t *Table) Sealed() bool { return t.sealed.Load() }

// Len returns the number of registered rules.
func (t *Table) Len() int { return len(t.rules) }

// Transitions returns the registered rules in registration order.
func (t *Table) Transitions() g.Slice[Transition] {
	out := make(g.Slice[Transition], 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.rules[key])
	}

	return out
}

// HasState reports whether state is declared or referenced by a rule.
func (t *Table) HasState(state State) bool {
	if state == AnyState {
		return false
	}

	if t.declaresStates() {
		return t.states.Contains(state)
	}

	for _, key := range t.order {
		if key.from == state || t.rules[key].To == state {
			return true
		}
	}

	return false
}

// States returns the sorted set of states declared or referenced by rules.
func (t *Table) States() g.Slice[State] {
	set := g.NewSet[State]()

	for _, s := range t.states.ToSlice() {
		set.Insert(s)
	}

	for _, key := range t.order {
		if key.from != AnyState {
			set.Insert(key.from)
		}

		set.Insert(t.rules[key].To)
	}

	states := set.ToSlice()
	states.SortBy(cmp.Cmp)

	return states
}

// Events returns the sorted set of events declared or referenced by rules.
func (t *Table) Events() g.Slice[Event] {
	set := g.NewSet[Event]()

	for _, e := range t.events.ToSlice() {
		set.Insert(e)
	}

	for _, key := range t.order {
		set.Insert(key.event)
	}

	events := set.ToSlice()
	events.SortBy(cmp.Cmp)

	return events
}

// EventsFrom returns the sorted events that have a rule from state,
// including wildcard rules.
func (t *Table) EventsFrom(state State) g.Slice[Event] {
	set := g.NewSet[Event]()

	for _, key := range t.order {
		if key.from == state || key.from == AnyState {
			set.Insert(key.event)
		}
	}

	events := set.ToSlice()
	events.SortBy(cmp.Cmp)

	return events
}

func (t *Table) declaresStates() bool { return t.states.Len() > 0 }

func (t *Table) checkState(state State) error {
	if state == "" || state == AnyState {
		return &ErrUndeclared{Kind: "state", Name: string(state)}
	}

	if t.declaresStates() && !t.states.Contains(state) {
		return &ErrUndeclared{Kind: "state", Name: string(state)}
	}

	return nil
}

func (t *Table) checkEvent(event Event) error {
	if event == "" {
		return &ErrUndeclared{Kind: "event", Name: string(event)}
	}

	if t.events.Len() > 0 && !t.events.Contains(event) {
		return &ErrUndeclared{Kind: "event", Name: string(event)}
	}

	return nil
}
