// Package dispatch routes events to a set of state machines identified by UUID.
//
// A Dispatcher is an ordinary value: whichever component wires the
// application creates one and passes it to the parts that need it. Listeners
// registered with Subscribe are told about every state change made through
// the dispatcher.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/enetx/g"
	"github.com/google/uuid"

	fsm "github.com/enetx/tablefsm"
)

var (
	// ErrUnknownMachine is returned when an ID is not registered.
	ErrUnknownMachine = errors.New("dispatch: unknown machine")
	// ErrDuplicateID is returned by RegisterAs when the ID is already taken.
	ErrDuplicateID = errors.New("dispatch: machine id already registered")
	// ErrNilMachine is returned when registering a nil machine.
	ErrNilMachine = errors.New("dispatch: machine is nil")
)

// Change describes a state change made through Dispatch or Broadcast.
type Change struct {
	ID    uuid.UUID
	From  fsm.State
	To    fsm.State
	Event fsm.Event
}

// Listener receives state changes. It runs on the goroutine that dispatched
// the event, after the machine's lock has been released.
type Listener func(Change)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

type subscription struct {
	id     uint64
	listen Listener
}

type entry struct {
	mu      sync.Mutex
	machine fsm.StateMachine
}

// Dispatcher owns a registry of machines and delivers events to them.
// It is safe for concurrent use.
type Dispatcher struct {
	machines *g.MapSafe[uuid.UUID, *entry]

	mu        sync.RWMutex // guards registration and listeners
	listeners g.Slice[subscription]
	nextID    uint64

	logger *slog.Logger
}

// New creates an empty dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		machines: g.NewMapSafe[uuid.UUID, *entry](),
		logger:   fsm.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register adds m under a freshly generated ID.
func (d *Dispatcher) Register(m fsm.StateMachine) (uuid.UUID, error) {
	id := uuid.New()
	if err := d.RegisterAs(id, m); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// RegisterAs adds m under id.
func (d *Dispatcher) RegisterAs(id uuid.UUID, m fsm.StateMachine) error {
	if m == nil {
		return ErrNilMachine
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.machines.Contains(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	d.machines.Set(id, &entry{machine: m})
	d.logger.Debug("dispatch: machine registered", "id", id, "state", m.Current())

	return nil
}

// Unregister removes the machine with id. It reports whether it was present.
func (d *Dispatcher) Unregister(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ok := d.machines.Contains(id)
	d.machines.Delete(id)

	return ok
}

// Machine returns the machine registered under id.
func (d *Dispatcher) Machine(id uuid.UUID) (fsm.StateMachine, bool) {
	e := d.machines.Get(id)
	if e.IsNone() {
		return nil, false
	}

	return e.Some().machine, true
}

// IDs returns the registered IDs in lexical order.
func (d *Dispatcher) IDs() []uuid.UUID {
	var ids []uuid.UUID
	for id := range d.machines.Iter() {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})

	return ids
}

// Dispatch fires event on the machine registered under id and returns the
// resulting state. Errors from the machine are returned unchanged.
func (d *Dispatcher) Dispatch(id uuid.UUID, event fsm.Event, input ...any) (fsm.State, error) {
	e := d.machines.Get(id)
	if e.IsNone() {
		return "", fmt.Errorf("%w: %s", ErrUnknownMachine, id)
	}

	change, err := d.deliver(id, e.Some(), event, input)
	if err != nil {
		return change.From, err
	}

	if change.From != change.To {
		d.notify(change)
	}

	return change.To, nil
}

// Broadcast fires event on every registered machine. The returned map holds
// the machines that failed; it is empty when every delivery succeeded.
func (d *Dispatcher) Broadcast(event fsm.Event, input ...any) map[uuid.UUID]error {
	failed := make(map[uuid.UUID]error)

	for _, id := range d.IDs() {
		if _, err := d.Dispatch(id, event, input...); err != nil {
			failed[id] = err
		}
	}

	return failed
}

// Subscribe registers l and returns a function that removes it.
func (d *Dispatcher) Subscribe(l Listener) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.listeners.Push(subscription{id: id, listen: l})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		kept := make(g.Slice[subscription], 0, len(d.listeners))
		for _, s := range d.listeners {
			if s.id != id {
				kept = append(kept, s)
			}
		}

		d.listeners = kept
	}
}

func (d *Dispatcher) deliver(id uuid.UUID, e *entry, event fsm.Event, input []any) (Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.machine.Current()

	to, err := e.machine.Fire(event, input...)
	if err != nil {
		d.logger.Debug("dispatch: event failed", "id", id, "state", from, "event", event, "error", err)
		return Change{ID: id, From: from, To: from, Event: event}, err
	}

	return Change{ID: id, From: from, To: to, Event: event}, nil
}

func (d *Dispatcher) notify(c Change) {
	d.mu.RLock()
	listeners := d.listeners.Clone()
	d.mu.RUnlock()

	for _, s := range listeners {
		s.listen(c)
	}
}
