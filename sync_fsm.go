package fsm

import "github.com/enetx/g"

// Interface compliance check.
var _ StateMachine = (*SyncFSM)(nil)

// Fire is the thread-safe version of FSM.Fire.
// It atomically executes a state transition in response to an event.
func (sf *SyncFSM) Fire(event Event, input ...any) (State, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.Fire(event, input...)
}

// Current is the thread-safe version of FSM.Current.
func (sf *SyncFSM) Current() State {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.Current()
}

// Is is the thread-safe version of FSM.Is.
func (sf *SyncFSM) Is(state State) bool {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.Is(state)
}

// Can is the thread-safe version of FSM.Can.
// Guards write the transition fields of the context, so it takes the write lock.
func (sf *SyncFSM) Can(event Event) bool {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.Can(event)
}

// Context is the thread-safe version of FSM.Context.
// It returns a pointer to the FSM's context.
func (sf *SyncFSM) Context() *Context {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.Context()
}

// SetState is the thread-safe version of FSM.SetState.
// It forcefully sets the current state, bypassing all callbacks and guards.
// WARNING: This is a low-level method intended for specific use cases like
// state restoration. For all standard operations, use Fire.
func (sf *SyncFSM) SetState(s State) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.SetState(s)
}

// Reset is the thread-safe version of FSM.Reset.
// It resets the FSM to its initial state and clears its context.
func (sf *SyncFSM) Reset() {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	sf.fsm.Reset()
}

// History is the thread-safe version of FSM.History.
// It returns a copy of the state transition history.
func (sf *SyncFSM) History() g.Slice[State] {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.History()
}

// States is the thread-safe version of FSM.States.
func (sf *SyncFSM) States() g.Slice[State] {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.States()
}

// CallEnter is the thread-safe version of FSM.CallEnter.
// It manually invokes the OnEnter callbacks for a given state without a transition.
func (sf *SyncFSM) CallEnter(state State) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.CallEnter(state)
}

// Snapshot is the thread-safe version of FSM.Snapshot.
func (sf *SyncFSM) Snapshot() Snapshot {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.Snapshot()
}

// Restore is the thread-safe version of FSM.Restore.
func (sf *SyncFSM) Restore(s Snapshot) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.Restore(s)
}

// ToDOT is the thread-safe version of FSM.ToDOT.
// It generates a DOT language string representation of the FSM for visualization.
func (sf *SyncFSM) ToDOT() g.String {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.ToDOT()
}

// MarshalJSON implements the json.Marshaler interface for thread-safe
// serialization of the FSM's state to JSON.
func (sf *SyncFSM) MarshalJSON() ([]byte, error) {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	return sf.fsm.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for thread-safe
// deserialization of the FSM's state from JSON.
func (sf *SyncFSM) UnmarshalJSON(data []byte) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	return sf.fsm.UnmarshalJSON(data)
}
