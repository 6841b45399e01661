package fsm

import "github.com/enetx/g"

// StateMachine is the API shared by FSM and SyncFSM.
type StateMachine interface {
	Fire(Event, ...any) (State, error)
	Current() State
	Is(State) bool
	Can(Event) bool
	Context() *Context
	SetState(State) error
	Reset()
	History() g.Slice[State]
	States() g.Slice[State]
	Snapshot() Snapshot
	Restore(Snapshot) error
	ToDOT() g.String
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}
