package fsm

import "github.com/enetx/g"

// Context holds FSM state, input, persistent and temporary data.
// Data is for long-lived values (e.g. user ID, settings) and is serialized.
// Meta is for ephemeral metadata (e.g. timestamps, counters) and is also serialized.
// Input holds data specific to the current Fire call and is NOT serialized.
// State holds the state for which a callback is being executed.
// From, To and Event describe the transition in progress; they are zero
// outside of Fire.
type Context struct {
	State State
	From  State
	To    State
	Event Event
	Input any
	Data  *g.MapSafe[g.String, any]
	Meta  *g.MapSafe[g.String, any]
}

func newContext(initial State) *Context {
	return &Context{
		State: initial,
		Data:  g.NewMapSafe[g.String, any](),
		Meta:  g.NewMapSafe[g.String, any](),
	}
}

// begin records the transition in progress.
func (c *Context) begin(from, to State, event Event, input []any) {
	c.From, c.To, c.Event = from, to, event
	c.Input = nil

	if len(input) > 0 {
		c.Input = input[0]
	}
}

// end clears the per-transition fields.
func (c *Context) end() {
	c.From, c.To, c.Event = "", "", ""
	c.Input = nil
}
