package fsm

import (
	"encoding/json"
	"fmt"

	"github.com/enetx/g"
)

// Snapshot is a serializable representation of the FSM's state.
// It uses standard map types for robust JSON handling.
type Snapshot struct {
	Current State                `json:"current"`
	History g.Slice[State]       `json:"history"`
	Data    g.Map[g.String, any] `json:"data"`
	Meta    g.Map[g.String, any] `json:"meta"`
}

// Snapshot captures the current state, history and context data.
func (f *FSM) Snapshot() Snapshot {
	return Snapshot{
		Current: f.current,
		History: f.history.Clone(),
		Data:    f.ctx.Data.Iter().Collect(),
		Meta:    f.ctx.Meta.Iter().Collect(),
	}
}

// Restore replaces the machine's state with s. Every state in s must be
// known to the machine's table; otherwise *ErrUnknownState is returned and
// the machine is left untouched.
func (f *FSM) Restore(s Snapshot) error {
	if !f.knows(s.Current) {
		return &ErrUnknownState{State: s.Current}
	}

	for _, state := range s.History {
		if !f.knows(state) {
			return &ErrUnknownState{State: state}
		}
	}

	history := s.History.Clone()
	if len(history) == 0 {
		history = g.Slice[State]{s.Current}
	}

	ctx := newContext(s.Current)

	for k, v := range s.Data {
		ctx.Data.Set(k, v)
	}

	for k, v := range s.Meta {
		ctx.Meta.Set(k, v)
	}

	f.current = s.Current
	f.history = history
	f.ctx = ctx

	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f *FSM) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Snapshot())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FSM) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal fsm state: %w", err)
	}

	return f.Restore(s)
}
