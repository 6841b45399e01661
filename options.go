package fsm

import "log/slog"

// Option configures a machine during construction.
type Option func(*FSM)

// WithUnhandled sets the policy for events that have no rule in the current state.
func WithUnhandled(policy UnhandledPolicy) Option {
	return func(f *FSM) { f.unhandled = policy }
}

// WithStrict is shorthand for WithUnhandled(Reject).
func WithStrict() Option { return WithUnhandled(Reject) }

// WithLogger sets the logger for the machine. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FSM) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTransitionHook registers a global transition hook at construction.
func WithTransitionHook(hook TransitionHook) Option {
	return func(f *FSM) {
		if hook != nil {
			f.onTransition.Push(hook)
		}
	}
}
