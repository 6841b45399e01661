// Command fsmctl loads a state machine definition, replays the events given
// as arguments and prints the result.
//
// Settings come from the environment (or a .env file):
//
//	FSM_DEFINITION  path to a .yaml, .yml or .json definition (required)
//	FSM_STRICT      reject events without a rule instead of ignoring them
//	FSM_LOG_LEVEL   debug, info, warn or error
//	FSM_LOG_FORMAT  text or json
//	FSM_OUTPUT      state, dot, json or yaml
//
// Example:
//
//	FSM_DEFINITION=turnstile.yaml fsmctl COIN PASS FAILED
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	fsm "github.com/enetx/tablefsm"
	"github.com/enetx/tablefsm/definition"
	"github.com/enetx/tablefsm/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, os.Args[1:], os.Stdout, cfg.Logger(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, events []string, out io.Writer, logger *slog.Logger) error {
	def, err := definition.Load(cfg.Definition)
	if err != nil {
		return err
	}

	opts := []fsm.Option{fsm.WithLogger(logger)}
	if cfg.Strict {
		opts = append(opts, fsm.WithStrict())
	}

	m, err := def.Build(definition.Registry{}, opts...)
	if err != nil {
		return fmt.Errorf("build %s: %w", cfg.Definition, err)
	}

	m.OnTransition(func(from, to fsm.State, event fsm.Event, _ *fsm.Context) error {
		logger.Info("transition", "from", from, "to", to, "event", event)
		return nil
	})

	for i, e := range events {
		if _, err := m.Fire(fsm.Event(e)); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, e, err)
		}
	}

	switch cfg.Output {
	case config.OutputDOT:
		_, err = io.WriteString(out, string(m.ToDOT()))
	case config.OutputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(m)
	case config.OutputYAML:
		var data []byte
		if data, err = definition.Describe(m).Marshal(definition.FormatYAML); err == nil {
			_, err = out.Write(data)
		}
	default:
		_, err = fmt.Fprintln(out, m.Current())
	}

	return err
}
