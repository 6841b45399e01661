// Package definition decodes declarative state machine descriptions from
// YAML or JSON and turns them into fsm builders.
//
// A definition names states and events as plain strings. Rules may refer to
// a guard or handler by name; the names are resolved against a Registry when
// the definition is built.
//
//	name: turnstile
//	initial: LOCKED
//	states: [LOCKED, UNLOCKED, BROKEN]
//	events: [COIN, PASS, FAILED, FIXED]
//	transitions:
//	  - {from: LOCKED, event: COIN, to: UNLOCKED}
//	  - {from: UNLOCKED, event: PASS, to: LOCKED}
//	  - {from: "*", event: FAILED, to: BROKEN}
//	  - {from: BROKEN, event: FIXED, to: LOCKED}
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	fsm "github.com/enetx/tablefsm"
)

// Format is the encoding of a definition document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	// ErrUnsupportedFormat is returned for unknown formats and file extensions.
	ErrUnsupportedFormat = errors.New("definition: unsupported format")
	// ErrUnknownHandler is returned when a rule names a handler missing from the Registry.
	ErrUnknownHandler = errors.New("definition: unknown handler")
	// ErrUnknownGuard is returned when a rule names a guard missing from the Registry.
	ErrUnknownGuard = errors.New("definition: unknown guard")
)

// Rule is one transition of a definition. From may be "*" for a wildcard rule.
type Rule struct {
	From    string `yaml:"from" json:"from"`
	Event   string `yaml:"event" json:"event"`
	To      string `yaml:"to" json:"to"`
	Guard   string `yaml:"guard,omitempty" json:"guard,omitempty"`
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`
}

// Definition is the decoded document.
type Definition struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Initial     string   `yaml:"initial" json:"initial"`
	States      []string `yaml:"states,omitempty" json:"states,omitempty"`
	Events      []string `yaml:"events,omitempty" json:"events,omitempty"`
	Transitions []Rule   `yaml:"transitions" json:"transitions"`
	Strict      bool     `yaml:"strict,omitempty" json:"strict,omitempty"`
	Overwrite   bool     `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
}

// Registry resolves guard and handler names used by rules.
type Registry struct {
	Guards   map[string]fsm.GuardFunc
	Handlers map[string]fsm.Handler
}

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Parse decodes data. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("definition: decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("definition: decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &def, nil
}

// Load reads and parses the file at path, picking the format from its extension.
func Load(path string) (*Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}

	return Parse(data, format)
}

// Marshal encodes the definition.
func (d *Definition) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Builder translates the definition into an fsm.Builder. Guard and handler
// names are resolved against reg; all unresolved names are reported together.
func (d *Definition) Builder(reg Registry) (*fsm.Builder, error) {
	b := fsm.NewBuilder()

	if d.Initial != "" {
		b.Initial(fsm.State(d.Initial))
	}

	for _, s := range d.States {
		b.States(fsm.State(s))
	}

	for _, e := range d.Events {
		b.Events(fsm.Event(e))
	}

	if d.Strict {
		b.Strict()
	}

	if d.Overwrite {
		b.AllowOverwrite()
	}

	var errs []error

	for i, r := range d.Transitions {
		var opts []fsm.TransitionOption

		if r.Guard != "" {
			guard, ok := reg.Guards[r.Guard]
			if !ok {
				errs = append(errs, fmt.Errorf("transitions[%d]: %w %q", i, ErrUnknownGuard, r.Guard))
			}
			opts = append(opts, fsm.WithGuard(guard))
		}

		if r.Handler != "" {
			handler, ok := reg.Handlers[r.Handler]
			if !ok {
				errs = append(errs, fmt.Errorf("transitions[%d]: %w %q", i, ErrUnknownHandler, r.Handler))
			}
			opts = append(opts, fsm.WithHandler(handler))
		}

		if fsm.State(r.From) == fsm.AnyState {
			b.TransitionAny(fsm.Event(r.Event), fsm.State(r.To), opts...)
			continue
		}

		b.Transition(fsm.State(r.From), fsm.Event(r.Event), fsm.State(r.To), opts...)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return b, nil
}

// Build translates the definition and builds the machine.
func (d *Definition) Build(reg Registry, opts ...fsm.Option) (*fsm.FSM, error) {
	b, err := d.Builder(reg)
	if err != nil {
		return nil, err
	}

	return b.With(opts...).Build()
}

// Describe produces a definition for the table, initial state and policy of m.
// Guard and handler functions cannot be described and are omitted.
func Describe(m *fsm.FSM) *Definition {
	initial, table := m.Initial(), m.Table()

	def := &Definition{
		Initial: string(initial),
		Strict:  m.Policy() == fsm.Reject,
	}

	states := table.States()
	if !states.Contains(initial) {
		states.Push(initial)
	}

	for _, s := range states {
		def.States = append(def.States, string(s))
	}

	for _, e := range table.Events() {
		def.Events = append(def.Events, string(e))
	}

	for _, t := range table.Transitions() {
		def.Transitions = append(def.Transitions, Rule{
			From:  string(t.From),
			Event: string(t.Event),
			To:    string(t.To),
		})
	}

	return def
}
