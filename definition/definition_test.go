package definition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsm "github.com/enetx/tablefsm"
	"github.com/enetx/tablefsm/definition"
)

func TestLoad_YAML(t *testing.T) {
	def, err := definition.Load("testdata/turnstile.yaml")
	require.NoError(t, err)

	assert.Equal(t, "turnstile", def.Name)
	assert.Equal(t, "LOCKED", def.Initial)
	assert.Len(t, def.States, 3)
	assert.Len(t, def.Transitions, 4)
	assert.Equal(t, "*", def.Transitions[2].From)
	assert.Equal(t, "unlock", def.Transitions[0].Handler)
}

func TestLoad_JSON(t *testing.T) {
	def, err := definition.Load("testdata/request.json")
	require.NoError(t, err)

	assert.True(t, def.Strict)
	assert.Equal(t, "PENDING", def.Initial)
}

func TestLoad_Errors(t *testing.T) {
	_, err := definition.Load("testdata/turnstile.toml")
	assert.ErrorIs(t, err, definition.ErrUnsupportedFormat)

	_, err = definition.Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := definition.Parse([]byte("initial: A\nbogus: 1\n"), definition.FormatYAML)
	assert.Error(t, err)

	_, err = definition.Parse([]byte(`{"initial": "A", "bogus": 1}`), definition.FormatJSON)
	assert.Error(t, err)

	_, err = definition.Parse([]byte(`{}`), "toml")
	assert.ErrorIs(t, err, definition.ErrUnsupportedFormat)
}

func TestBuild_Turnstile(t *testing.T) {
	def, err := definition.Load("testdata/turnstile.yaml")
	require.NoError(t, err)

	var unlocked int
	m, err := def.Build(definition.Registry{
		Handlers: map[string]fsm.Handler{
			"unlock": func(fsm.State, fsm.State, *fsm.Context) error {
				unlocked++
				return nil
			},
		},
	})
	require.NoError(t, err)

	for _, step := range []struct {
		event fsm.Event
		want  fsm.State
	}{
		{"COIN", "UNLOCKED"},
		{"COIN", "UNLOCKED"},
		{"PASS", "LOCKED"},
		{"FAILED", "BROKEN"},
		{"COIN", "BROKEN"},
		{"FIXED", "LOCKED"},
	} {
		got, err := m.Fire(step.event)
		require.NoError(t, err)
		assert.Equal(t, step.want, got)
	}

	assert.Equal(t, 1, unlocked)
}

func TestBuild_StrictRequest(t *testing.T) {
	def, err := definition.Load("testdata/request.json")
	require.NoError(t, err)

	m, err := def.Build(definition.Registry{})
	require.NoError(t, err)
	assert.Equal(t, fsm.Reject, m.Policy())

	_, err = m.Fire("COMPLETE")
	assert.True(t, fsm.IsInvalidTransition(err))
}

func TestBuild_UnknownNames(t *testing.T) {
	def := &definition.Definition{
		Initial: "A",
		Transitions: []definition.Rule{
			{From: "A", Event: "go", To: "B", Guard: "nope"},
			{From: "B", Event: "go", To: "A", Handler: "missing"},
		},
	}

	_, err := def.Build(definition.Registry{})
	assert.ErrorIs(t, err, definition.ErrUnknownGuard)
	assert.ErrorIs(t, err, definition.ErrUnknownHandler)
}

func TestBuild_InvalidDefinition(t *testing.T) {
	def := &definition.Definition{
		States:      []string{"A"},
		Transitions: []definition.Rule{{From: "A", Event: "go", To: "B"}},
	}

	_, err := def.Build(definition.Registry{})
	assert.ErrorIs(t, err, fsm.ErrNoInitialState)

	var undeclared *fsm.ErrUndeclared
	assert.ErrorAs(t, err, &undeclared)
}

func TestDescribe(t *testing.T) {
	def, err := definition.Load("testdata/trafficlight.yml")
	require.NoError(t, err)

	m, err := def.Build(definition.Registry{})
	require.NoError(t, err)

	described := definition.Describe(m)
	assert.Equal(t, "RED", described.Initial)
	assert.False(t, described.Strict)
	assert.ElementsMatch(t, []string{"GREEN", "RED", "YELLOW"}, described.States)
	assert.Equal(t, def.Transitions, described.Transitions)

	data, err := described.Marshal(definition.FormatYAML)
	require.NoError(t, err)

	again, err := definition.Parse(data, definition.FormatYAML)
	require.NoError(t, err)

	rebuilt, err := again.Build(definition.Registry{})
	require.NoError(t, err)

	for range 3 {
		_, err = rebuilt.Fire("SWITCH")
		require.NoError(t, err)
	}
	assert.Equal(t, fsm.State("RED"), rebuilt.Current())
}

func TestDescribe_KeepsStrictPolicy(t *testing.T) {
	def, err := definition.Load("testdata/request.json")
	require.NoError(t, err)

	m, err := def.Build(definition.Registry{})
	require.NoError(t, err)

	data, err := definition.Describe(m).Marshal(definition.FormatYAML)
	require.NoError(t, err)

	again, err := definition.Parse(data, definition.FormatYAML)
	require.NoError(t, err)
	assert.True(t, again.Strict)

	rebuilt, err := again.Build(definition.Registry{})
	require.NoError(t, err)
	assert.Equal(t, fsm.Reject, rebuilt.Policy())

	state, err := rebuilt.Fire("bogus")
	assert.True(t, fsm.IsInvalidTransition(err))
	assert.Equal(t, fsm.State("PENDING"), state)
}
