package dispatch_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsm "github.com/enetx/tablefsm"
	"github.com/enetx/tablefsm/dispatch"
)

func newTurnstile(t *testing.T) *fsm.FSM {
	t.Helper()

	m, err := fsm.NewBuilder().
		Initial("locked").
		Transition("locked", "coin", "unlocked").
		Transition("unlocked", "pass", "locked").
		Build()
	require.NoError(t, err)

	return m
}

func newStrict(t *testing.T) *fsm.FSM {
	t.Helper()

	m, err := fsm.NewBuilder().
		Initial("pending").
		Transition("pending", "start", "started").
		Strict().
		Build()
	require.NoError(t, err)

	return m
}

func TestDispatcher_RegisterAndDispatch(t *testing.T) {
	d := dispatch.New()

	id, err := d.Register(newTurnstile(t))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	state, err := d.Dispatch(id, "coin")
	require.NoError(t, err)
	assert.Equal(t, fsm.State("unlocked"), state)

	m, ok := d.Machine(id)
	require.True(t, ok)
	assert.Equal(t, fsm.State("unlocked"), m.Current())
}

func TestDispatcher_UnknownMachine(t *testing.T) {
	d := dispatch.New()

	_, err := d.Dispatch(uuid.New(), "coin")
	assert.ErrorIs(t, err, dispatch.ErrUnknownMachine)
}

func TestDispatcher_RegisterAs(t *testing.T) {
	d := dispatch.New()
	id := uuid.New()

	require.NoError(t, d.RegisterAs(id, newTurnstile(t)))
	assert.ErrorIs(t, d.RegisterAs(id, newTurnstile(t)), dispatch.ErrDuplicateID)
	assert.ErrorIs(t, d.RegisterAs(uuid.New(), nil), dispatch.ErrNilMachine)
}

func TestDispatcher_Unregister(t *testing.T) {
	d := dispatch.New()

	id, err := d.Register(newTurnstile(t))
	require.NoError(t, err)

	assert.True(t, d.Unregister(id))
	assert.False(t, d.Unregister(id))

	_, ok := d.Machine(id)
	assert.False(t, ok)
	assert.Empty(t, d.IDs())
}

func TestDispatcher_Subscribe(t *testing.T) {
	d := dispatch.New()

	id, err := d.Register(newTurnstile(t))
	require.NoError(t, err)

	var changes []dispatch.Change
	cancel := d.Subscribe(func(c dispatch.Change) { changes = append(changes, c) })

	_, err = d.Dispatch(id, "coin")
	require.NoError(t, err)

	// ignored event: no change announced
	_, err = d.Dispatch(id, "coin")
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, dispatch.Change{ID: id, From: "locked", To: "unlocked", Event: "coin"}, changes[0])

	cancel()

	_, err = d.Dispatch(id, "pass")
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestDispatcher_StrictErrorPassesThrough(t *testing.T) {
	d := dispatch.New()

	id, err := d.Register(newStrict(t))
	require.NoError(t, err)

	state, err := d.Dispatch(id, "complete")
	assert.True(t, fsm.IsInvalidTransition(err))
	assert.Equal(t, fsm.State("pending"), state)
}

func TestDispatcher_Broadcast(t *testing.T) {
	d := dispatch.New()

	a, err := d.Register(newTurnstile(t))
	require.NoError(t, err)
	b, err := d.Register(newTurnstile(t))
	require.NoError(t, err)
	s, err := d.Register(newStrict(t))
	require.NoError(t, err)

	failed := d.Broadcast("coin")

	require.Len(t, failed, 1)
	assert.True(t, fsm.IsInvalidTransition(failed[s]))

	for _, id := range []uuid.UUID{a, b} {
		m, ok := d.Machine(id)
		require.True(t, ok)
		assert.Equal(t, fsm.State("unlocked"), m.Current())
	}

	assert.Len(t, d.IDs(), 3)
}

func TestDispatcher_ConcurrentDispatch(t *testing.T) {
	d := dispatch.New()

	m, err := fsm.NewBuilder().
		Initial("a").
		Transition("a", "flip", "b").
		Transition("b", "flip", "a").
		Build()
	require.NoError(t, err)

	id, err := d.Register(m.Sync())
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		changes int
	)

	d.Subscribe(func(dispatch.Change) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Dispatch(id, "flip")
		}()
	}
	wg.Wait()

	machine, _ := d.Machine(id)
	assert.Equal(t, fsm.State("a"), machine.Current())
	assert.Equal(t, 100, changes)
	assert.Len(t, machine.History(), 101)
}

func TestDispatcher_ListenerOrderAndCancel(t *testing.T) {
	d := dispatch.New()

	id, err := d.Register(newTurnstile(t))
	require.NoError(t, err)

	var calls []string
	cancelFirst := d.Subscribe(func(dispatch.Change) { calls = append(calls, "first") })
	d.Subscribe(func(dispatch.Change) { calls = append(calls, "second") })
	d.Subscribe(func(dispatch.Change) { calls = append(calls, "third") })

	_, err = d.Dispatch(id, "coin")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	cancelFirst()
	cancelFirst()
	calls = nil

	_, err = d.Dispatch(id, "pass")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, calls)
}
