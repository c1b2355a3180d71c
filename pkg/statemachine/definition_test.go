package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/statemachine"
)

const (
	idle    statemachine.StringState = "idle"
	running statemachine.StringState = "running"
	done    statemachine.StringState = "done"

	start  statemachine.StringEvent = "start"
	finish statemachine.StringEvent = "finish"
)

func allow(v bool) statemachine.Guard {
	return func(context.Context, statemachine.State, statemachine.Event, any) bool { return v }
}

func TestFire(t *testing.T) {
	t.Parallel()
	var recorded []string
	record := func(_ context.Context, from, to statemachine.State, ev statemachine.Event, _ any) error {
		recorded = append(recorded, from.Name()+"->"+to.Name()+":"+ev.Name())
		return nil
	}

	def, err := statemachine.New(
		statemachine.WithTransition(idle, running, start, statemachine.WithAction(record)),
		statemachine.WithTransition(running, done, finish, statemachine.WithGuard(allow(true))),
	)
	require.NoError(t, err)

	next, err := def.Fire(context.Background(), idle, start, nil)
	require.NoError(t, err)
	assert.Equal(t, running, next)
	assert.Equal(t, []string{"idle->running:start"}, recorded)

	next, err = def.Fire(context.Background(), next, finish, nil)
	require.NoError(t, err)
	assert.Equal(t, done, next)
}

func TestFire_NoTransition(t *testing.T) {
	t.Parallel()
	def := statemachine.MustNew(statemachine.WithTransition(idle, running, start))

	next, err := def.Fire(context.Background(), done, start, nil)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.Equal(t, done, next)

	_, err = def.Fire(context.Background(), idle, finish, nil)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
}

func TestFire_GuardRejects(t *testing.T) {
	t.Parallel()
	actionRan := false
	def := statemachine.MustNew(statemachine.WithTransition(idle, running, start,
		statemachine.WithGuard(allow(true)),
		statemachine.WithGuard(allow(false)),
		statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
			actionRan = true
			return nil
		}),
	))

	next, err := def.Fire(context.Background(), idle, start, nil)
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.Equal(t, idle, next)
	assert.False(t, actionRan)
	assert.False(t, def.CanFire(context.Background(), idle, start, nil))
}

func TestFire_FirstAllowedCandidateWins(t *testing.T) {
	t.Parallel()
	def := statemachine.MustNew(
		statemachine.WithTransition(idle, done, start, statemachine.WithGuard(allow(false))),
		statemachine.WithTransition(idle, running, start),
	)

	next, err := def.Fire(context.Background(), idle, start, nil)
	require.NoError(t, err)
	assert.Equal(t, running, next)
}

func TestFire_ActionErrorAborts(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	def := statemachine.MustNew(statemachine.WithTransition(idle, running, start,
		statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
			return boom
		}),
	))

	next, err := def.Fire(context.Background(), idle, start, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, idle, next)
}

func TestFire_DataReachesGuardsAndActions(t *testing.T) {
	t.Parallel()
	type payload struct{ ok, seen bool }
	def := statemachine.MustNew(statemachine.WithTransition(idle, running, start,
		statemachine.WithGuard(func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
			return data.(*payload).ok
		}),
		statemachine.WithAction(func(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
			data.(*payload).seen = true
			return nil
		}),
	))

	p := &payload{ok: true}
	_, err := def.Fire(context.Background(), idle, start, p)
	require.NoError(t, err)
	assert.True(t, p.seen)
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()
	_, err := statemachine.New(statemachine.WithTransition(nil, running, start))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() { statemachine.MustNew(statemachine.WithTransition(idle, nil, start)) })

	def := statemachine.MustNew()
	_, err = def.Fire(context.Background(), nil, start, nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
	assert.False(t, def.CanFire(context.Background(), idle, nil, nil))
}

func TestConcurrentFire(t *testing.T) {
	t.Parallel()
	def := statemachine.MustNew(statemachine.WithTransition(idle, running, start))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := def.Fire(context.Background(), idle, start, nil)
			assert.NoError(t, err)
			assert.Equal(t, running, next)
		}()
	}
	wg.Wait()
}
