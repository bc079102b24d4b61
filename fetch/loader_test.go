package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefetch_TerminalStates(t *testing.T) {
	ctx := context.Background()
	fail := false
	loader := New(func(ctx context.Context) ([]string, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []string{"dune"}, nil
	})

	assert.Equal(t, State[[]string]{}, loader.State())

	data, err := loader.Refetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dune"}, data)

	st := loader.State()
	assert.True(t, st.HasData)
	assert.Nil(t, st.Err)
	assert.False(t, st.Loading)

	fail = true
	_, err = loader.Refetch(ctx)
	require.Error(t, err)

	st = loader.State()
	assert.False(t, st.HasData, "an error clears previous data")
	assert.Nil(t, st.Data)
	assert.EqualError(t, st.Err, "boom")
	assert.False(t, st.Loading)
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(l *Loader[int], release chan struct{})
	}{
		{
			name:  "idle",
			setup: func(l *Loader[int], release chan struct{}) { close(release) },
		},
		{
			name: "after data",
			setup: func(l *Loader[int], release chan struct{}) {
				close(release)
				l.Refetch(ctx)
			},
		},
		{
			name: "while loading",
			setup: func(l *Loader[int], release chan struct{}) {
				go l.Refetch(ctx)
				require.Eventually(t, func() bool { return l.State().Loading }, time.Second, time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			loader := New(func(ctx context.Context) (int, error) {
				select {
				case <-release:
					return 42, nil
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			})

			tt.setup(loader, release)
			loader.Reset()

			assert.Equal(t, State[int]{}, loader.State())
		})
	}

	t.Run("after error", func(t *testing.T) {
		loader := New(func(ctx context.Context) (int, error) { return 0, errors.New("boom") })
		loader.Refetch(ctx)
		loader.Reset()
		assert.Equal(t, State[int]{}, loader.State())
	})
}

func TestRefetch_SupersededResultIsDiscarded(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})

	loader := New(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(slowStarted)
			<-slowRelease // ignores cancellation, like a transport that finishes anyway
			return "stale", nil
		}
		return "fresh", nil
	})

	staleErr := make(chan error, 1)
	go func() {
		_, err := loader.Refetch(ctx)
		staleErr <- err
	}()
	<-slowStarted

	data, err := loader.Refetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", data)

	close(slowRelease)
	assert.ErrorIs(t, <-staleErr, ErrSuperseded)
	assert.Equal(t, "fresh", loader.State().Data)
}

func TestRefetch_CancelledByReset(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	loader := New(func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := loader.Refetch(ctx)
		errCh <- err
	}()
	<-started

	loader.Reset()
	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Equal(t, State[string]{}, loader.State())
}

func TestAutoRun(t *testing.T) {
	loader := New(func(ctx context.Context) (int, error) { return 7, nil }, WithAutoRun(context.Background()))

	require.Eventually(t, func() bool { return loader.State().HasData }, time.Second, time.Millisecond)
	assert.Equal(t, 7, loader.State().Data)
}

func TestOnChange(t *testing.T) {
	loader := New(func(ctx context.Context) (int, error) { return 1, nil })

	var states []State[int]
	loader.OnChange(func(s State[int]) {
		states = append(states, s)
		_ = loader.State()
	})

	loader.Refetch(context.Background())
	loader.Reset()

	require.Len(t, states, 3)
	assert.True(t, states[0].Loading)
	assert.True(t, states[1].HasData)
	assert.Equal(t, State[int]{}, states[2])
}

func TestWait(t *testing.T) {
	t.Run("idle returns at once", func(t *testing.T) {
		loader := New(func(ctx context.Context) (int, error) { return 1, nil })
		state, err := loader.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, State[int]{}, state)
	})

	t.Run("auto run", func(t *testing.T) {
		release := make(chan struct{})
		loader := New(func(ctx context.Context) (int, error) {
			<-release
			return 42, nil
		}, WithAutoRun(context.Background()))

		close(release)
		state, err := loader.Wait(context.Background())
		require.NoError(t, err)
		assert.False(t, state.Loading)
		assert.True(t, state.HasData)
		assert.Equal(t, 42, state.Data)
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		loader := New(func(ctx context.Context) (int, error) { return 0, boom }, WithAutoRun(context.Background()))

		state, err := loader.Wait(context.Background())
		require.NoError(t, err)
		assert.ErrorIs(t, state.Err, boom)
	})

	t.Run("reset releases waiters", func(t *testing.T) {
		loader := New(func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}, WithAutoRun(context.Background()))

		done := make(chan State[int])
		go func() {
			state, _ := loader.Wait(context.Background())
			done <- state
		}()

		loader.Reset()
		select {
		case state := <-done:
			assert.Equal(t, State[int]{}, state)
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after Reset")
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		loader := New(func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		}, WithAutoRun(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		state, err := loader.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, state.Loading)
	})
}
