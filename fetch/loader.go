// Package fetch wraps an asynchronous producer with loading, error and
// reset state for the screens that display its result.
package fetch

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by a Refetch whose result was discarded because
// a newer Refetch or a Reset happened while it was in flight.
var ErrSuperseded = errors.New("request superseded")

// Producer loads a value
type Producer[T any] func(ctx context.Context) (T, error)

// State is a snapshot of a Loader. After a completed Refetch exactly one of
// HasData or Err is set.
type State[T any] struct {
	Data    T
	HasData bool
	Loading bool
	Err     error
}

type options struct {
	autoRunCtx context.Context
}

// Option configures a Loader
type Option func(*options)

// WithAutoRun starts a Refetch with ctx as soon as the loader is created
func WithAutoRun(ctx context.Context) Option {
	return func(o *options) {
		o.autoRunCtx = ctx
	}
}

// Loader runs a Producer and keeps the outcome of the latest run. Each run
// gets its own context; starting a new run or resetting cancels the
// previous one, and a superseded result never overwrites newer state.
type Loader[T any] struct {
	producer Producer[T]

	mu       sync.Mutex
	state    State[T]
	gen      uint64
	cancel   context.CancelFunc
	onChange func(State[T])
	// idle is closed when the loader stops loading; nil while idle
	idle chan struct{}
}

// New creates a Loader for producer
func New[T any](producer Producer[T], opts ...Option) *Loader[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loader[T]{producer: producer}
	if o.autoRunCtx != nil {
		// mark loading before returning so callers never observe an idle auto-run loader
		l.state.Loading = true
		l.idle = make(chan struct{})
		go l.Refetch(o.autoRunCtx) //nolint:errcheck
	}
	return l
}

// OnChange registers fn to be called with every new state. fn runs outside
// the loader's lock and may call State.
func (l *Loader[T]) OnChange(fn func(State[T])) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// State returns the current snapshot
func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Refetch runs the producer and stores its result or error
func (l *Loader[T]) Refetch(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.state.Loading = true
	if l.idle == nil {
		l.idle = make(chan struct{})
	}
	started := l.state
	notify := l.onChange
	l.mu.Unlock()

	if notify != nil {
		notify(started)
	}

	data, err := l.producer(runCtx)

	l.mu.Lock()
	cancel()
	if gen != l.gen {
		l.mu.Unlock()
		var zero T
		return zero, ErrSuperseded
	}
	l.cancel = nil
	if err != nil {
		l.state = State[T]{Err: err}
	} else {
		l.state = State[T]{Data: data, HasData: true}
	}
	l.markIdleLocked()
	finished := l.state
	notify = l.onChange
	l.mu.Unlock()

	if notify != nil {
		notify(finished)
	}
	return data, err
}

// Reset cancels any in-flight run and clears data, loading and error
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.state = State[T]{}
	l.markIdleLocked()
	notify := l.onChange
	l.mu.Unlock()

	if notify != nil {
		notify(State[T]{})
	}
}

// Wait blocks until the loader is not loading and returns its state. It
// returns at once when nothing is in flight.
func (l *Loader[T]) Wait(ctx context.Context) (State[T], error) {
	l.mu.Lock()
	idle := l.idle
	state := l.state
	l.mu.Unlock()

	if idle == nil {
		return state, nil
	}
	select {
	case <-idle:
		return l.State(), nil
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
}

// markIdleLocked must be called with mu held
func (l *Loader[T]) markIdleLocked() {
	if l.idle != nil {
		close(l.idle)
		l.idle = nil
	}
}
