// Package search drives the movie search screen: it debounces query edits,
// loads results from the catalog and records which searches led to which
// movie.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/debounce"
	"github.com/s0up4200/reelbox/fetch"
	"github.com/s0up4200/reelbox/tmdb"
)

// DefaultDebounce is the quiet period before a query is sent
const DefaultDebounce = time.Second

// Searcher finds movies matching a query
type Searcher interface {
	SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error)
}

// Counter records a search term and its top result
type Counter interface {
	UpdateSearchCount(ctx context.Context, term string, movie tmdb.Movie) error
}

// State is what the search screen renders
type State struct {
	Query   string
	Results fetch.State[[]tmdb.Movie]
}

// Option configures a Controller
type Option func(*Controller)

// WithDebounce sets the quiet period before a query is sent
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithCounter records the top result of every non-empty search
func WithCounter(counter Counter) Option {
	return func(c *Controller) {
		c.counter = counter
	}
}

// Controller holds the query and results of one search screen
type Controller struct {
	ctx      context.Context
	catalog  Searcher
	counter  Counter
	logger   zerolog.Logger
	interval time.Duration

	loader    *fetch.Loader[[]tmdb.Movie]
	debouncer *debounce.Debouncer

	mu       sync.Mutex
	query    string
	onUpdate func(State)
	closed   bool
	running  sync.WaitGroup
}

// NewController creates a Controller. Searches run with ctx until Close.
func NewController(ctx context.Context, catalog Searcher, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		ctx:      ctx,
		catalog:  catalog,
		logger:   logger,
		interval: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.loader = fetch.New(c.fetchMovies)
	c.loader.OnChange(func(fetch.State[[]tmdb.Movie]) { c.notify() })
	c.debouncer = debounce.New(c.interval, c.fire)
	return c
}

// OnUpdate registers fn to be called after every state change
func (c *Controller) OnUpdate(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// State returns the current query and results
func (c *Controller) State() State {
	c.mu.Lock()
	query := c.query
	c.mu.Unlock()
	return State{Query: query, Results: c.loader.State()}
}

// SetQuery updates the query. A blank query clears the results at once;
// anything else is searched after the debounce interval.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	c.query = text
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		c.debouncer.Cancel()
		c.loader.Reset()
		return
	}

	c.debouncer.Trigger(text)
	c.notify()
}

// Clear empties the query and results
func (c *Controller) Clear() {
	c.SetQuery("")
}

// Submit runs a pending search now and returns once it has finished. It
// reports whether a search was pending.
func (c *Controller) Submit() bool {
	return c.debouncer.Flush()
}

// Wait blocks until no search is running and returns the settled state
func (c *Controller) Wait(ctx context.Context) (State, error) {
	if _, err := c.loader.Wait(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// Close stops accepting queries and waits for a running search to finish
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Stop()
	c.running.Wait()
}

func (c *Controller) fire(query string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.running.Add(1)
	c.mu.Unlock()
	defer c.running.Done()

	c.search(query)
}

func (c *Controller) search(query string) {
	movies, err := c.loader.Refetch(c.ctx)
	if err != nil {
		if !errors.Is(err, fetch.ErrSuperseded) {
			c.logger.Error().Err(err).Str("query", query).Msg("Failed to search movies")
		}
		return
	}

	if len(movies) == 0 || c.counter == nil {
		return
	}
	if err := c.counter.UpdateSearchCount(c.ctx, query, movies[0]); err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Failed to update search count")
	}
}

func (c *Controller) fetchMovies(ctx context.Context) ([]tmdb.Movie, error) {
	c.mu.Lock()
	query := c.query
	c.mu.Unlock()
	return c.catalog.SearchMovies(ctx, query)
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn(c.State())
	}
}
