package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelbox/tmdb"
)

type fakeCatalog struct {
	mu      sync.Mutex
	queries []string
	results map[string][]tmdb.Movie
	err     error
}

func (f *fakeCatalog) SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeCatalog) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type countCall struct {
	term    string
	movieID int64
}

type fakeCounter struct {
	mu    sync.Mutex
	calls []countCall
	err   error
}

func (f *fakeCounter) UpdateSearchCount(ctx context.Context, term string, movie tmdb.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, countCall{term: term, movieID: movie.ID})
	return f.err
}

func (f *fakeCounter) get() []countCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]countCall(nil), f.calls...)
}

var duneResults = []tmdb.Movie{
	{ID: 438631, Title: "Dune"},
	{ID: 693134, Title: "Dune: Part Two"},
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{results: map[string][]tmdb.Movie{"dun": duneResults, "dune": duneResults}}
}

func TestController_DebouncesTyping(t *testing.T) {
	catalog := newCatalog()
	counter := &fakeCounter{}
	c := NewController(context.Background(), catalog, zerolog.Nop(),
		WithDebounce(50*time.Millisecond), WithCounter(counter))
	defer c.Close()

	c.SetQuery("d")
	c.SetQuery("du")
	c.SetQuery("dun")

	require.Eventually(t, func() bool { return c.State().Results.HasData }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"dun"}, catalog.calls())
	assert.Equal(t, []countCall{{term: "dun", movieID: 438631}}, counter.get())

	st := c.State()
	assert.Equal(t, "dun", st.Query)
	assert.Equal(t, duneResults, st.Results.Data)
}

func TestController_ClearBeforeFire(t *testing.T) {
	catalog := newCatalog()
	c := NewController(context.Background(), catalog, zerolog.Nop(), WithDebounce(30*time.Millisecond))
	defer c.Close()

	// Load something first so the reset is observable
	c.SetQuery("dune")
	require.True(t, c.Submit())
	require.True(t, c.State().Results.HasData)

	c.SetQuery("alien")
	c.Clear()

	st := c.State()
	assert.Equal(t, "", st.Query)
	assert.False(t, st.Results.HasData)
	assert.False(t, st.Results.Loading)
	assert.Nil(t, st.Results.Err)

	time.Sleep(90 * time.Millisecond)
	assert.Equal(t, []string{"dune"}, catalog.calls(), "the cleared query is never fetched")
}

func TestController_BlankQueryResetsImmediately(t *testing.T) {
	catalog := newCatalog()
	c := NewController(context.Background(), catalog, zerolog.Nop(), WithDebounce(time.Hour))
	defer c.Close()

	c.SetQuery("   ")
	assert.False(t, c.Submit(), "blank queries are not scheduled")
	assert.Empty(t, catalog.calls())
}

func TestController_NoResultsSkipsCounter(t *testing.T) {
	counter := &fakeCounter{}
	c := NewController(context.Background(), newCatalog(), zerolog.Nop(),
		WithDebounce(time.Hour), WithCounter(counter))
	defer c.Close()

	c.SetQuery("zzzz")
	require.True(t, c.Submit())

	st := c.State()
	assert.True(t, st.Results.HasData)
	assert.Empty(t, st.Results.Data)
	assert.Empty(t, counter.get())
}

func TestController_CounterErrorIsNotSurfaced(t *testing.T) {
	counter := &fakeCounter{err: errors.New("appwrite unavailable")}
	c := NewController(context.Background(), newCatalog(), zerolog.Nop(),
		WithDebounce(time.Hour), WithCounter(counter))
	defer c.Close()

	c.SetQuery("dune")
	require.True(t, c.Submit())

	st := c.State()
	assert.Nil(t, st.Results.Err)
	assert.Equal(t, duneResults, st.Results.Data)
	assert.Len(t, counter.get(), 1)
}

func TestController_CatalogError(t *testing.T) {
	catalog := newCatalog()
	catalog.err = &tmdb.APIError{StatusCode: 401, Message: "Invalid API key"}
	counter := &fakeCounter{}
	c := NewController(context.Background(), catalog, zerolog.Nop(),
		WithDebounce(time.Hour), WithCounter(counter))
	defer c.Close()

	c.SetQuery("dune")
	require.True(t, c.Submit())

	st := c.State()
	require.Error(t, st.Results.Err)
	assert.False(t, st.Results.HasData)
	assert.Empty(t, counter.get())
}

func TestController_OnUpdate(t *testing.T) {
	c := NewController(context.Background(), newCatalog(), zerolog.Nop(), WithDebounce(time.Hour))
	defer c.Close()

	var mu sync.Mutex
	var states []State
	c.OnUpdate(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	c.SetQuery("dune")
	c.Submit()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 3)
	assert.Equal(t, "dune", states[0].Query)
	assert.False(t, states[0].Results.Loading)
	assert.True(t, states[1].Results.Loading)
	assert.True(t, states[2].Results.HasData)
}

func TestController_CloseIgnoresLaterQueries(t *testing.T) {
	catalog := newCatalog()
	c := NewController(context.Background(), catalog, zerolog.Nop(), WithDebounce(10*time.Millisecond))

	c.Close()
	c.SetQuery("dune")

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, catalog.calls())
}

func TestController_WaitSettlesTimerSearch(t *testing.T) {
	c := NewController(context.Background(), newCatalog(), zerolog.Nop(), WithDebounce(20*time.Millisecond))
	defer c.Close()

	st, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Results.HasData, "nothing searched yet")

	c.SetQuery("dune")
	require.Eventually(t, func() bool {
		r := c.State().Results
		return r.Loading || r.HasData
	}, time.Second, time.Millisecond)

	st, err = c.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Results.Loading)
	assert.Equal(t, duneResults, st.Results.Data)
}
