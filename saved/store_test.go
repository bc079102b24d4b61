package saved

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelbox/docstore/memstore"
	"github.com/s0up4200/reelbox/docstore/storetest"
	"github.com/s0up4200/reelbox/tmdb"
)

const collection = "saved"

var (
	dune  = tmdb.Movie{ID: 438631, Title: "Dune", PosterPath: "/dune.jpg", VoteAverage: 7.8, ReleaseDate: "2021-09-15"}
	alien = tmdb.Movie{ID: 348, Title: "Alien", PosterPath: "https://cdn.example/alien.jpg", VoteAverage: 8.2, ReleaseDate: "1979-05-25"}
)

func newTestStore(t *testing.T) (*Store, *storetest.Faulty, *memstore.Store) {
	t.Helper()
	mem := memstore.New()
	faulty := storetest.NewFaulty(mem)
	repo := NewRepository(faulty, collection, zerolog.Nop())
	return NewStore(repo, zerolog.Nop()), faulty, mem
}

func TestStore_AddThenRemove(t *testing.T) {
	ctx := context.Background()
	store, _, mem := newTestStore(t)

	require.NoError(t, store.Add(ctx, dune))
	assert.True(t, store.IsSaved(dune.ID))

	docs, err := mem.List(ctx, collection)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, store.Remove(ctx, dune.ID, docs[0].ID()))
	assert.False(t, store.IsSaved(dune.ID))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, mem.Len(collection))
}

func TestStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, faulty, mem := newTestStore(t)

	require.NoError(t, store.Add(ctx, dune))
	require.NoError(t, store.Add(ctx, dune))

	assert.Equal(t, 1, faulty.Calls(storetest.OpCreate))
	assert.Equal(t, 1, mem.Len(collection))
	assert.Equal(t, []int64{dune.ID}, store.IDs().Slice())
}

func TestStore_RefreshFailOpen(t *testing.T) {
	ctx := context.Background()
	store, faulty, _ := newTestStore(t)

	require.NoError(t, store.Add(ctx, dune))
	require.NoError(t, store.Add(ctx, alien))
	require.Equal(t, 2, store.Len())

	faulty.Fail(storetest.OpList, errors.New("network down"))
	store.Refresh(ctx)

	assert.Equal(t, 0, store.Len(), "a failed refresh must empty the set, not keep the stale one")
}

func TestStore_RefreshLoadsRemote(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	repo := NewRepository(mem, collection, zerolog.Nop())

	// Bookmarks created by another client
	_, err := repo.SaveMovie(ctx, dune)
	require.NoError(t, err)
	_, err = repo.SaveMovie(ctx, alien)
	require.NoError(t, err)

	store := NewStore(repo, zerolog.Nop())
	assert.Equal(t, 0, store.Len())

	store.Refresh(ctx)
	assert.Equal(t, []int64{alien.ID, dune.ID}, store.IDs().Slice())
}

func TestStore_RefreshReadsEveryPage(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	seedRepo := NewRepository(mem, collection, zerolog.Nop())
	for id := int64(1); id <= 30; id++ {
		_, err := seedRepo.SaveMovie(ctx, tmdb.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id)})
		require.NoError(t, err)
	}

	paged := storetest.NewPaged(mem, 25)
	repo := NewRepository(paged, collection, zerolog.Nop())

	records, err := repo.GetSavedMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.Greater(t, len(paged.Requests()), 1)

	store := NewStore(repo, zerolog.Nop())
	store.Refresh(ctx)
	assert.Equal(t, 30, store.Len())
	assert.True(t, store.IsSaved(30))
	assert.True(t, store.IsSaved(1))
}

func TestStore_FailedWritesLeaveSetUnchanged(t *testing.T) {
	ctx := context.Background()
	store, faulty, mem := newTestStore(t)
	boom := errors.New("unauthorized")

	require.NoError(t, store.Add(ctx, dune))

	faulty.Fail(storetest.OpCreate, boom)
	err := store.Add(ctx, alien)
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.IsSaved(alien.ID))

	docs, err := mem.List(ctx, collection)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	faulty.Fail(storetest.OpDelete, boom)
	err = store.Remove(ctx, dune.ID, docs[0].ID())
	assert.ErrorIs(t, err, boom)
	assert.True(t, store.IsSaved(dune.ID))

	// A failed duplicate check also leaves the set alone
	faulty.Fail(storetest.OpList, boom)
	assert.ErrorIs(t, store.Add(ctx, alien), boom)
	assert.Equal(t, []int64{dune.ID}, store.IDs().Slice())
}

// blockingRecords lets a test observe the store while a remote call is in flight
type blockingRecords struct {
	Records
	started chan struct{}
	release chan struct{}
}

func (b *blockingRecords) SaveMovie(ctx context.Context, movie tmdb.Movie) (Record, error) {
	close(b.started)
	<-b.release
	return b.Records.SaveMovie(ctx, movie)
}

func TestStore_NoLocalMutationBeforeRemoteConfirmation(t *testing.T) {
	ctx := context.Background()
	records := &blockingRecords{
		Records: NewRepository(memstore.New(), collection, zerolog.Nop()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewStore(records, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- store.Add(ctx, dune) }()

	<-records.started
	assert.False(t, store.IsSaved(dune.ID))

	close(records.release)
	require.NoError(t, <-done)
	assert.True(t, store.IsSaved(dune.ID))
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	updates, unsubscribe := store.Subscribe()

	initial := <-updates
	assert.Empty(t, initial)

	require.NoError(t, store.Add(ctx, dune))
	require.NoError(t, store.Add(ctx, alien))

	// Only the latest snapshot is kept for a slow reader
	select {
	case latest := <-updates:
		assert.True(t, latest.Has(dune.ID))
		assert.True(t, latest.Has(alien.ID))
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot")
	}

	unsubscribe()
	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok)
}

func TestStore_Close(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)
	require.NoError(t, store.Add(ctx, dune))

	updates, _ := store.Subscribe()
	<-updates

	store.Close()
	assert.Equal(t, 0, store.Len())

	_, ok := <-updates
	assert.False(t, ok)

	assert.ErrorIs(t, store.Add(ctx, alien), ErrClosed)
	assert.ErrorIs(t, store.Remove(ctx, dune.ID, "x"), ErrClosed)

	late, _ := store.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var n int
	mem.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Hour)
	})

	repo := NewRepository(mem, collection, zerolog.Nop(), WithOwner("user_1"))
	other := NewRepository(mem, collection, zerolog.Nop(), WithOwner("user_2"))

	first, err := repo.SaveMovie(ctx, dune)
	require.NoError(t, err)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/dune.jpg", first.PosterURL)
	assert.Equal(t, 8.0, first.VoteAverage, "rating is rounded to an integer")
	assert.Equal(t, "user_1", first.UserID)

	second, err := repo.SaveMovie(ctx, alien)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/alien.jpg", second.PosterURL)

	_, err = other.SaveMovie(ctx, dune)
	require.NoError(t, err)

	records, err := repo.GetSavedMovies(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, alien.ID, records[0].MovieID, "newest first")
	assert.Equal(t, dune.ID, records[1].MovieID)

	rec, found, err := repo.FindByMovieID(ctx, dune.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ID, rec.ID)

	require.NoError(t, repo.RemoveSavedMovie(ctx, first.ID))
	_, found, err = repo.FindByMovieID(ctx, dune.ID)
	require.NoError(t, err)
	assert.False(t, found)

	// The other owner's bookmark survives
	_, found, err = other.FindByMovieID(ctx, dune.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

type fakeCatalog struct {
	failIDs map[int64]bool
}

func (f *fakeCatalog) SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error) {
	return nil, nil
}

func (f *fakeCatalog) GetMovie(ctx context.Context, id int64) (*tmdb.MovieDetails, error) {
	if f.failIDs[id] {
		return nil, fmt.Errorf("movie %d unavailable", id)
	}
	return &tmdb.MovieDetails{Movie: tmdb.Movie{ID: id}, Runtime: int(id)}, nil
}

func TestEnrichWithDetails(t *testing.T) {
	records := []Record{{MovieID: 1}, {MovieID: 2}, {MovieID: 3}}
	catalog := &fakeCatalog{failIDs: map[int64]bool{2: true}}

	require.NoError(t, EnrichWithDetails(context.Background(), catalog, records, zerolog.Nop()))

	require.NotNil(t, records[0].Details)
	assert.Equal(t, 1, records[0].Details.Runtime)
	assert.Nil(t, records[1].Details)
	require.NotNil(t, records[2].Details)
	assert.Equal(t, 3, records[2].Details.Runtime)

	assert.NoError(t, EnrichWithDetails(context.Background(), catalog, nil, zerolog.Nop()))
}
