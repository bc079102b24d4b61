package saved

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/tmdb"
)

// ErrClosed is returned by mutations on a store that was closed at sign-out
var ErrClosed = errors.New("saved store is closed")

// Records is the remote side of the store
type Records interface {
	SaveMovie(ctx context.Context, movie tmdb.Movie) (Record, error)
	RemoveSavedMovie(ctx context.Context, recordID string) error
	GetSavedMovies(ctx context.Context) ([]Record, error)
}

// IDSet is a set of saved movie ids
type IDSet map[int64]struct{}

// Has reports whether id is in the set
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the ids in ascending order
func (s IDSet) Slice() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s IDSet) clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Store is the session's view of which movies are bookmarked. The local
// set only changes after the remote call it mirrors has succeeded, so it
// never claims a bookmark the remote store does not have.
//
// Overlapping Add/Remove calls are not serialized against each other; only
// access to the set itself is.
type Store struct {
	records Records
	logger  zerolog.Logger

	mu      sync.RWMutex
	ids     IDSet
	subs    map[int]chan IDSet
	nextSub int
	closed  bool
}

// NewStore creates an empty store. Call Refresh to load the remote state.
func NewStore(records Records, logger zerolog.Logger) *Store {
	return &Store{
		records: records,
		logger:  logger,
		ids:     make(IDSet),
		subs:    make(map[int]chan IDSet),
	}
}

// Refresh replaces the local set with the remote bookmarks. On failure the
// set is emptied rather than left stale; the error is only logged.
func (s *Store) Refresh(ctx context.Context) {
	records, err := s.records.GetSavedMovies(ctx)
	ids := make(IDSet, len(records))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load saved IDs")
	} else {
		for _, r := range records {
			ids[r.MovieID] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ids = ids
	s.broadcastLocked()
}

// Add bookmarks movie. Saving an already saved movie creates nothing new.
func (s *Store) Add(ctx context.Context, movie tmdb.Movie) error {
	if s.isClosed() {
		return ErrClosed
	}

	if _, err := s.records.SaveMovie(ctx, movie); err != nil {
		s.logger.Error().Err(err).Int64("movie_id", movie.ID).Msg("Error in addSaved")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.ids[movie.ID] = struct{}{}
	s.broadcastLocked()
	return nil
}

// Remove deletes the bookmark recordID and drops movieID from the set
func (s *Store) Remove(ctx context.Context, movieID int64, recordID string) error {
	if s.isClosed() {
		return ErrClosed
	}

	if err := s.records.RemoveSavedMovie(ctx, recordID); err != nil {
		s.logger.Error().Err(err).Int64("movie_id", movieID).Msg("Error in removeSaved")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.ids, movieID)
	s.broadcastLocked()
	return nil
}

// IsSaved reports whether movieID is bookmarked
func (s *Store) IsSaved(movieID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Has(movieID)
}

// IDs returns a copy of the saved id set
func (s *Store) IDs() IDSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.clone()
}

// Len returns the number of saved movies
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Subscribe returns a channel receiving a copy of the set after every
// change, starting with the current one. A slow reader only sees the latest
// set. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan IDSet, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan IDSet, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.ids.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close clears the set and closes every subscription
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ids = make(IDSet)
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// broadcastLocked must be called with mu held
func (s *Store) broadcastLocked() {
	for _, ch := range s.subs {
		snapshot := s.ids.clone()
		select {
		case ch <- snapshot:
		default:
			// drop the stale snapshot, keep the latest
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
