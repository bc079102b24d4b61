// Package analytics records how often each search term is issued and
// serves the most searched terms as trending movies.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/docstore"
	"github.com/s0up4200/reelbox/tmdb"
)

// DefaultTrendingLimit is the number of trending entries returned
const DefaultTrendingLimit = 5

// ErrEmptyTerm is returned when recording a blank search term
var ErrEmptyTerm = errors.New("search term is empty")

// SearchCount is one analytics document, keyed by its unique search term
type SearchCount struct {
	ID         string `json:"$id"`
	SearchTerm string `json:"searchTerm"`
	Count      int64  `json:"count"`
	MovieID    int64  `json:"movie_id"`
	Title      string `json:"title"`
	PosterURL  string `json:"poster_url"`
}

// Tracker reads and writes search-count documents
type Tracker struct {
	store         docstore.Store
	collection    string
	imageBaseURL  string
	trendingLimit int
	logger        zerolog.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithTrendingLimit overrides the number of trending entries
func WithTrendingLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.trendingLimit = n
		}
	}
}

// WithImageBaseURL overrides the poster prefix stored on new documents
func WithImageBaseURL(base string) Option {
	return func(t *Tracker) {
		if base != "" {
			t.imageBaseURL = base
		}
	}
}

// NewTracker creates a Tracker over collection
func NewTracker(store docstore.Store, collection string, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:         store,
		collection:    collection,
		imageBaseURL:  tmdb.DefaultImageBaseURL,
		trendingLimit: DefaultTrendingLimit,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UpdateSearchCount increments the counter for term, creating it with a
// snapshot of movie (the first result of the search) when absent.
//
// Stores implementing docstore.Incrementer do this atomically. Otherwise it
// is a read-modify-write: concurrent identical searches can undercount.
func (t *Tracker) UpdateSearchCount(ctx context.Context, term string, movie tmdb.Movie) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return ErrEmptyTerm
	}

	if inc, ok := t.store.(docstore.Incrementer); ok {
		_, err := inc.Increment(ctx, t.collection, docstore.Equal("searchTerm", term), "count", 1, t.newDocument(term, movie))
		if err != nil {
			t.logger.Error().Err(err).Str("term", term).Msg("Error updating search count")
			return fmt.Errorf("failed to update search count for %q: %w", term, err)
		}
		return nil
	}

	docs, err := t.store.List(ctx, t.collection, docstore.Equal("searchTerm", term))
	if err != nil {
		t.logger.Error().Err(err).Str("term", term).Msg("Error updating search count")
		return fmt.Errorf("failed to look up search count for %q: %w", term, err)
	}

	if len(docs) > 0 {
		existing := docs[0]
		_, err = t.store.Update(ctx, t.collection, existing.ID(), map[string]any{
			"count": existing.Int("count") + 1,
		})
	} else {
		_, err = t.store.Create(ctx, t.collection, t.newDocument(term, movie))
	}
	if err != nil {
		t.logger.Error().Err(err).Str("term", term).Msg("Error updating search count")
		return fmt.Errorf("failed to update search count for %q: %w", term, err)
	}

	t.logger.Debug().Str("term", term).Int64("movie_id", movie.ID).Msg("Search count updated")
	return nil
}

func (t *Tracker) newDocument(term string, movie tmdb.Movie) map[string]any {
	return map[string]any{
		"searchTerm": term,
		"movie_id":   movie.ID,
		"title":      movie.Title,
		"count":      1,
		"poster_url": tmdb.PosterURL(t.imageBaseURL, movie.PosterPath),
	}
}

// TrendingMovies returns the most searched terms, highest count first.
// Failures are logged and yield an empty list.
func (t *Tracker) TrendingMovies(ctx context.Context) []SearchCount {
	docs, err := t.store.List(ctx, t.collection,
		docstore.Limit(t.trendingLimit),
		docstore.OrderDesc("count"),
	)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to load trending movies")
		return []SearchCount{}
	}

	out := make([]SearchCount, 0, len(docs))
	for _, doc := range docs {
		var sc SearchCount
		if err := doc.Decode(&sc); err != nil {
			t.logger.Warn().Err(err).Str("id", doc.ID()).Msg("Skipping malformed search count")
			continue
		}
		out = append(out, sc)
	}
	return out
}
