package saved

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/docstore"
	"github.com/s0up4200/reelbox/tmdb"
)

// Record is one bookmark document
type Record struct {
	ID          string
	MovieID     int64
	Title       string
	PosterURL   string
	VoteAverage float64
	ReleaseDate string
	CreatedAt   time.Time
	UserID      string

	// Details is filled by EnrichWithDetails and never persisted
	Details *tmdb.MovieDetails
}

func recordFromDocument(doc docstore.Document) Record {
	return Record{
		ID:          doc.ID(),
		MovieID:     doc.Int("movie_id"),
		Title:       doc.String("title"),
		PosterURL:   doc.String("poster_url"),
		VoteAverage: doc.Float("vote_average"),
		ReleaseDate: doc.String("release_date"),
		CreatedAt:   doc.CreatedAt(),
		UserID:      doc.String("user_id"),
	}
}

// Repository reads and writes bookmark documents for one owner
type Repository struct {
	store        docstore.Store
	collection   string
	userID       string
	imageBaseURL string
	logger       zerolog.Logger
}

// RepositoryOption configures a Repository
type RepositoryOption func(*Repository)

// WithOwner scopes every read and write to userID
func WithOwner(userID string) RepositoryOption {
	return func(r *Repository) {
		r.userID = userID
	}
}

// WithImageBaseURL overrides the poster prefix stored on new records
func WithImageBaseURL(base string) RepositoryOption {
	return func(r *Repository) {
		if base != "" {
			r.imageBaseURL = base
		}
	}
}

// NewRepository creates a Repository over collection
func NewRepository(store docstore.Store, collection string, logger zerolog.Logger, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store:        store,
		collection:   collection,
		imageBaseURL: tmdb.DefaultImageBaseURL,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) ownerQueries(queries ...docstore.Query) []docstore.Query {
	if r.userID == "" {
		return queries
	}
	return append([]docstore.Query{docstore.Equal("user_id", r.userID)}, queries...)
}

// FindByMovieID returns the bookmark for movieID, if any
func (r *Repository) FindByMovieID(ctx context.Context, movieID int64) (Record, bool, error) {
	docs, err := r.store.List(ctx, r.collection, r.ownerQueries(
		docstore.Equal("movie_id", movieID),
		docstore.Limit(1),
	)...)
	if err != nil {
		return Record{}, false, err
	}
	if len(docs) == 0 {
		return Record{}, false, nil
	}
	return recordFromDocument(docs[0]), true, nil
}

// SaveMovie bookmarks movie. An existing bookmark for the same movie id is
// returned instead of creating a second one. The check and the create are
// separate calls, so two clients saving at once can still both create.
func (r *Repository) SaveMovie(ctx context.Context, movie tmdb.Movie) (Record, error) {
	existing, found, err := r.FindByMovieID(ctx, movie.ID)
	if err != nil {
		r.logger.Error().Err(err).Int64("movie_id", movie.ID).Msg("Error saving movie")
		return Record{}, fmt.Errorf("failed to check saved movie %d: %w", movie.ID, err)
	}
	if found {
		return existing, nil
	}

	data := map[string]any{
		"movie_id":     movie.ID,
		"title":        movie.Title,
		"poster_url":   tmdb.PosterURL(r.imageBaseURL, movie.PosterPath),
		"vote_average": int64(math.Round(movie.VoteAverage)),
		"release_date": movie.ReleaseDate,
	}
	if r.userID != "" {
		data["user_id"] = r.userID
	}

	doc, err := r.store.Create(ctx, r.collection, data)
	if err != nil {
		r.logger.Error().Err(err).Int64("movie_id", movie.ID).Msg("Error saving movie")
		return Record{}, fmt.Errorf("failed to save movie %d: %w", movie.ID, err)
	}

	r.logger.Debug().Int64("movie_id", movie.ID).Str("id", doc.ID()).Msg("Saved movie")
	return recordFromDocument(doc), nil
}

// RemoveSavedMovie deletes a bookmark by its record id
func (r *Repository) RemoveSavedMovie(ctx context.Context, recordID string) error {
	if err := r.store.Delete(ctx, r.collection, recordID); err != nil {
		r.logger.Error().Err(err).Str("id", recordID).Msg("Error removing saved movie")
		return fmt.Errorf("failed to remove saved movie %s: %w", recordID, err)
	}
	return nil
}

// GetSavedMovies lists every bookmark, newest first, reading as many pages
// as the store needs
func (r *Repository) GetSavedMovies(ctx context.Context) ([]Record, error) {
	docs, err := docstore.ListAll(ctx, r.store, r.collection, docstore.DefaultPageSize,
		r.ownerQueries(docstore.OrderDesc(docstore.FieldCreatedAt))...)
	if err != nil {
		r.logger.Error().Err(err).Msg("Error fetching saved movies")
		return nil, fmt.Errorf("failed to fetch saved movies: %w", err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromDocument(doc))
	}
	return records, nil
}
