package tmdb

import (
	"context"
)

// API defines the interface for catalog operations
type API interface {
	// SearchMovies searches movies by title, or lists popular movies for an empty query
	SearchMovies(ctx context.Context, query string) ([]Movie, error)

	// GetMovie retrieves movie details by TMDB id
	GetMovie(ctx context.Context, id int64) (*MovieDetails, error)
}

var _ API = (*Client)(nil)
