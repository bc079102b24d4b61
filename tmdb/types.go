package tmdb

import (
	"strings"
)

// DefaultImageBaseURL is the w500 poster prefix used for every poster path
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie represents a movie as returned by search and discover endpoints
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview,omitempty"`
}

// PosterURL returns the absolute poster URL for the movie.
// Paths that are already absolute URLs are returned unchanged.
func (m Movie) PosterURL() string {
	return PosterURL(DefaultImageBaseURL, m.PosterPath)
}

// Year returns the release year, or an empty string when unknown
func (m Movie) Year() string {
	year, _, _ := strings.Cut(m.ReleaseDate, "-")
	return year
}

// Stars converts the 0-10 vote average into a 0-5 star rating
func (m Movie) Stars() int {
	return int(m.VoteAverage/2 + 0.5)
}

// PosterURL joins an image base URL and a poster path
func PosterURL(imageBaseURL, posterPath string) string {
	if posterPath == "" {
		return ""
	}
	if strings.HasPrefix(posterPath, "http") {
		return posterPath
	}
	return strings.TrimRight(imageBaseURL, "/") + "/" + strings.TrimLeft(posterPath, "/")
}

// Genre is a TMDB genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the response of the movie details endpoint
type MovieDetails struct {
	Movie
	Runtime  int     `json:"runtime"`
	Genres   []Genre `json:"genres"`
	Tagline  string  `json:"tagline"`
	Budget   int64   `json:"budget"`
	Revenue  int64   `json:"revenue"`
	Status   string  `json:"status"`
	IMDbID   string  `json:"imdb_id"`
	Homepage string  `json:"homepage"`
}

// GenreNames returns the genre names in API order
func (d *MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// moviesResponse is the paginated envelope of search and discover
type moviesResponse struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// errorResponse is the TMDB error body
type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}
