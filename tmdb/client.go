package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the TMDB v3 API root
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Client represents a TMDB API client
type Client struct {
	baseURL      string
	imageBaseURL string
	token        string
	httpClient   *http.Client
	cache        Cache
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// NewClient creates a new TMDB client. token is a v4 read access token sent
// as a bearer credential.
func NewClient(baseURL, token string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if token == "" {
		return nil, fmt.Errorf("%w: tmdb API key is required", ErrInvalidConfig)
	}

	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: DefaultImageBaseURL,
		token:        token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cacheTTL: time.Hour,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// ImageBaseURL returns the poster prefix used by this client
func (c *Client) ImageBaseURL() string {
	return c.imageBaseURL
}

// doRequest performs an authenticated GET request and returns the body
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Making TMDB API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.StatusMessage != "" {
			apiErr.Message = errResp.StatusMessage
		}
		return nil, apiErr
	}

	return body, nil
}

// TestConnection verifies the token against the configuration endpoint
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "/configuration", nil)
	return err
}

// SearchMovies searches the catalog by title. An empty query returns the
// most popular movies instead.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	query = strings.TrimSpace(query)

	endpoint := "/discover/movie"
	params := url.Values{}
	if query != "" {
		endpoint = "/search/movie"
		params.Set("query", query)
	} else {
		params.Set("sort_by", "popularity.desc")
	}

	body, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("Failed to fetch movies")
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}

	var response moviesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug().
		Str("query", query).
		Int("count", len(response.Results)).
		Msg("Retrieved movies from TMDB")

	return response.Results, nil
}

// GetMovie fetches movie details by TMDB id
func (c *Client) GetMovie(ctx context.Context, id int64) (*MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMovieID, id)
	}

	cacheKey := "tmdb:movie:" + strconv.FormatInt(id, 10)
	if c.cache != nil {
		var cached MovieDetails
		found, err := c.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			c.logger.Warn().Err(err).Int64("movie_id", id).Msg("Movie cache lookup failed")
		} else if found {
			return &cached, nil
		}
	}

	body, err := c.doRequest(ctx, "/movie/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		c.logger.Error().Err(err).Int64("movie_id", id).Msg("Failed to fetch movie details")
		return nil, fmt.Errorf("failed to fetch movie %d: %w", id, err)
	}

	var details MovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, &details, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Int64("movie_id", id).Msg("Failed to cache movie details")
		}
	}

	return &details, nil
}
