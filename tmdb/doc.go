// Package tmdb provides a client for The Movie Database (TMDB) v3 API.
//
// Only the two lookups the application needs are implemented: searching
// the catalog by text and fetching a single movie by id.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := tmdb.NewClient(
//		tmdb.DefaultBaseURL,
//		"your-read-access-token",
//		logger,
//		tmdb.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	movies, err := client.SearchMovies(ctx, "dune")
//
// An empty search query returns the current popular movies, matching the
// home screen behavior.
//
// # Caching
//
// Movie details can be cached by passing WithCache. RedisCache stores the
// JSON responses in Redis; cache failures are logged and never fail a
// lookup.
//
// # Error Handling
//
// Non-200 responses are returned as *APIError:
//
//	var apiErr *tmdb.APIError
//	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
//		// unknown movie id
//	}
package tmdb
