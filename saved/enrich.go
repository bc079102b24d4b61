package saved

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/reelbox/tmdb"
)

// DefaultEnrichConcurrency bounds concurrent catalog lookups
const DefaultEnrichConcurrency = 5

// EnrichWithDetails fetches catalog details for every record concurrently.
// Lookups that fail are logged and leave Details nil.
func EnrichWithDetails(ctx context.Context, catalog tmdb.API, records []Record, logger zerolog.Logger) error {
	if len(records) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultEnrichConcurrency)

	for i := range records {
		i := i
		g.Go(func() error {
			details, err := catalog.GetMovie(ctx, records[i].MovieID)
			if err != nil {
				logger.Warn().
					Err(err).
					Int64("movie_id", records[i].MovieID).
					Str("movie", records[i].Title).
					Msg("Failed to get movie details")
				return nil
			}
			// each goroutine owns records[i]
			records[i].Details = details
			return nil
		})
	}

	return g.Wait()
}
