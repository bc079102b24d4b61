package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelbox/fetch"
	"github.com/s0up4200/reelbox/tmdb"
	"github.com/s0up4200/reelbox/views"
)

// trendingCmd represents the trending command
var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the most searched movies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(formatter.FormatTrending(tracker.TrendingMovies(cmd.Context())))
		return nil
	},
}

// homeCmd represents the home command
var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show trending searches and popular movies",
	Args:  cobra.NoArgs,
	RunE:  runHome,
}

// movieCmd represents the movie command
var movieCmd = &cobra.Command{
	Use:   "movie <movie-id>",
	Short: "Show details for one movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runMovie,
}

func init() {
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(homeCmd)
	rootCmd.AddCommand(movieCmd)

	homeCmd.Flags().BoolVar(&showDetails, "details", false, "show movie ids and poster links")
}

func runHome(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// popular movies load in the background while trending is read
	popular := fetch.New(func(ctx context.Context) ([]tmdb.Movie, error) {
		return catalog.SearchMovies(ctx, "")
	}, fetch.WithAutoRun(ctx))

	fmt.Println(formatter.FormatTrending(tracker.TrendingMovies(ctx)))

	state, err := popular.Wait(ctx)
	if err != nil {
		return err
	}
	if state.Err != nil {
		return fmt.Errorf("failed to load popular movies: %w", state.Err)
	}

	fmt.Println("Popular right now:")
	fmt.Println(formatter.FormatMovieList(state.Data, sessions.Saved(ctx).IDs(), views.FormatOptions{ShowDetails: showDetails}))
	return nil
}

func runMovie(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	details := fetch.New(func(ctx context.Context) (*tmdb.MovieDetails, error) {
		return catalog.GetMovie(ctx, id)
	}, fetch.WithAutoRun(ctx))

	isSaved := sessions.Saved(ctx).IsSaved(id)

	state, err := details.Wait(ctx)
	if err != nil {
		return err
	}
	if state.Err != nil {
		return fmt.Errorf("failed to get movie %d: %w", id, state.Err)
	}

	fmt.Println(formatter.FormatMovieDetails(state.Data, isSaved))
	return nil
}

func parseMovieID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", s)
	}
	return id, nil
}
