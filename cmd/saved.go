package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelbox/filter"
	"github.com/s0up4200/reelbox/saved"
	"github.com/s0up4200/reelbox/views"
)

var filterExpr string

// savedCmd represents the saved command
var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage your saved movies",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved movies, newest first",
	Long: `List your saved movies. --filter takes an expression evaluated against
every saved movie, for example:

  rating >= 7 and year >= 2010
  contains(title, "dune") or savedWithin("30d")
  hasGenre("Science Fiction") and runtime < 120

runtime, genres and tagline are fetched from TMDB when a filter or
--details is given.`,
	Args: cobra.NoArgs,
	RunE: runSavedList,
}

var savedAddCmd = &cobra.Command{
	Use:   "add <movie-id>",
	Short: "Save a movie by its TMDB id",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedAdd,
}

var savedRemoveCmd = &cobra.Command{
	Use:   "remove <movie-id>",
	Short: "Remove a movie from your saved list",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedRemove,
}

func init() {
	rootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedListCmd, savedAddCmd, savedRemoveCmd)

	savedListCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	savedListCmd.Flags().BoolVar(&showDetails, "details", false, "show ids, save date, runtime and genres")
}

func runSavedList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var f *filter.Filter
	if filterExpr != "" {
		var err error
		f, err = filter.NewCompiler().Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	records, err := savedRepository(sessions.UserID()).GetSavedMovies(ctx)
	if err != nil {
		// read path: show the empty list
		fmt.Println(views.NoSavedMovies)
		return nil
	}

	if f != nil || showDetails {
		if err := saved.EnrichWithDetails(ctx, catalog, records, logger); err != nil {
			return err
		}
	}

	if f != nil {
		logger.Debug().Str("filter", f.Expression()).Int("records", len(records)).Msg("Filtering saved movies")
		matched, skipped := f.Apply(records)
		for _, err := range skipped {
			logger.Warn().Err(err).Msg("Skipping movie")
		}
		records = matched
	}

	fmt.Println(formatter.FormatSaved(records, views.FormatOptions{ShowDetails: showDetails}))
	return nil
}

func runSavedAdd(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	details, err := catalog.GetMovie(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get movie %d: %w", id, err)
	}

	return saveMovie(ctx, os.Stdout, sessions.Saved(ctx), details.Movie)
}

func runSavedRemove(cmd *cobra.Command, args []string) error {
	id, err := parseMovieID(args[0])
	if err != nil {
		return err
	}

	return removeSaved(cmd.Context(), os.Stdout, sessions.Saved(cmd.Context()), id)
}
