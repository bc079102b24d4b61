package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelbox/saved"
	"github.com/s0up4200/reelbox/search"
	"github.com/s0up4200/reelbox/tmdb"
	"github.com/s0up4200/reelbox/views"
)

var saveIndex int

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the movie catalog",
	Long: `Search TMDB by title. With a query the search runs once and prints the
results. Without one, every line read from stdin replaces the query and the
results refresh after the debounce interval; an empty line clears them.`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&showDetails, "details", false, "show movie ids and poster links")
	searchCmd.Flags().IntVar(&saveIndex, "save", 0, "bookmark the N-th result (one-shot mode only)")
}

func newSearchController(ctx context.Context) *search.Controller {
	return search.NewController(ctx, catalog, logger,
		search.WithDebounce(cfg.Search.Debounce),
		search.WithCounter(tracker),
	)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	options := views.FormatOptions{ShowDetails: showDetails, Numbered: true}

	if len(args) == 0 {
		if saveIndex > 0 {
			return fmt.Errorf("--save needs a query")
		}
		return interactiveSearch(ctx, os.Stdin, os.Stdout, options)
	}

	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query must not be blank")
	}

	ctrl := newSearchController(ctx)
	defer ctrl.Close()

	ctrl.SetQuery(query)
	ctrl.Submit()

	store := sessions.Saved(ctx)
	state := ctrl.State()
	fmt.Println(formatter.FormatSearch(state, store.IDs(), options))

	if state.Results.Err != nil {
		return state.Results.Err
	}
	if saveIndex == 0 {
		return nil
	}

	movie, err := pickResult(state.Results.Data, saveIndex)
	if err != nil {
		return err
	}
	return saveMovie(ctx, os.Stdout, store, movie)
}

// interactiveSearch treats each input line as the new query text, except
// ":save N" and ":remove N" which act on the N-th result shown
func interactiveSearch(ctx context.Context, in io.Reader, out io.Writer, options views.FormatOptions) error {
	ctrl := newSearchController(ctx)
	defer ctrl.Close()

	store := sessions.Saved(ctx)
	view := newSearchView(out, store.IDs(), options)

	// bookmark changes re-render the results with fresh markers
	updates, unsubscribe := store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ids := range updates {
			view.setSaved(ids)
		}
	}()
	defer func() {
		unsubscribe()
		<-done
	}()

	ctrl.OnUpdate(view.setState)

	fmt.Fprintln(view, views.SearchPrompt)
	fmt.Fprintln(view, "Type a title and press enter, an empty line clears, Ctrl-D quits.")
	fmt.Fprintln(view, "Use :save N or :remove N to bookmark a result.")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		command, ok, err := parseCommand(line)
		switch {
		case !ok:
			ctrl.SetQuery(line)
		case err != nil:
			fmt.Fprintf(view, "✗ %v\n", err)
		default:
			if err := runSearchCommand(ctx, ctrl, store, view, command); err != nil {
				fmt.Fprintf(view, "✗ %v\n", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	// run whatever was typed last before exiting
	ctrl.Submit()
	return nil
}

const (
	actionSave   = "save"
	actionRemove = "remove"
)

// searchCommand acts on a numbered result of the interactive search
type searchCommand struct {
	action string
	index  int
}

// parseCommand recognises lines starting with ':'. ok is false for plain
// query text.
func parseCommand(line string) (searchCommand, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ":") {
		return searchCommand{}, false, nil
	}

	action := strings.TrimPrefix(fields[0], ":")
	if action != actionSave && action != actionRemove {
		return searchCommand{}, true, fmt.Errorf("unknown command %q, use :save N or :remove N", fields[0])
	}
	if len(fields) != 2 {
		return searchCommand{}, true, fmt.Errorf(":%s needs a result number", action)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return searchCommand{}, true, fmt.Errorf("invalid result number %q", fields[1])
	}
	return searchCommand{action: action, index: n}, true, nil
}

func runSearchCommand(ctx context.Context, ctrl *search.Controller, store *saved.Store, out io.Writer, command searchCommand) error {
	// act on the results of the last query typed
	ctrl.Submit()
	state, err := ctrl.Wait(ctx)
	if err != nil {
		return err
	}

	movie, err := pickResult(state.Results.Data, command.index)
	if err != nil {
		return err
	}
	if command.action == actionRemove {
		return removeSaved(ctx, out, store, movie.ID)
	}
	return saveMovie(ctx, out, store, movie)
}

// searchView renders interactive results. Search updates and bookmark
// changes arrive on different goroutines; mu serialises them and every
// other write to out.
type searchView struct {
	mu      sync.Mutex
	out     io.Writer
	options views.FormatOptions
	saved   saved.IDSet
	state   search.State
	shown   bool
}

func newSearchView(out io.Writer, ids saved.IDSet, options views.FormatOptions) *searchView {
	return &searchView{out: out, saved: ids, options: options}
}

func (v *searchView) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.out.Write(p)
}

func (v *searchView) setState(state search.State) {
	if state.Results.Loading {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	v.shown = state.Results.HasData || state.Results.Err != nil
	fmt.Fprintln(v.out, formatter.FormatSearch(state, v.saved, v.options))
}

func (v *searchView) setSaved(ids saved.IDSet) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.saved = ids
	if v.shown {
		fmt.Fprintln(v.out, formatter.FormatSearch(v.state, v.saved, v.options))
	}
}

// pickResult returns the 1-based n-th movie
func pickResult(movies []tmdb.Movie, n int) (tmdb.Movie, error) {
	if n < 1 || n > len(movies) {
		return tmdb.Movie{}, fmt.Errorf("no result number %d (have %d)", n, len(movies))
	}
	return movies[n-1], nil
}

func saveMovie(ctx context.Context, out io.Writer, store *saved.Store, movie tmdb.Movie) error {
	if store.IsSaved(movie.ID) {
		fmt.Fprintf(out, "%s is already saved\n", movie.Title)
		return nil
	}
	if err := store.Add(ctx, movie); err != nil {
		return fmt.Errorf("failed to save %s: %w", movie.Title, err)
	}
	fmt.Fprintf(out, "✓ Saved %s\n", movie.Title)
	return nil
}

func removeSaved(ctx context.Context, out io.Writer, store *saved.Store, movieID int64) error {
	record, found, err := savedRepository(sessions.UserID()).FindByMovieID(ctx, movieID)
	if err != nil {
		return fmt.Errorf("failed to look up saved movie %d: %w", movieID, err)
	}
	if !found {
		return fmt.Errorf("movie %d is not saved", movieID)
	}

	if err := store.Remove(ctx, movieID, record.ID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", record.Title, err)
	}
	fmt.Fprintf(out, "✓ Removed %s\n", record.Title)
	return nil
}
