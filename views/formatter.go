// Package views renders screens as console text.
package views

import (
	"fmt"
	"strings"

	"github.com/s0up4200/reelbox/analytics"
	"github.com/s0up4200/reelbox/clerk"
	"github.com/s0up4200/reelbox/saved"
	"github.com/s0up4200/reelbox/search"
	"github.com/s0up4200/reelbox/tmdb"
)

// Empty state messages
const (
	NoMoviesFound = "No movies found"
	SearchPrompt  = "Search for a movie to see results"
	NoSavedMovies = "No saved movies yet."
	NoTrending    = "No trending searches yet"
	NotSignedIn   = "You are not signed in."
)

const (
	savedMarker    = "[saved]"
	unknownYear    = "----"
	treeBranch     = "\u251c"
	treeLast       = "\u2570"
	treeLine       = "\u2502"
	treeIndent     = "\u2502   "
	treeLastIndent = "    "
	treeConnector  = "\u2500\u2500 "
	starGlyph      = "\u2605"
)

// FormatOptions controls how much of each movie is shown
type FormatOptions struct {
	ShowDetails bool
	// Numbered prefixes each entry with its 1-based position
	Numbered bool
}

// ConsoleFormatter provides console output formatting for movies
type ConsoleFormatter struct {
	imageBaseURL string
}

// NewConsoleFormatter creates a new console formatter. Poster paths are
// joined with imageBaseURL, or tmdb.DefaultImageBaseURL when empty.
func NewConsoleFormatter(imageBaseURL string) *ConsoleFormatter {
	if imageBaseURL == "" {
		imageBaseURL = tmdb.DefaultImageBaseURL
	}
	return &ConsoleFormatter{imageBaseURL: imageBaseURL}
}

// FormatSearch renders the search screen for state
func (f *ConsoleFormatter) FormatSearch(state search.State, savedIDs saved.IDSet, options FormatOptions) string {
	results := state.Results
	switch {
	case results.Loading:
		return "Searching..."
	case results.Err != nil:
		return fmt.Sprintf("Error: %s", results.Err)
	case len(results.Data) == 0:
		if strings.TrimSpace(state.Query) != "" && results.HasData {
			return NoMoviesFound
		}
		return SearchPrompt
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nSearch Results for %s (%d):\n\n", state.Query, len(results.Data))
	f.writeMovies(&sb, results.Data, savedIDs, options)
	return sb.String()
}

// FormatMovieList formats a list of catalog movies with bookmark markers
func (f *ConsoleFormatter) FormatMovieList(movies []tmdb.Movie, savedIDs saved.IDSet, options FormatOptions) string {
	if len(movies) == 0 {
		return NoMoviesFound
	}

	var sb strings.Builder
	sb.WriteString("\nMovie")
	if len(movies) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d):\n\n", len(movies))
	f.writeMovies(&sb, movies, savedIDs, options)
	return sb.String()
}

func (f *ConsoleFormatter) writeMovies(sb *strings.Builder, movies []tmdb.Movie, savedIDs saved.IDSet, options FormatOptions) {
	for i, movie := range movies {
		isLast := i == len(movies)-1
		prefix, indent := branch(isLast)

		sb.WriteString(prefix + treeConnector)
		if options.Numbered {
			fmt.Fprintf(sb, "%d. ", i+1)
		}
		fmt.Fprintf(sb, "%s (%s) %s", movie.Title, yearOrUnknown(movie.Year()), stars(movie.VoteAverage))
		if savedIDs.Has(movie.ID) {
			sb.WriteString(" " + savedMarker)
		}
		sb.WriteString("\n")

		if options.ShowDetails {
			fmt.Fprintf(sb, "%sID: %d\n", indent, movie.ID)
			if poster := tmdb.PosterURL(f.imageBaseURL, movie.PosterPath); poster != "" {
				fmt.Fprintf(sb, "%sPoster: %s\n", indent, poster)
			}
		}

		if !isLast {
			sb.WriteString(treeLine + "\n")
		}
	}
	sb.WriteString("\n")
}

// FormatSaved formats the saved list, newest first as given
func (f *ConsoleFormatter) FormatSaved(records []saved.Record, options FormatOptions) string {
	if len(records) == 0 {
		return NoSavedMovies
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nSaved movies (%d):\n\n", len(records))

	for i, r := range records {
		isLast := i == len(records)-1
		prefix, indent := branch(isLast)

		year := ""
		if len(r.ReleaseDate) >= 4 {
			year = r.ReleaseDate[:4]
		}
		fmt.Fprintf(&sb, "%s%s%s (%s) %s\n", prefix, treeConnector, r.Title, yearOrUnknown(year), stars(r.VoteAverage))

		if options.ShowDetails {
			fmt.Fprintf(&sb, "%sMovie ID: %d | Record: %s\n", indent, r.MovieID, r.ID)
			if !r.CreatedAt.IsZero() {
				fmt.Fprintf(&sb, "%sSaved: %s\n", indent, r.CreatedAt.Format("2006-01-02"))
			}
			if d := r.Details; d != nil {
				var parts []string
				if d.Runtime > 0 {
					parts = append(parts, fmt.Sprintf("%d min", d.Runtime))
				}
				if genres := d.GenreNames(); len(genres) > 0 {
					parts = append(parts, strings.Join(genres, ", "))
				}
				if len(parts) > 0 {
					fmt.Fprintf(&sb, "%s%s\n", indent, strings.Join(parts, " | "))
				}
			}
		}

		if !isLast {
			sb.WriteString(treeLine + "\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatTrending formats the most searched movies in rank order
func (f *ConsoleFormatter) FormatTrending(items []analytics.SearchCount) string {
	if len(items) == 0 {
		return NoTrending
	}

	var sb strings.Builder
	sb.WriteString("\nTrending Movies:\n\n")
	for i, item := range items {
		prefix, _ := branch(i == len(items)-1)
		fmt.Fprintf(&sb, "%s%s%d. %s (searched %d", prefix, treeConnector, i+1, item.Title, item.Count)
		if item.Count == 1 {
			sb.WriteString(" time)\n")
		} else {
			sb.WriteString(" times)\n")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatMovieDetails formats one movie's details
func (f *ConsoleFormatter) FormatMovieDetails(d *tmdb.MovieDetails, isSaved bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s (%s)", d.Title, yearOrUnknown(d.Year()))
	if isSaved {
		sb.WriteString(" " + savedMarker)
	}
	sb.WriteString("\n")
	if d.Tagline != "" {
		fmt.Fprintf(&sb, "%q\n", d.Tagline)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Rating: %s (%.1f/10)\n", stars(d.VoteAverage), d.VoteAverage)
	if d.ReleaseDate != "" {
		fmt.Fprintf(&sb, "Released: %s\n", d.ReleaseDate)
	}
	if d.Runtime > 0 {
		fmt.Fprintf(&sb, "Runtime: %d min\n", d.Runtime)
	}
	if genres := d.GenreNames(); len(genres) > 0 {
		fmt.Fprintf(&sb, "Genres: %s\n", strings.Join(genres, ", "))
	}
	if d.Status != "" {
		fmt.Fprintf(&sb, "Status: %s\n", d.Status)
	}
	if d.Budget > 0 || d.Revenue > 0 {
		fmt.Fprintf(&sb, "Budget: $%d | Revenue: $%d\n", d.Budget, d.Revenue)
	}
	if d.IMDbID != "" {
		fmt.Fprintf(&sb, "IMDb: https://www.imdb.com/title/%s\n", d.IMDbID)
	}
	if poster := tmdb.PosterURL(f.imageBaseURL, d.PosterPath); poster != "" {
		fmt.Fprintf(&sb, "Poster: %s\n", poster)
	}
	if d.Overview != "" {
		fmt.Fprintf(&sb, "\n%s\n", d.Overview)
	}

	return sb.String()
}

// FormatProfile greets the signed-in user. A nil user means signed out.
func (f *ConsoleFormatter) FormatProfile(user *clerk.User) string {
	if user == nil {
		return NotSignedIn
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Welcome, %s!\n", user.DisplayName())
	if email := user.PrimaryEmail(); email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", email)
	}
	return sb.String()
}

func branch(isLast bool) (prefix, indent string) {
	if isLast {
		return treeLast, treeLastIndent
	}
	return treeBranch, treeIndent
}

// stars renders the 0-10 vote average as a 0-5 star count
func stars(voteAverage float64) string {
	return fmt.Sprintf("%s %d", starGlyph, tmdb.Movie{VoteAverage: voteAverage}.Stars())
}

func yearOrUnknown(year string) string {
	if year == "" {
		return unknownYear
	}
	return year
}
