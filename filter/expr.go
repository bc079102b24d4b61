// Package filter selects saved movies with expr-lang expressions such as
//
//	rating >= 7 and year >= 2010
//	contains(title, "dune") or savedWithin("30d")
//	hasGenre("Science Fiction") and runtime < 120
//
// Compiled expressions are cached by their text.
package filter

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/reelbox/saved"
)

// DefaultCacheSize is the number of compiled expressions kept by default
const DefaultCacheSize = 64

// Filter is a compiled expression ready for evaluation
type Filter struct {
	expression string
	program    *vm.Program
	now        func() time.Time
}

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache sets how many compiled expressions are cached. Zero disables caching.
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache[*Filter](size)
		} else {
			c.cache = nil
		}
	}
}

// WithClock sets the time source used by date helpers
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) {
		if now != nil {
			c.now = now
		}
	}
}

// Compiler compiles filter expressions
type Compiler struct {
	cache *lruCache[*Filter]
	now   func() time.Time
}

// NewCompiler creates a Compiler with a DefaultCacheSize cache
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		cache: newLRUCache[*Filter](DefaultCacheSize),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles expression. Unknown names and non-boolean results are
// rejected here rather than at evaluation time.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(saved.Record{}, c.now())),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &Filter{
		expression: expression,
		program:    program,
		now:        c.now,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}
	return filter, nil
}

// Clear removes all cached filters
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *Compiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Expression returns the original expression
func (f *Filter) Expression() string {
	return f.expression
}

// Evaluate reports whether record matches
func (f *Filter) Evaluate(record saved.Record) (bool, error) {
	result, err := expr.Run(f.program, newEnvironment(record, f.now()))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			MovieTitle: record.Title,
			Err:        err,
		}
	}
	return result.(bool), nil
}

// Apply returns the matching records in their original order. Records the
// expression fails on are returned in skipped instead.
func (f *Filter) Apply(records []saved.Record) (matched []saved.Record, skipped []error) {
	for _, r := range records {
		ok, err := f.Evaluate(r)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, skipped
}

// newEnvironment exposes record and the helper functions to an expression
func newEnvironment(record saved.Record, now time.Time) map[string]any {
	env := make(map[string]any, 32)
	maps.Copy(env, helperFunctions(now))

	year, _ := strconv.Atoi(yearOf(record.ReleaseDate))
	env["title"] = record.Title
	env["rating"] = record.VoteAverage
	env["stars"] = int(record.VoteAverage/2 + 0.5)
	env["year"] = year
	env["releaseDate"] = record.ReleaseDate
	env["movieId"] = record.MovieID
	env["savedAt"] = record.CreatedAt

	var (
		runtime int
		genres  []string
		tagline string
	)
	if record.Details != nil {
		runtime = record.Details.Runtime
		genres = record.Details.GenreNames()
		tagline = record.Details.Tagline
	}
	env["runtime"] = runtime
	env["genres"] = genres
	env["tagline"] = tagline
	env["hasDetails"] = record.Details != nil

	env["savedWithin"] = func(age string) bool {
		d, err := parseAge(age)
		if err != nil {
			return false
		}
		return !record.CreatedAt.IsZero() && now.Sub(record.CreatedAt) <= d
	}
	env["hasGenre"] = func(name string) bool {
		return slices.ContainsFunc(genres, func(g string) bool { return strings.EqualFold(g, name) })
	}
	return env
}

// helperFunctions are the record-independent helpers
func helperFunctions(now time.Time) map[string]any {
	return map[string]any{
		"daysSince": func(t time.Time) int {
			return int(now.Sub(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return now.AddDate(0, 0, -days)
		},
		"parseDate": func(dateStr string) time.Time {
			t, _ := time.Parse(time.DateOnly, dateStr)
			return t
		},
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"now":   func() time.Time { return now },
	}
}

// parseAge accepts Go durations plus day ("30d") and week ("2w") suffixes
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if n, ok := strings.CutSuffix(s, suffix); ok {
			v, err := strconv.Atoi(n)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid age %q", s)
			}
			return time.Duration(v) * unit, nil
		}
	}
	return time.ParseDuration(s)
}

func yearOf(releaseDate string) string {
	if len(releaseDate) < 4 {
		return ""
	}
	return releaseDate[:4]
}
