package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/reelbox/analytics"
	"github.com/s0up4200/reelbox/clerk"
	"github.com/s0up4200/reelbox/config"
	"github.com/s0up4200/reelbox/docstore"
	"github.com/s0up4200/reelbox/docstore/appwrite"
	"github.com/s0up4200/reelbox/docstore/memstore"
	"github.com/s0up4200/reelbox/docstore/mongostore"
	"github.com/s0up4200/reelbox/saved"
	"github.com/s0up4200/reelbox/session"
	"github.com/s0up4200/reelbox/tmdb"
	"github.com/s0up4200/reelbox/views"
)

var (
	cfgFile   string
	envFile   string
	cfg       *config.Config
	env       *config.Environment
	logger    zerolog.Logger
	formatter *views.ConsoleFormatter

	catalog        *tmdb.Client
	catalogCache   *tmdb.RedisCache
	store          docstore.Store
	appwriteClient *appwrite.Client
	mongoStore     *mongostore.Store
	tracker        *analytics.Tracker
	identity       *clerk.Client
	tokens         *session.TokenCache
	sessions       *session.Manager

	// Command flags
	showDetails bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reelbox",
	Short: "Search movies, keep a watchlist and see what others search for",
	Long: `reelbox is a CLI movie browser backed by TMDB. Search the catalog,
bookmark movies to your saved list, browse trending searches and manage
your account.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// SetVersion records build information shown by --version
func SetVersion(version, buildTime string) {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with the REELBOX_* variables (default is ./.env)")

	rootCmd.AddCommand(testCmd)

	// finalizers run even when a command fails, unlike post-run hooks
	cobra.OnFinalize(shutdownApp)
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	var dotenv []string
	if envFile != "" {
		dotenv = append(dotenv, envFile)
	}
	env, err = config.LoadEnv(dotenv...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := setupCatalog(ctx); err != nil {
		return err
	}

	if err := setupStore(ctx); err != nil {
		return err
	}

	tracker = analytics.NewTracker(store, env.AppwriteCollectionID, logger,
		analytics.WithTrendingLimit(cfg.Search.TrendingLimit),
		analytics.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
	)

	tokens, err = session.OpenTokenCache(cfg.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to open session cache: %w", err)
	}

	clientToken, _, err := tokens.Get(ctx, session.KeyClientToken)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read cached client token")
	}

	identity, err = clerk.NewClient(env.ClerkPublishableKey, logger,
		clerk.WithTimeout(cfg.HTTP.Timeout),
		clerk.WithClientToken(clientToken),
	)
	if err != nil {
		return fmt.Errorf("failed to create Clerk client: %w", err)
	}

	sessions = session.NewManager(identity, tokens, newSavedStore, logger)
	if _, err := sessions.Resume(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to resume session, continuing signed out")
	}

	formatter = views.NewConsoleFormatter(cfg.TMDB.ImageBaseURL)
	return nil
}

func setupCatalog(ctx context.Context) error {
	opts := []tmdb.Option{
		tmdb.WithTimeout(cfg.HTTP.Timeout),
		tmdb.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
	}

	if c := cfg.Catalog.Cache; c.RedisAddr != "" {
		cache, err := tmdb.NewRedisCache(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Str("addr", c.RedisAddr).Msg("Failed to connect to catalog cache, continuing without it")
		} else {
			catalogCache = cache
			opts = append(opts, tmdb.WithCache(cache, c.TTL))
			logger.Debug().Str("addr", c.RedisAddr).Msg("Catalog cache enabled")
		}
	}

	var err error
	catalog, err = tmdb.NewClient(cfg.TMDB.BaseURL, env.TMDBAPIKey, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create TMDB client: %w", err)
	}
	return nil
}

func setupStore(ctx context.Context) error {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		s, err := mongostore.Connect(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		mongoStore = s
		store = s
	case config.BackendMemory:
		logger.Warn().Msg("Using the in-memory store, nothing will be persisted")
		store = memstore.New()
	default:
		opts := []appwrite.Option{appwrite.WithTimeout(cfg.HTTP.Timeout)}
		if cfg.Appwrite.APIKey != "" {
			opts = append(opts, appwrite.WithAPIKey(cfg.Appwrite.APIKey))
		}
		if cfg.Appwrite.JWT != "" {
			opts = append(opts, appwrite.WithJWT(cfg.Appwrite.JWT))
		}
		c, err := appwrite.NewClient(cfg.Appwrite.Endpoint, env.AppwriteProjectID, env.AppwriteDatabaseID, logger, opts...)
		if err != nil {
			return fmt.Errorf("failed to create Appwrite client: %w", err)
		}
		appwriteClient = c
		store = c
	}

	logger.Debug().Str("backend", cfg.Store.Backend).Msg("Document store ready")
	return nil
}

// savedRepository returns the bookmark repository of userID, or the
// signed-out one for ""
func savedRepository(userID string) *saved.Repository {
	opts := []saved.RepositoryOption{saved.WithImageBaseURL(cfg.TMDB.ImageBaseURL)}
	if userID != "" {
		opts = append(opts, saved.WithOwner(userID))
	}
	return saved.NewRepository(store, env.AppwriteSavedCollectionID, logger, opts...)
}

func newSavedStore(userID string) *saved.Store {
	return saved.NewStore(savedRepository(userID), logger)
}

// shutdownApp releases everything initializeApp opened. It is safe to call
// more than once.
func shutdownApp() {
	if sessions != nil {
		sessions.Close()
		sessions = nil
	}
	if tokens != nil {
		if err := tokens.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close session cache")
		}
		tokens = nil
	}
	if catalogCache != nil {
		if err := catalogCache.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close catalog cache")
		}
		catalogCache = nil
	}
	if mongoStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoStore.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
		mongoStore = nil
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}

	if cfg.Format == "json" {
		return zerolog.New(out).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !useColor(cfg, out),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// useColor reports whether console output should be colored. Files and
// redirected stderr never are.
func useColor(cfg config.LoggingConfig, out io.Writer) bool {
	if !cfg.Color {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connections to TMDB, the document store and Clerk",
	Long:  `Test the connection to every remote service reelbox depends on.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	failed := 0

	check := func(name string, fn func() error) {
		fmt.Printf("Testing connection to %s...\n", name)
		if err := fn(); err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n\n", name, err)
			return
		}
		fmt.Printf("✓ %s connection successful!\n\n", name)
	}

	check("TMDB", func() error { return catalog.TestConnection(ctx) })

	switch {
	case appwriteClient != nil:
		check("Appwrite", func() error {
			return appwriteClient.TestConnection(ctx, env.AppwriteCollectionID)
		})
	case mongoStore != nil:
		check("MongoDB", func() error {
			_, err := mongoStore.List(ctx, env.AppwriteCollectionID, docstore.Limit(1))
			return err
		})
	default:
		fmt.Println("Document store: in-memory")
		fmt.Println()
	}

	check("Clerk", func() error { return identity.TestConnection(ctx) })

	fmt.Printf("Session: %s\n", boolToStatus(sessions.SignedIn(), "signed in", "signed out"))
	if catalogCache != nil {
		fmt.Println("Catalog cache: Enabled")
	} else {
		fmt.Println("Catalog cache: Disabled")
	}

	if failed > 0 {
		return fmt.Errorf("%d connection check(s) failed", failed)
	}
	return nil
}

func boolToStatus(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
