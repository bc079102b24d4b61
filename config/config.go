package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from file. Without an explicit path the
// standard locations are searched and a missing file leaves the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".reelbox"))
		}

		// Check /etc
		v.AddConfigPath("/etc/reelbox/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Session.Path = expandHome(cfg.Session.Path)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Appwrite defaults
	v.SetDefault("appwrite.endpoint", "https://cloud.appwrite.io/v1")

	// Store defaults
	v.SetDefault("store.backend", BackendAppwrite)
	v.SetDefault("store.mongo.database", "reelbox")

	// TMDB defaults
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("catalog.cache.ttl", time.Hour)

	// Search defaults
	v.SetDefault("search.debounce", time.Second)
	v.SetDefault("search.trending_limit", 5)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("session.path", "~/.reelbox/session.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case BackendAppwrite, BackendMemory:
	case BackendMongo:
		if cfg.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required for the mongo backend")
		}
		if cfg.Store.Mongo.Database == "" {
			return fmt.Errorf("store.mongo.database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'appwrite', 'mongo' or 'memory')", cfg.Store.Backend)
	}

	if cfg.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative")
	}
	if cfg.Search.TrendingLimit <= 0 {
		return fmt.Errorf("search.trending_limit must be positive")
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if cfg.Catalog.Cache.RedisAddr != "" && cfg.Catalog.Cache.TTL <= 0 {
		return fmt.Errorf("catalog.cache.ttl must be positive when a cache is configured")
	}
	if cfg.Session.Path == "" {
		return fmt.Errorf("session.path is required")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
