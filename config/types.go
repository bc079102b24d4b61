package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Appwrite AppwriteConfig `mapstructure:"appwrite"`
	Store    StoreConfig    `mapstructure:"store"`
	TMDB     TMDBConfig     `mapstructure:"tmdb"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Search   SearchConfig   `mapstructure:"search"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppwriteConfig holds Appwrite API connection details. Project, database
// and collection ids come from the environment.
type AppwriteConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	JWT      string `mapstructure:"jwt"`
}

// Store backends
const (
	BackendAppwrite = "appwrite"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// StoreConfig selects where search counts and bookmarks are kept
type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Mongo   MongoConfig `mapstructure:"mongo"`
}

// MongoConfig holds MongoDB connection details
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// TMDBConfig holds TMDB API locations. The token comes from the environment.
type TMDBConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
}

// CatalogConfig contains catalog caching settings
type CatalogConfig struct {
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig configures the optional Redis cache for movie details
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// SearchConfig contains search screen settings
type SearchConfig struct {
	Debounce      time.Duration `mapstructure:"debounce"`
	TrendingLimit int           `mapstructure:"trending_limit"`
}

// HTTPConfig contains settings shared by every API client
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig contains session persistence settings
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}
