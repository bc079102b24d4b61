package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment holds the identifiers and credentials that must be supplied
// through environment variables
type Environment struct {
	AppwriteProjectID         string `env:"REELBOX_APPWRITE_PROJECT_ID,required,notEmpty"`
	AppwriteDatabaseID        string `env:"REELBOX_APPWRITE_DATABASE_ID,required,notEmpty"`
	AppwriteCollectionID      string `env:"REELBOX_APPWRITE_COLLECTION_ID,required,notEmpty"`
	AppwriteSavedCollectionID string `env:"REELBOX_APPWRITE_SAVED_COLLECTION_ID,required,notEmpty"`
	ClerkPublishableKey       string `env:"REELBOX_CLERK_PUBLISHABLE_KEY,required,notEmpty"`
	TMDBAPIKey                string `env:"REELBOX_TMDB_API_KEY,required,notEmpty"`
}

// MissingEnvError lists every required variable that is unset or empty
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// LoadEnv loads .env files, if present, then parses the process environment.
// Variables already set in the process win over .env values.
func LoadEnv(dotenvFiles ...string) (*Environment, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parseEnvironment(env.Options{})
}

func parseEnvironment(opts env.Options) (*Environment, error) {
	var e Environment
	err := env.ParseWithOptions(&e, opts)
	if err == nil {
		return &e, nil
	}

	var missing []string
	var agg env.AggregateError
	if errors.As(err, &agg) {
		for _, fieldErr := range agg.Errors {
			var notSet env.EnvVarIsNotSetError
			var empty env.EmptyEnvVarError
			switch {
			case errors.As(fieldErr, &notSet):
				missing = append(missing, notSet.Key)
			case errors.As(fieldErr, &empty):
				missing = append(missing, empty.Key)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &MissingEnvError{Keys: missing}
	}
	return nil, fmt.Errorf("parse env: %w", err)
}
