package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelbox/config"
	"github.com/s0up4200/reelbox/tmdb"
)

func TestParseMovieID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "438631", want: 438631},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "dune", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMovieID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickResult(t *testing.T) {
	movies := []tmdb.Movie{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Dune: Part Two"}}

	got, err := pickResult(movies, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	_, err = pickResult(movies, 0)
	assert.Error(t, err)
	_, err = pickResult(movies, 3)
	assert.EqualError(t, err, "no result number 3 (have 2)")
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		input     string
		wantEmail string
		wantPass  string
		wantErr   bool
		prompts   []string
	}{
		{
			name:      "flags only",
			email:     "ada@example.com",
			password:  "hunter2",
			wantEmail: "ada@example.com",
			wantPass:  "hunter2",
		},
		{
			name:      "prompt for both",
			input:     " ada@example.com \nhunter2\n",
			wantEmail: "ada@example.com",
			wantPass:  "hunter2",
			prompts:   []string{"Email: ", "Password: "},
		},
		{
			name:      "prompt for password without newline",
			email:     "ada@example.com",
			input:     "hunter2",
			wantEmail: "ada@example.com",
			wantPass:  "hunter2",
			prompts:   []string{"Password: "},
		},
		{
			name:    "empty input",
			input:   "\n\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailAddress, password = tt.email, tt.password
			t.Cleanup(func() { emailAddress, password = "", "" })

			var out bytes.Buffer
			email, pass, err := credentials(strings.NewReader(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, email)
			assert.Equal(t, tt.wantPass, pass)
			for _, p := range tt.prompts {
				assert.Contains(t, out.String(), p)
			}
			if len(tt.prompts) == 0 {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "INFO", want: zerolog.InfoLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "error", want: zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setupLogger(config.LoggingConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, useColor(config.LoggingConfig{Color: true}, &buf))
	assert.False(t, useColor(config.LoggingConfig{Color: false}, &buf))
}

func TestSetupLoggerWritesToFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	path := filepath.Join(t.TempDir(), "reelbox.log")
	log := setupLogger(config.LoggingConfig{
		Level:     "info",
		Format:    "json",
		File:      path,
		MaxSizeMB: 1,
	})
	log.Info().Str("query", "dune").Msg("Searching movies")

	assert.FileExists(t, path)
}
