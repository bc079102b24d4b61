package cmd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelbox/session"
)

func TestShutdownRunsWhenCommandFails(t *testing.T) {
	cache, err := session.OpenTokenCache(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)

	prevTokens, prevLogger := tokens, logger
	failing := &cobra.Command{
		Use: "always-fails",
		// replaces initializeApp for this command only
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = zerolog.Nop()
			tokens = cache
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("boom")
		},
	}
	rootCmd.AddCommand(failing)
	rootCmd.SetArgs([]string{"always-fails"})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.RemoveCommand(failing)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		tokens, logger = prevTokens, prevLogger
	})

	err = rootCmd.Execute()
	assert.EqualError(t, err, "boom")

	assert.Nil(t, tokens, "finalizer released the session cache")
	_, _, err = cache.Get(context.Background(), session.KeyClientToken)
	assert.Error(t, err, "closed cache rejects reads")
}

func TestShutdownAppIsIdempotent(t *testing.T) {
	cache, err := session.OpenTokenCache(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)

	prevTokens, prevLogger := tokens, logger
	t.Cleanup(func() { tokens, logger = prevTokens, prevLogger })
	tokens, logger = cache, zerolog.Nop()

	shutdownApp()
	assert.NotPanics(t, shutdownApp)
	assert.Nil(t, tokens)
}
