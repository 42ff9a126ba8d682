package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/efpwatch/watcher"
	"github.com/screwyprof/efpwatch/watcher/config"
)

func TestConfigDefaults(t *testing.T) {
	t.Run("it provides sensible defaults without any environment", func(t *testing.T) {
		cfg := config.New()

		assert.Equal(t, "https://api.ethfollow.xyz/api/v1", cfg.EFPAPIBaseURL)
		assert.Equal(t, "file", cfg.StateBackend)
		assert.Equal(t, "state.json", cfg.StatePath)
		assert.Equal(t, 10, cfg.MaxConcurrent)
	})

	t.Run("it maps significance options onto engine thresholds", func(t *testing.T) {
		t.Setenv("SIGNIFICANT_FOLLOWER_CHANGE", "25")
		t.Setenv("SIGNIFICANT_TAG_CHANGE", "3")

		th := config.New().Thresholds()

		assert.Equal(t, 25, th.FollowerChange)
		assert.Equal(t, 5, th.FollowingChange)
		assert.Equal(t, 1, th.ListChange)
		assert.Equal(t, 3, th.TagChange)
	})
}

func TestLoadWatchlist(t *testing.T) {
	t.Parallel()

	t.Run("it preserves file order and normalizes entries", func(t *testing.T) {
		t.Parallel()

		// Arrange
		path := writeWatchlist(t, `{"watchlist":[
			"Vitalik.ETH",
			"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
			"brantly.eth"
		]}`)

		// Act
		ids, err := config.LoadWatchlist(path)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []watcher.Identifier{
			"vitalik.eth",
			"0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
			"brantly.eth",
		}, ids)
	})

	t.Run("it drops duplicate entries after normalization", func(t *testing.T) {
		t.Parallel()

		path := writeWatchlist(t, `{"watchlist":["vitalik.eth","VITALIK.eth"]}`)

		ids, err := config.LoadWatchlist(path)

		require.NoError(t, err)
		assert.Equal(t, []watcher.Identifier{"vitalik.eth"}, ids)
	})

	t.Run("it rejects a missing file", func(t *testing.T) {
		t.Parallel()

		_, err := config.LoadWatchlist(filepath.Join(t.TempDir(), "absent.json"))

		assert.ErrorIs(t, err, config.ErrWatchlistUnreadable)
	})

	t.Run("it rejects an empty watchlist", func(t *testing.T) {
		t.Parallel()

		path := writeWatchlist(t, `{"watchlist":[]}`)

		_, err := config.LoadWatchlist(path)

		assert.ErrorIs(t, err, config.ErrWatchlistInvalid)
	})

	t.Run("it rejects invalid identifiers", func(t *testing.T) {
		t.Parallel()

		path := writeWatchlist(t, `{"watchlist":["0xnothex"]}`)

		_, err := config.LoadWatchlist(path)

		assert.ErrorIs(t, err, config.ErrWatchlistInvalid)
	})
}

func writeWatchlist(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
