package applog

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToStderrHandler(t *testing.T) {
	logger, closer, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NoError(t, closer.Close())
}

func TestNewJSONHandlerRoutesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	logger, closer, err := New(Options{FilePath: path, JSON: true, Level: slog.LevelDebug})
	require.NoError(t, err)
	logger.Info("hello", "key", "value")
	require.NoError(t, closer.Close())
}

func TestOrDefault(t *testing.T) {
	require.Equal(t, 5, orDefault(0, 5))
	require.Equal(t, 10, orDefault(10, 5))
}
