package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitializeDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	require.NoError(t, Initialize())
	require.Equal(t, "oatdb.sqlite3", DatabaseURL())
	require.False(t, LoadSeedData())
	require.Equal(t, "30s", GetString("solver.timeout"))
}

func TestInitializeReadsProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".oatdb"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".oatdb", "config.yaml"),
		[]byte("database-url: \"postgres://example\"\n"), 0o644))

	restore := chdir(t, dir)
	defer restore()

	require.NoError(t, Initialize())
	require.Equal(t, "postgres://example", DatabaseURL())
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	t.Setenv("OATDB_DATABASE_URL", "sqlite://from-env")
	require.NoError(t, Initialize())
	require.Equal(t, "sqlite://from-env", DatabaseURL())
}

func TestWatchInvokesCallbackOnConfigFileRewrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".oatdb"), 0o755))
	configPath := filepath.Join(dir, ".oatdb", "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database-url: \"sqlite://original\"\n"), 0o644))

	restore := chdir(t, dir)
	defer restore()

	require.NoError(t, Initialize())
	require.Equal(t, "sqlite://original", DatabaseURL())

	changed := make(chan struct{}, 1)
	stop, err := Watch(func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(configPath, []byte("database-url: \"sqlite://updated\"\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not invoke onChange after config file rewrite")
	}
	require.Equal(t, "sqlite://updated", DatabaseURL())
}

func TestWatchIsNoopWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	require.NoError(t, Initialize())
	stop, err := Watch(func() { t.Fatal("onChange should never fire without a config file") })
	require.NoError(t, err)
	require.NoError(t, stop())
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}
