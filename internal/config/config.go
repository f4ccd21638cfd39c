// Package config loads this repository's layered configuration: a
// config.yaml walked up from the working directory to a project config
// dir and then $XDG_CONFIG_HOME/home, overridden by OATDB_*-prefixed
// environment variables, with an optional fsnotify watcher for hot
// reload.
//
// Grounded directly on BeadsLog internal/config/config.go: same
// viper.New() singleton, same walk-up-then-XDG-then-home config file
// search, same SetEnvPrefix/SetEnvKeyReplacer(".", "-", "_") pattern —
// retargeted from BD_*/.beads/config.yaml to OATDB_*/.oatdb/config.yaml
// and from issue-tracker knobs (routing, hierarchy, devlog) to this
// domain's knobs: the DATABASE_URL/LOAD_SEED_DATA spec.md section 6
// calls out as external, plus solver tuning and working-commit cache
// TTL.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be
// called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD to find project .oatdb/config.yaml, so
	// commands work from any subdirectory.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".oatdb", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/oatdb/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "oatdb", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.oatdb/config.yaml).
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".oatdb", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("OATDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// External knobs spec.md section 6 names at the reference entry
	// point (not part of the core contract).
	v.SetDefault("database-url", "")
	v.SetDefault("load-seed-data", false)

	// Working-commit cache TTL (spec.md section 4.3's nominal 1h).
	v.SetDefault("cache.ttl", "1h")

	// Solver tuning.
	v.SetDefault("solver.timeout", "30s")
	v.SetDefault("solver.default-objective-direction", "minimize")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// Watch starts an fsnotify watcher on the loaded config file (a no-op if
// no config file was found) and invokes onChange whenever it's rewritten
// on disk, matching BeadsLog's daemon config-reload usage of fsnotify.
// The caller owns stopping the watch via the returned io.Closer-shaped
// stop function.
func Watch(onChange func()) (func() error, error) {
	if v == nil || v.ConfigFileUsed() == "" {
		return func() error { return nil }, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	path := v.ConfigFileUsed()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == filepath.Clean(path) &&
					(event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					if err := v.ReadInConfig(); err == nil && onChange != nil {
						onChange()
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}

// fileConfig mirrors the keys Initialize defaults so WriteDefault can
// emit a starter config.yaml independent of viper, the same split
// BeadsLog's credentials.go uses between viper-driven env/flag
// overrides and a plain yaml.Marshal'd file for the values a user is
// expected to hand-edit.
type fileConfig struct {
	DatabaseURL  string `yaml:"database-url"`
	LoadSeedData bool   `yaml:"load-seed-data"`
	Cache        struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Solver struct {
		Timeout                  string `yaml:"timeout"`
		DefaultObjectiveDirection string `yaml:"default-objective-direction"`
	} `yaml:"solver"`
}

// WriteDefault writes a starter config.yaml at path with this package's
// default values, failing if a file already exists there. Used by the
// `oatdb config init` CLI command.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	cfg := fileConfig{
		DatabaseURL:  "oatdb.sqlite3",
		LoadSeedData: false,
	}
	cfg.Cache.TTL = "1h"
	cfg.Solver.Timeout = "30s"
	cfg.Solver.DefaultObjectiveDirection = "minimize"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value, overriding whatever the file/env
// supplied — used by cmd/oatdb flags that should win over config.yaml.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every configuration setting as a map, used by the
// `oatdb config show` CLI command.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// DatabaseURL is the external persistence connection string (spec.md
// section 6): either the OATDB_DATABASE_URL env var, config.yaml's
// database-url key, or a local file fallback.
func DatabaseURL() string {
	if u := GetString("database-url"); u != "" {
		return u
	}
	return "oatdb.sqlite3"
}

// LoadSeedData reports whether the reference entry point should load
// seed data on startup (spec.md section 6).
func LoadSeedData() bool { return GetBool("load-seed-data") }

// CacheTTL is the working-commit cache entry lifetime (spec.md section
// 4.3).
func CacheTTL() time.Duration {
	if d := GetDuration("cache.ttl"); d > 0 {
		return d
	}
	return time.Hour
}

// SolverTimeout returns the configured solver.timeout (default 30s).
// Nothing in this module applies it to a solve: a solve stops early only
// when its context is done or the ilp search-node limit is reached.
func SolverTimeout() time.Duration {
	if d := GetDuration("solver.timeout"); d > 0 {
		return d
	}
	return 30 * time.Second
}
