package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Store  StoreConfig
	Server ServerConfig
	Log    LogConfig
	Build  BuildConfig
}

// StoreConfig selects where preferences live. Path is the TOML file for the
// file backend and the data directory for sqlite; empty means the default.
type StoreConfig struct {
	Backend string
	Path    string
	Domain  string
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

// BuildConfig overrides the build mode compiled into the binary when Mode
// is non-empty.
type BuildConfig struct {
	Mode string
}

const (
	BackendPlatform = "platform"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

func defaults() Config {
	return Config{
		Store:  StoreConfig{Backend: BackendPlatform},
		Server: ServerConfig{Port: 4100},
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/doughnut/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "doughnut", "config.toml")
}

// DataDir is where the sqlite backend keeps its database by default.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "doughnut")
}

// Load reads configuration from the TOML file at path (DefaultPath when
// empty), then applies DOUGHNUT_* environment overrides. A missing file is
// not an error; a malformed one is.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	return loadFromPath(path, os.LookupEnv)
}

func loadFromPath(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := defaults()

	doc, err := readDoc(path)
	if err != nil {
		return Config{}, err
	}
	if err := applyFile(&cfg, doc); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg, lookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readDoc(path string) (map[string]any, error) {
	doc := make(map[string]any)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return doc, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendPlatform, BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid store.backend %q: want platform, file, sqlite or memory", c.Store.Backend)
	}
	switch c.Build.Mode {
	case "", "debug", "release":
	default:
		return fmt.Errorf("invalid build.mode %q: want debug or release", c.Build.Mode)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
