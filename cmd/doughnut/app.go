package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/doughnut/internal/config"
	"github.com/kalambet/doughnut/internal/logging"
	"github.com/kalambet/doughnut/internal/preference"
)

// app carries the resolved configuration and the lazily opened store for
// one CLI invocation.
type app struct {
	// persistent flags
	configPath string
	backend    string
	storePath  string
	logLevel   string

	lookupEnv func(string) (string, bool)
	musicDir  func() string
	tempDir   func() string
	dataDir   string
	keychain  config.Keychain

	cfg       config.Config
	logger    *slog.Logger
	store     preference.Store
	prefs     *preference.Preferences
	closeFunc func() error
}

func newApp() *app {
	return &app{
		lookupEnv: os.LookupEnv,
		dataDir:   config.DataDir(),
		keychain:  config.SystemKeychain{},
	}
}

// init loads configuration and applies flag overrides on top of it.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.storePath != "" {
		cfg.Store.Path = a.storePath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) buildMode() (preference.BuildMode, error) {
	mode := a.cfg.Build.Mode
	if mode == "" {
		mode = buildMode
	}
	return preference.ParseBuildMode(mode)
}

// preferences opens the configured store on first use.
func (a *app) preferences() (*preference.Preferences, error) {
	if a.prefs != nil {
		return a.prefs, nil
	}
	mode, err := a.buildMode()
	if err != nil {
		return nil, err
	}
	store, closeFunc, err := openStore(a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", a.cfg.Store.Backend, err)
	}
	a.store = store
	a.closeFunc = closeFunc
	a.prefs = preference.New(store, preference.Options{
		Mode:      mode,
		Logger:    a.logger,
		LookupEnv: a.lookupEnv,
		TempDir:   a.tempDir,
		MusicDir:  a.musicDir,
	})
	a.logger.Debug("preferences opened", "backend", a.cfg.Store.Backend, "mode", string(mode))
	return a.prefs, nil
}

func (a *app) close() {
	if a.closeFunc == nil {
		return
	}
	if err := a.closeFunc(); err != nil {
		slog.Warn("closing store", "error", err)
	}
	a.closeFunc = nil
}
