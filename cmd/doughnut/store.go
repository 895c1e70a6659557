package main

import (
	"fmt"

	"github.com/kalambet/doughnut/internal/config"
	"github.com/kalambet/doughnut/internal/defaults"
	"github.com/kalambet/doughnut/internal/preference"
	"github.com/kalambet/doughnut/internal/storage"
)

func noopClose() error { return nil }

// openStore opens the backend cfg names. The returned func releases it.
func openStore(cfg config.StoreConfig) (preference.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return preference.NewMemoryStore(), noopClose, nil
	case config.BackendFile:
		path := cfg.Path
		if path == "" {
			path = defaults.DefaultFilePath()
		}
		s, err := defaults.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		return s, noopClose, nil
	case config.BackendSQLite:
		dir := cfg.Path
		if dir == "" {
			dir = config.DataDir()
		}
		s, err := storage.Open(dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendPlatform, "":
		s, err := defaults.Platform(cfg.Domain, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noopClose, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
