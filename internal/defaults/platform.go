// Package defaults provides the platform-native settings stores preferences
// live in: the user defaults domain on macOS and a TOML file elsewhere.
package defaults

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/kalambet/doughnut/internal/preference"
)

// DefaultDomain is the defaults domain the macOS application reads.
const DefaultDomain = "com.doughnut.Doughnut"

// DefaultFilePath returns $XDG_CONFIG_HOME/doughnut/prefs.toml.
func DefaultFilePath() string {
	return filepath.Join(xdg.ConfigHome, "doughnut", "prefs.toml")
}

// Platform opens the native store: the defaults domain on macOS, the TOML
// file at path everywhere else. Empty arguments use the defaults above.
func Platform(domain, path string) (preference.Store, error) {
	if domain == "" {
		domain = DefaultDomain
	}
	if path == "" {
		path = DefaultFilePath()
	}
	return newPlatformStore(domain, path)
}
