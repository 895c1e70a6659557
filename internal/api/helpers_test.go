package api

import (
	"path/filepath"
	"testing"

	"github.com/kalambet/doughnut/internal/logging"
	"github.com/kalambet/doughnut/internal/preference"
)

const testToken = "test-token"

type testPrefs struct {
	prefs *preference.Preferences
	store *preference.MemoryStore
	music string
	temp  string
}

func newTestPrefs(t *testing.T, mode preference.BuildMode) testPrefs {
	t.Helper()
	root := t.TempDir()
	tp := testPrefs{
		store: preference.NewMemoryStore(),
		music: filepath.Join(root, "Music"),
		temp:  filepath.Join(root, "tmp"),
	}
	tp.prefs = preference.New(tp.store, preference.Options{
		Mode:      mode,
		Logger:    logging.Discard(),
		LookupEnv: func(string) (string, bool) { return "", false },
		TempDir:   func() string { return tp.temp },
		MusicDir:  func() string { return tp.music },
	})
	return tp
}
