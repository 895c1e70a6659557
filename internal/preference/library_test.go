package preference

import (
	"os"
	"path/filepath"
	"testing"
)

func requireDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected directory at %s: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", path)
	}
}

func requireMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected nothing at %s, stat error = %v", path, err)
	}
}

func TestLibraryPath_TestEnvironment(t *testing.T) {
	for _, mode := range []BuildMode{BuildDebug, BuildRelease} {
		t.Run(string(mode), func(t *testing.T) {
			p, _, env := newTestPreferences(t, mode)
			env.vars["TEST"] = "1"
			if err := p.SetLibraryPath("/custom/path"); err != nil {
				t.Fatalf("SetLibraryPath: %v", err)
			}

			got, ok := p.LibraryPath()
			if !ok {
				t.Fatal("LibraryPath returned false under TEST")
			}
			want := filepath.Join(env.tempDir, "Doughnut_test")
			if got != want {
				t.Errorf("LibraryPath = %q, want %q", got, want)
			}
			requireDir(t, want)
		})
	}
}

func TestLibraryPath_Debug(t *testing.T) {
	p, _, env := newTestPreferences(t, BuildDebug)

	got, ok := p.LibraryPath()
	if !ok {
		t.Fatal("LibraryPath returned false in debug mode")
	}
	want := filepath.Join(env.musicDir, "Doughnut_dev")
	if got != want {
		t.Errorf("LibraryPath = %q, want %q", got, want)
	}
	requireDir(t, want)
}

func TestLibraryPath_ReleaseUnset(t *testing.T) {
	p, _, env := newTestPreferences(t, BuildRelease)

	got, ok := p.LibraryPath()
	if ok || got != "" {
		t.Errorf("LibraryPath = %q, %v, want empty, false", got, ok)
	}
	requireMissing(t, filepath.Join(env.musicDir, "Doughnut"))
	requireMissing(t, filepath.Join(env.musicDir, "Doughnut_dev"))
}

func TestLibraryPath_ReleaseDefaultIsCreated(t *testing.T) {
	p, _, env := newTestPreferences(t, BuildRelease)
	def := filepath.Join(env.musicDir, "Doughnut")
	if err := p.SetLibraryPath(def); err != nil {
		t.Fatalf("SetLibraryPath: %v", err)
	}
	requireMissing(t, def)

	got, ok := p.LibraryPath()
	if !ok || got != def {
		t.Fatalf("LibraryPath = %q, %v, want %q, true", got, ok, def)
	}
	requireDir(t, def)

	// Second resolution stays quiet once the directory exists.
	if got, ok := p.LibraryPath(); !ok || got != def {
		t.Errorf("second LibraryPath = %q, %v", got, ok)
	}
}

func TestLibraryPath_ReleaseDefaultStoredAsString(t *testing.T) {
	p, _, env := newTestPreferences(t, BuildRelease)
	def := filepath.Join(env.musicDir, "Doughnut")
	if err := p.SetString(LibraryPath, def); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	got, ok := p.LibraryPath()
	if !ok || got != def {
		t.Fatalf("LibraryPath = %q, %v, want %q, true", got, ok, def)
	}
	requireDir(t, def)
}

func TestLibraryPath_ReleaseCustomIsNotCreated(t *testing.T) {
	p, _, _ := newTestPreferences(t, BuildRelease)
	custom := filepath.Join(t.TempDir(), "custom", "path")
	if err := p.SetLibraryPath(custom); err != nil {
		t.Fatalf("SetLibraryPath: %v", err)
	}

	got, ok := p.LibraryPath()
	if !ok || got != custom {
		t.Fatalf("LibraryPath = %q, %v, want %q, true", got, ok, custom)
	}
	requireMissing(t, custom)
}

func TestCreateLibraryIfNotExists_Idempotent(t *testing.T) {
	p, _, _ := newTestPreferences(t, BuildRelease)
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	p.CreateLibraryIfNotExists(dir)
	requireDir(t, dir)
	p.CreateLibraryIfNotExists(dir)
	requireDir(t, dir)
}

func TestCreateLibraryIfNotExists_FailureIsSwallowed(t *testing.T) {
	p, _, _ := newTestPreferences(t, BuildRelease)
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// A regular file in the way makes MkdirAll fail; the call must not panic.
	p.CreateLibraryIfNotExists(filepath.Join(file, "library"))
	if info, err := os.Stat(filepath.Join(file, "library")); err == nil && info.IsDir() {
		t.Error("library directory created beneath a regular file")
	}
}

func TestDefaultTable(t *testing.T) {
	music := t.TempDir()
	defaults := DefaultTable(music)

	u, ok := defaults[LibraryPath].AsURL()
	if !ok {
		t.Fatal("library default is not a URL")
	}
	if got, want := urlPath(u), filepath.Join(music, "Doughnut"); got != want {
		t.Errorf("library default = %q, want %q", got, want)
	}
	for key, want := range map[Key]int64{ReloadFrequency: 60, SkipBackDuration: 30, SkipForwardDuration: 30} {
		if got := defaults[key].AsInt(); got != want {
			t.Errorf("default %s = %d, want %d", key, got, want)
		}
	}
	if _, ok := defaults[Volume]; ok {
		t.Error("volume has a default, want none")
	}
}
