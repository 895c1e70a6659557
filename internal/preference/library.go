package preference

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// LibraryPath resolves the directory holding the media library.
//
// Under TEST it is <temp>/Doughnut_test, in debug builds <music>/Doughnut_dev;
// both are created on demand. Release builds return the stored libraryPath,
// or false when none is stored. A stored path is only created when it is the
// default <music>/Doughnut; a custom path is trusted to exist.
func (p *Preferences) LibraryPath() (string, bool) {
	if p.TestEnv() {
		dir := filepath.Join(p.tempDir(), testLibraryDirName)
		p.CreateLibraryIfNotExists(dir)
		return dir, true
	}
	if p.mode != BuildRelease {
		dir := filepath.Join(p.musicDir, devLibraryDirName)
		p.CreateLibraryIfNotExists(dir)
		return dir, true
	}

	u, ok := p.URL(LibraryPath)
	if !ok {
		return "", false
	}
	dir := urlPath(u)
	if def, ok := p.defaults[LibraryPath]; ok {
		if du, ok := def.AsURL(); ok && samePath(dir, urlPath(du)) {
			p.CreateLibraryIfNotExists(dir)
		}
	}
	return dir, true
}

// SetLibraryPath stores dir as the library location.
func (p *Preferences) SetLibraryPath(dir string) error {
	return p.SetURL(LibraryPath, FileURL(dir))
}

// CreateLibraryIfNotExists creates dir and any missing parents. Failures are
// logged and otherwise ignored.
func (p *Preferences) CreateLibraryIfNotExists(dir string) {
	_, err := os.Stat(dir)
	if err == nil {
		return
	}
	if !errors.Is(err, fs.ErrNotExist) {
		p.log.Warn("cannot inspect library directory", "path", dir, "error", err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.log.Warn("failed to create library directory", "path", dir, "error", err)
		return
	}
	p.log.Debug("created library directory", "path", dir)
}

// urlPath returns the local filesystem path a library URL points at.
func urlPath(u *url.URL) string {
	if u.Scheme != "" && u.Scheme != "file" {
		return u.String()
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	return filepath.FromSlash(path)
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
