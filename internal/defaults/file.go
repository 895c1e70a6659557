package defaults

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/kalambet/doughnut/internal/preference"
)

// FileStore keeps preferences in a TOML file. Every key is a table holding
// the value's type and its encoded value:
//
//	[reloadFrequency]
//	type = "integer"
//	value = 60
//
// Writes hold an exclusive lock on <path>.lock and merge with whatever is on
// disk, so several processes can share one file.
type FileStore struct {
	path string
	lock *flock.Flock

	mu   sync.RWMutex
	data map[string]preference.Value
}

// OpenFile loads the store at path. A missing file is an empty store; an
// unreadable or unparsable one is logged and treated as empty.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("preferences file path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve preferences path: %w", err)
	}
	s := &FileStore{
		path: abs,
		lock: flock.New(abs + ".lock"),
		data: make(map[string]preference.Value),
	}
	s.Reload()
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Lookup(key string) (preference.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Put(key string, v preference.Value) error {
	return s.update(func(data map[string]preference.Value) {
		data[key] = v
	})
}

func (s *FileStore) Delete(key string) error {
	return s.update(func(data map[string]preference.Value) {
		delete(data, key)
	})
}

func (s *FileStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Reload replaces the in-memory view with the file's current contents.
func (s *FileStore) Reload() {
	data, err := readFile(s.path)
	if err != nil {
		slog.Warn("could not read preferences file, using empty preferences", "path", s.path, "error", err)
		data = make(map[string]preference.Value)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

// Watch reloads the store whenever the file changes on disk, calling onChange
// (if set) after each reload. It returns when ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched because writes replace the file by rename.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			s.Reload()
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("preferences watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *FileStore) update(apply func(map[string]preference.Value)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking preferences: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := readFile(s.path)
	if err != nil {
		// Keep what we have rather than wiping the file.
		slog.Warn("could not re-read preferences file before write", "path", s.path, "error", err)
		data = make(map[string]preference.Value, len(s.data))
		for k, v := range s.data {
			data[k] = v
		}
	}
	apply(data)

	if err := writeFile(s.path, data); err != nil {
		return err
	}
	s.data = data
	return nil
}

func readFile(path string) (map[string]preference.Value, error) {
	data := make(map[string]preference.Value)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	for key, item := range doc {
		entry, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping malformed preference", "key", key)
			continue
		}
		v, err := preference.FromEntry(entry)
		if err != nil {
			slog.Warn("skipping malformed preference", "key", key, "error", err)
			continue
		}
		data[key] = v
	}
	return data, nil
}

func writeFile(path string, data map[string]preference.Value) error {
	doc := make(map[string]any, len(data))
	for k, v := range data {
		if entry := v.Entry(); entry != nil {
			doc[k] = entry
		}
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
