//go:build !darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

var errNoCredential = errors.New("credential not found")

// credentialsPath is swapped out by tests.
var credentialsPath = func() string {
	return filepath.Join(xdg.DataHome, "doughnut", "credentials.toml")
}

type credential struct {
	Service string `toml:"service"`
	Account string `toml:"account"`
	Value   string `toml:"value"`
}

type credentialsFile struct {
	Credentials []credential `toml:"credential"`
}

func (f *credentialsFile) find(service, account string) int {
	for i, c := range f.Credentials {
		if c.Service == service && c.Account == account {
			return i
		}
	}
	return -1
}

func readCredentials(path string) (credentialsFile, error) {
	var f credentialsFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := toml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

func keychainGet(service, account string) ([]byte, error) {
	path := credentialsPath()
	f, err := readCredentials(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", service, account, errNoCredential)
	}
	if err != nil {
		return nil, err
	}
	i := f.find(service, account)
	if i < 0 {
		return nil, fmt.Errorf("%s/%s: %w", service, account, errNoCredential)
	}
	return []byte(f.Credentials[i].Value), nil
}

func keychainSet(service, account, value string) error {
	path := credentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking credentials: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := readCredentials(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// An unreadable file is replaced rather than merged into.
		f = credentialsFile{}
	}
	if i := f.find(service, account); i >= 0 {
		f.Credentials[i].Value = value
	} else {
		f.Credentials = append(f.Credentials, credential{Service: service, Account: account, Value: value})
	}

	out, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
