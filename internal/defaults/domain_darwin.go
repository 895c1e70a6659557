//go:build darwin

package defaults

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/kalambet/doughnut/internal/preference"
)

// DomainStore reads and writes a macOS user defaults domain through the
// `defaults` tool, so values are shared with the native application.
type DomainStore struct {
	domain string
}

// OpenDomain returns a store for the given defaults domain.
func OpenDomain(domain string) (*DomainStore, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, errors.New("defaults domain is empty")
	}
	return &DomainStore{domain: domain}, nil
}

func (s *DomainStore) export() (map[string]preference.Value, error) {
	out, err := exec.Command("defaults", "export", s.domain, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("reading defaults domain %s: %w", s.domain, err)
	}
	return decodeDomain(out)
}

func (s *DomainStore) Lookup(key string) (preference.Value, bool, error) {
	values, err := s.export()
	if err != nil {
		return preference.Value{}, false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *DomainStore) Put(key string, v preference.Value) error {
	encoded, err := encodePlist(v)
	if err != nil {
		return err
	}
	out, err := exec.Command("defaults", "write", s.domain, key, encoded).CombinedOutput()
	if err != nil {
		return fmt.Errorf("writing default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *DomainStore) Delete(key string) error {
	cmd := exec.Command("defaults", "delete", s.domain, key)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		// Exit status 1 means the key (or domain) does not exist.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("deleting default %s: %w, output: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *DomainStore) Keys() ([]string, error) {
	values, err := s.export()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
