package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	result := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// ValidKeys returns the list of config key names.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}

// SetKey writes key to the TOML config file at path (DefaultPath when
// empty), keeping every other setting in the file.
func SetKey(path, key, value string) error {
	if path == "" {
		path = DefaultPath()
	}
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	var v any = value
	if s.typ == kInt {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		v = int64(i)
	}

	doc, err := readDoc(path)
	if err != nil {
		return err
	}

	// Validate the result before touching the file.
	cfg := defaults()
	if err := applyFile(&cfg, doc); err != nil {
		return err
	}
	if s.typ == kInt {
		s.apply(&cfg, int(v.(int64)))
	} else {
		s.apply(&cfg, value)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	section, name, _ := strings.Cut(key, ".")
	table, ok := doc[section].(map[string]any)
	if !ok {
		table = make(map[string]any)
		doc[section] = table
	}
	table[name] = v

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, out, 0o600)
}
