package config

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "store.backend", typ: kString, env: "DOUGHNUT_STORE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Store.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.path", typ: kString, env: "DOUGHNUT_STORE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Store.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Path },
	},
	{
		key: "store.domain", typ: kString, env: "DOUGHNUT_STORE_DOMAIN",
		apply:   func(cfg *Config, v any) { cfg.Store.Domain = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Domain },
	},
	{
		key: "server.port", typ: kInt, env: "DOUGHNUT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "DOUGHNUT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "build.mode", typ: kString, env: "DOUGHNUT_BUILD_MODE",
		apply:   func(cfg *Config, v any) { cfg.Build.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Build.Mode },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// lookupDoc resolves a dotted key such as "server.port" in a decoded TOML document.
func lookupDoc(doc map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = doc
	for _, p := range parts {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func applyFile(cfg *Config, doc map[string]any) error {
	for _, s := range specs {
		raw, ok := lookupDoc(doc, s.key)
		if !ok {
			continue
		}
		switch s.typ {
		case kString:
			v, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%s: want a string, got %T", s.key, raw)
			}
			s.apply(cfg, v)
		case kInt:
			v, err := toInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.key, err)
			}
			s.apply(cfg, v)
		}
	}
	return nil
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("integer %d out of range", v)
		}
		return int(v), nil
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("value %v is not a valid integer", v)
		}
		return int(v), nil
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid integer: %w", err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("want an integer, got %T", raw)
}

func applyEnvOverrides(cfg *Config, lookupEnv func(string) (string, bool)) {
	for _, s := range specs {
		raw, ok := lookupEnv(s.env)
		if !ok || raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, keeping configured value", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
