package preference

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned when a name does not match any declared Key.
var ErrUnknownKey = errors.New("unknown preference key")

// Key identifies a single stored preference. Keys can only be declared in
// this package; callers pick from the set below.
type Key struct {
	name string
}

func (k Key) String() string { return k.name }

var (
	// Library
	LibraryPath     = Key{"libraryPath"}
	ReloadFrequency = Key{"reloadFrequency"}

	// Playback
	SkipForwardDuration = Key{"skipForwardDuration"}
	SkipBackDuration    = Key{"skipBackDuration"}
	Volume              = Key{"Volume"}
)

var allKeys = []Key{
	LibraryPath,
	ReloadFrequency,
	SkipForwardDuration,
	SkipBackDuration,
	Volume,
}

// Keys returns every declared key in declaration order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// ParseKey resolves a raw name against the declared keys.
func ParseKey(name string) (Key, error) {
	for _, k := range allKeys {
		if k.name == name {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}
