// Package preference is the typed accessor layer over the settings store
// Doughnut keeps its configuration in.
package preference

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/adrg/xdg"
)

// BuildMode selects how the library directory is resolved.
type BuildMode string

const (
	BuildDebug   BuildMode = "debug"
	BuildRelease BuildMode = "release"
)

// ParseBuildMode accepts "debug"/"dev" and "release". Empty means debug.
func ParseBuildMode(s string) (BuildMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "dev", "development":
		return BuildDebug, nil
	case "release":
		return BuildRelease, nil
	}
	return "", fmt.Errorf("unknown build mode %q", s)
}

// Options configures a Preferences instance. Zero fields fall back to the
// process environment.
type Options struct {
	Mode      BuildMode
	Logger    *slog.Logger
	LookupEnv func(string) (string, bool)
	TempDir   func() string
	MusicDir  func() string
}

// Preferences provides typed reads and writes over a Store.
type Preferences struct {
	store     Store
	mode      BuildMode
	log       *slog.Logger
	lookupEnv func(string) (string, bool)
	tempDir   func() string
	musicDir  string
	defaults  Defaults
}

// New wraps store. It is meant to be built once at startup and shared.
func New(store Store, opts Options) *Preferences {
	p := &Preferences{
		store:     store,
		mode:      opts.Mode,
		log:       opts.Logger,
		lookupEnv: opts.LookupEnv,
		tempDir:   opts.TempDir,
	}
	if p.mode == "" {
		p.mode = BuildDebug
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.lookupEnv == nil {
		p.lookupEnv = os.LookupEnv
	}
	if p.tempDir == nil {
		p.tempDir = os.TempDir
	}
	musicDir := defaultMusicDir
	if opts.MusicDir != nil {
		musicDir = opts.MusicDir
	}
	p.musicDir = p.resolveMusicDir(musicDir)
	p.defaults = DefaultTable(p.musicDir)
	return p
}

func (p *Preferences) Mode() BuildMode { return p.mode }

// Default returns the out-of-the-box value for key, if it has one.
func (p *Preferences) Default(key Key) (Value, bool) {
	v, ok := p.defaults[key]
	return v, ok
}

// Object returns whatever is stored for key.
func (p *Preferences) Object(key Key) (Value, bool) {
	v, ok, err := p.store.Lookup(key.String())
	if err != nil {
		p.log.Warn("preference read failed", "key", key.String(), "error", err)
		return Value{}, false
	}
	if !ok || !v.IsValid() {
		return Value{}, false
	}
	return v, true
}

func (p *Preferences) Bool(key Key) bool {
	v, _ := p.Object(key)
	return v.AsBool()
}

func (p *Preferences) Integer(key Key) int {
	v, _ := p.Object(key)
	return int(v.AsInt())
}

func (p *Preferences) Float(key Key) float32 {
	v, _ := p.Object(key)
	return v.AsFloat()
}

func (p *Preferences) Double(key Key) float64 {
	v, _ := p.Object(key)
	return v.AsDouble()
}

func (p *Preferences) String(key Key) (string, bool) {
	v, _ := p.Object(key)
	return v.AsString()
}

func (p *Preferences) StringArray(key Key) ([]string, bool) {
	v, _ := p.Object(key)
	return v.AsStrings()
}

func (p *Preferences) Data(key Key) ([]byte, bool) {
	v, _ := p.Object(key)
	return v.AsData()
}

func (p *Preferences) URL(key Key) (*url.URL, bool) {
	v, _ := p.Object(key)
	return v.AsURL()
}

func (p *Preferences) Dictionary(key Key) (map[string]Value, bool) {
	v, _ := p.Object(key)
	return v.AsDictionary()
}

func (p *Preferences) Array(key Key) ([]Value, bool) {
	v, _ := p.Object(key)
	return v.AsArray()
}

// Set stores v under key. Storing the invalid Value removes the key.
func (p *Preferences) Set(key Key, v Value) error {
	if !v.IsValid() {
		return p.Remove(key)
	}
	if err := p.store.Put(key.String(), v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (p *Preferences) SetBool(key Key, b bool) error         { return p.Set(key, Bool(b)) }
func (p *Preferences) SetInteger(key Key, i int) error       { return p.Set(key, Int(int64(i))) }
func (p *Preferences) SetFloat(key Key, f float32) error     { return p.Set(key, Float(f)) }
func (p *Preferences) SetDouble(key Key, f float64) error    { return p.Set(key, Double(f)) }
func (p *Preferences) SetString(key Key, s string) error     { return p.Set(key, String(s)) }
func (p *Preferences) SetStringArray(key Key, ss []string) error {
	return p.Set(key, Strings(ss))
}
func (p *Preferences) SetData(key Key, b []byte) error { return p.Set(key, Data(b)) }
func (p *Preferences) SetURL(key Key, u *url.URL) error {
	return p.Set(key, URL(u))
}
func (p *Preferences) SetDictionary(key Key, m map[string]Value) error {
	return p.Set(key, Dictionary(m))
}
func (p *Preferences) SetArray(key Key, vs []Value) error { return p.Set(key, Array(vs)) }

// ParseInput parses raw text for key. An empty kind uses the kind of the
// key's default, or string when it has none.
func (p *Preferences) ParseInput(key Key, kind, raw string) (Value, error) {
	k := KindString
	if kind != "" {
		parsed, err := ParseKind(kind)
		if err != nil {
			return Value{}, err
		}
		k = parsed
	} else if def, ok := p.defaults[key]; ok {
		k = def.Kind()
	}
	return Parse(k, raw)
}

// Remove deletes the stored value for key.
func (p *Preferences) Remove(key Key) error {
	if err := p.store.Delete(key.String()); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Reset writes the default value for key, or removes it when there is none.
func (p *Preferences) Reset(key Key) error {
	if v, ok := p.defaults[key]; ok {
		return p.Set(key, v)
	}
	return p.Remove(key)
}

// TestEnv reports whether the TEST environment variable is present, whatever its value.
func (p *Preferences) TestEnv() bool {
	_, ok := p.lookupEnv("TEST")
	return ok
}

// UserMusicPath returns the user's music directory, or their home directory
// when the platform has none.
func (p *Preferences) UserMusicPath() string { return p.musicDir }

func (p *Preferences) resolveMusicDir(musicDir func() string) string {
	if dir := strings.TrimSpace(musicDir()); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		p.log.Warn("no music or home directory, using working directory", "error", err)
		return "."
	}
	return home
}

func defaultMusicDir() string {
	return xdg.UserDirs.Music
}
