package preference

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when text or an encoded entry cannot be turned into a Value.
var ErrInvalidValue = errors.New("invalid preference value")

// Kind tags the type held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDouble
	KindString
	KindStrings
	KindData
	KindURL
	KindDictionary
	KindArray
)

var kindNames = map[Kind]string{
	KindBool:       "bool",
	KindInt:        "integer",
	KindFloat:      "float",
	KindDouble:     "double",
	KindString:     "string",
	KindStrings:    "strings",
	KindData:       "data",
	KindURL:        "url",
	KindDictionary: "dictionary",
	KindArray:      "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// ParseKind maps a kind name ("integer", "url", ...) back to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "int":
		return KindInt, nil
	case "boolean":
		return KindBool, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: unknown type %q", ErrInvalidValue, name)
}

// Value is a tagged variant holding one stored preference. The zero Value is
// invalid and stands for "nothing stored".
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	ss   []string
	data []byte
	u    *url.URL
	dict map[string]Value
	arr  []Value
}

func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float32) Value     { return Value{kind: KindFloat, f: float64(f)} }
func Double(f float64) Value    { return Value{kind: KindDouble, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Strings(ss []string) Value { return Value{kind: KindStrings, ss: append([]string(nil), ss...)} }
func Data(b []byte) Value       { return Value{kind: KindData, data: append([]byte(nil), b...)} }

// URL wraps u. A nil URL yields the invalid Value.
func URL(u *url.URL) Value {
	if u == nil {
		return Value{}
	}
	cp := *u
	return Value{kind: KindURL, u: &cp}
}

func Dictionary(m map[string]Value) Value {
	dict := make(map[string]Value, len(m))
	for k, v := range m {
		dict[k] = v
	}
	return Value{kind: KindDictionary, dict: dict}
}

func Array(vs []Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), vs...)}
}

// FileURL returns an absolute file:// URL for path.
func FileURL(path string) *url.URL {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat, KindDouble:
		return v.f != 0
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindBool:
		if v.b {
			return 1
		}
	case KindFloat, KindDouble:
		return int64(v.f)
	case KindString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

func (v Value) AsDouble() float64 {
	switch v.kind {
	case KindFloat, KindDouble:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindBool:
		if v.b {
			return 1
		}
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return f
		}
	}
	return 0
}

func (v Value) AsFloat() float32 { return float32(v.AsDouble()) }

func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32), true
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64), true
	}
	return "", false
}

func (v Value) AsStrings() ([]string, bool) {
	switch v.kind {
	case KindStrings:
		return append([]string(nil), v.ss...), true
	case KindArray:
		out := make([]string, 0, len(v.arr))
		for _, el := range v.arr {
			if el.kind != KindString {
				return nil, false
			}
			out = append(out, el.s)
		}
		return out, true
	}
	return nil, false
}

func (v Value) AsData() ([]byte, bool) {
	if v.kind != KindData {
		return nil, false
	}
	return append([]byte(nil), v.data...), true
}

// AsURL returns URLs as-is. Strings are read as an absolute URL when they
// carry a scheme, otherwise as a file path with a leading ~ expanded.
func (v Value) AsURL() (*url.URL, bool) {
	switch v.kind {
	case KindURL:
		cp := *v.u
		return &cp, true
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return nil, false
		}
		if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.IsAbs() && len(u.Scheme) > 1 {
			return u, true
		}
		return FileURL(expandTilde(s)), true
	}
	return nil, false
}

func (v Value) AsDictionary() (map[string]Value, bool) {
	if v.kind != KindDictionary {
		return nil, false
	}
	out := make(map[string]Value, len(v.dict))
	for k, el := range v.dict {
		out[k] = el
	}
	return out, true
}

func (v Value) AsArray() ([]Value, bool) {
	switch v.kind {
	case KindArray:
		return append([]Value(nil), v.arr...), true
	case KindStrings:
		out := make([]Value, len(v.ss))
		for i, s := range v.ss {
			out[i] = String(s)
		}
		return out, true
	}
	return nil, false
}

// Equal reports whether both values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat, KindDouble:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindStrings:
		if len(v.ss) != len(o.ss) {
			return false
		}
		for i := range v.ss {
			if v.ss[i] != o.ss[i] {
				return false
			}
		}
		return true
	case KindData:
		return bytes.Equal(v.data, o.data)
	case KindURL:
		return v.u.String() == o.u.String()
	case KindDictionary:
		if len(v.dict) != len(o.dict) {
			return false
		}
		for k, el := range v.dict {
			other, ok := o.dict[k]
			if !ok || !el.Equal(other) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for humans.
func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return "<unset>"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return "[" + strings.Join(v.ss, ", ") + "]"
	case KindData:
		return base64.StdEncoding.EncodeToString(v.data)
	case KindURL:
		return v.u.String()
	case KindDictionary:
		keys := make([]string, 0, len(v.dict))
		for k := range v.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.dict[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, el := range v.arr {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	s, _ := v.AsString()
	return s
}

// Parse converts command-line text into a Value of the given kind. Strings
// lists are comma separated; data is base64; url accepts a URL or a path.
// Dictionaries and arrays use the JSON entry encoding.
func Parse(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Bool(b), nil
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Float(float32(f)), nil
	case KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Double(f), nil
	case KindString:
		return String(raw), nil
	case KindStrings:
		if strings.TrimSpace(raw) == "" {
			return Strings(nil), nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return Strings(parts), nil
	case KindData:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Data(b), nil
	case KindURL:
		u, ok := String(raw).AsURL()
		if !ok {
			return Value{}, fmt.Errorf("%w: empty url", ErrInvalidValue)
		}
		return URL(u), nil
	case KindDictionary, KindArray:
		var v Value
		if err := v.UnmarshalJSON([]byte(raw)); err != nil {
			return Value{}, err
		}
		if v.kind != kind {
			return Value{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidValue, kind, v.kind)
		}
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: cannot parse %s", ErrInvalidValue, kind)
}

func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
