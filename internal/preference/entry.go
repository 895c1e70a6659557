package preference

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// Entry returns the plain encoding of v: a map with "type" and "value",
// where value only uses strings, numbers, bools, slices and maps. Backends
// that cannot store typed values (TOML, JSON) persist this form. The invalid
// Value encodes as nil.
func (v Value) Entry() map[string]any {
	var raw any
	switch v.kind {
	case KindInvalid:
		return nil
	case KindBool:
		raw = v.b
	case KindInt:
		raw = v.i
	case KindFloat, KindDouble:
		raw = entryFloat(v.f)
	case KindString:
		raw = v.s
	case KindStrings:
		ss := make([]string, len(v.ss))
		copy(ss, v.ss)
		raw = ss
	case KindData:
		raw = base64.StdEncoding.EncodeToString(v.data)
	case KindURL:
		raw = v.u.String()
	case KindDictionary:
		m := make(map[string]any, len(v.dict))
		for k, el := range v.dict {
			m[k] = el.Entry()
		}
		raw = m
	case KindArray:
		list := make([]any, len(v.arr))
		for i, el := range v.arr {
			list[i] = el.Entry()
		}
		raw = list
	}
	return map[string]any{"type": v.kind.String(), "value": raw}
}

// FromEntry decodes the form produced by Entry. Numbers may arrive as any Go
// integer or float type or as json.Number.
func FromEntry(entry map[string]any) (Value, error) {
	if entry == nil {
		return Value{}, nil
	}
	typeName, ok := entry["type"].(string)
	if !ok {
		return Value{}, fmt.Errorf("%w: entry has no type", ErrInvalidValue)
	}
	kind, err := ParseKind(typeName)
	if err != nil {
		return Value{}, err
	}
	raw, ok := entry["value"]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s entry has no value", ErrInvalidValue, kind)
	}

	switch kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		return Bool(b), nil
	case KindInt:
		i, ok := toInt64(raw)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		return Int(i), nil
	case KindFloat, KindDouble:
		f, ok := toFloat64(raw)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		if kind == KindFloat {
			return Float(float32(f)), nil
		}
		return Double(f), nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		return String(s), nil
	case KindStrings:
		switch list := raw.(type) {
		case []string:
			return Strings(list), nil
		case []any:
			ss := make([]string, len(list))
			for i, el := range list {
				s, ok := el.(string)
				if !ok {
					return Value{}, mismatch(kind, raw)
				}
				ss[i] = s
			}
			return Strings(ss), nil
		}
		return Value{}, mismatch(kind, raw)
	case KindData:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: data: %v", ErrInvalidValue, err)
		}
		return Data(b), nil
	case KindURL:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		u, err := url.Parse(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: url: %v", ErrInvalidValue, err)
		}
		return URL(u), nil
	case KindDictionary:
		m, ok := raw.(map[string]any)
		if !ok {
			return Value{}, mismatch(kind, raw)
		}
		dict := make(map[string]Value, len(m))
		for k, el := range m {
			sub, ok := el.(map[string]any)
			if !ok {
				return Value{}, fmt.Errorf("%w: dictionary member %q is not an entry", ErrInvalidValue, k)
			}
			v, err := FromEntry(sub)
			if err != nil {
				return Value{}, fmt.Errorf("dictionary member %q: %w", k, err)
			}
			dict[k] = v
		}
		return Value{kind: KindDictionary, dict: dict}, nil
	case KindArray:
		var list []any
		switch l := raw.(type) {
		case []any:
			list = l
		case []map[string]any:
			for _, el := range l {
				list = append(list, el)
			}
		default:
			return Value{}, mismatch(kind, raw)
		}
		arr := make([]Value, len(list))
		for i, el := range list {
			sub, ok := el.(map[string]any)
			if !ok {
				return Value{}, fmt.Errorf("%w: array element %d is not an entry", ErrInvalidValue, i)
			}
			v, err := FromEntry(sub)
			if err != nil {
				return Value{}, fmt.Errorf("array element %d: %w", i, err)
			}
			arr[i] = v
		}
		return Value{kind: KindArray, arr: arr}, nil
	}
	return Value{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidValue, kind)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Entry())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var entry map[string]any
	if err := dec.Decode(&entry); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	decoded, err := FromEntry(entry)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func mismatch(kind Kind, raw any) error {
	return fmt.Errorf("%w: %s entry holds %T", ErrInvalidValue, kind, raw)
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		switch n {
		case "NaN":
			return math.NaN(), true
		case "+Inf":
			return math.Inf(1), true
		case "-Inf":
			return math.Inf(-1), true
		}
	}
	return 0, false
}

// entryFloat spells non-finite numbers as strings; JSON has no literal for them.
func entryFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}
