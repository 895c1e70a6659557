package defaults

import (
	"fmt"
	"time"

	"howett.net/plist"

	"github.com/kalambet/doughnut/internal/preference"
)

// toPlist converts a Value into the Go shape howett.net/plist encodes.
// Property lists have no URL or single-precision type, so URLs become
// strings and floats become reals.
func toPlist(v preference.Value) any {
	switch v.Kind() {
	case preference.KindBool:
		return v.AsBool()
	case preference.KindInt:
		return v.AsInt()
	case preference.KindFloat, preference.KindDouble:
		return v.AsDouble()
	case preference.KindString:
		s, _ := v.AsString()
		return s
	case preference.KindStrings:
		ss, _ := v.AsStrings()
		out := make([]any, len(ss))
		for i, s := range ss {
			out[i] = s
		}
		return out
	case preference.KindData:
		b, _ := v.AsData()
		return b
	case preference.KindURL:
		u, _ := v.AsURL()
		return u.String()
	case preference.KindDictionary:
		dict, _ := v.AsDictionary()
		out := make(map[string]any, len(dict))
		for k, el := range dict {
			out[k] = toPlist(el)
		}
		return out
	case preference.KindArray:
		arr, _ := v.AsArray()
		out := make([]any, len(arr))
		for i, el := range arr {
			out[i] = toPlist(el)
		}
		return out
	}
	return nil
}

// fromPlist converts a decoded property list object into a Value.
func fromPlist(obj any) (preference.Value, error) {
	switch o := obj.(type) {
	case bool:
		return preference.Bool(o), nil
	case int64:
		return preference.Int(o), nil
	case uint64:
		return preference.Int(int64(o)), nil
	case int:
		return preference.Int(int64(o)), nil
	case float64:
		return preference.Double(o), nil
	case float32:
		return preference.Double(float64(o)), nil
	case string:
		return preference.String(o), nil
	case []byte:
		return preference.Data(o), nil
	case time.Time:
		return preference.String(o.UTC().Format(time.RFC3339)), nil
	case []any:
		arr := make([]preference.Value, len(o))
		for i, el := range o {
			v, err := fromPlist(el)
			if err != nil {
				return preference.Value{}, err
			}
			arr[i] = v
		}
		return preference.Array(arr), nil
	case map[string]any:
		dict := make(map[string]preference.Value, len(o))
		for k, el := range o {
			v, err := fromPlist(el)
			if err != nil {
				return preference.Value{}, err
			}
			dict[k] = v
		}
		return preference.Dictionary(dict), nil
	}
	return preference.Value{}, fmt.Errorf("%w: unsupported plist type %T", preference.ErrInvalidValue, obj)
}

// encodePlist renders v as an XML property list, the form `defaults write` accepts.
func encodePlist(v preference.Value) (string, error) {
	out, err := plist.Marshal(toPlist(v), plist.XMLFormat)
	if err != nil {
		return "", fmt.Errorf("encoding plist: %w", err)
	}
	return string(out), nil
}

// decodeDomain parses the output of `defaults export <domain> -`.
func decodeDomain(raw []byte) (map[string]preference.Value, error) {
	var doc map[string]any
	if len(raw) > 0 {
		if _, err := plist.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding plist: %w", err)
		}
	}
	out := make(map[string]preference.Value, len(doc))
	for k, obj := range doc {
		v, err := fromPlist(obj)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
