package db

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is one engine document. Responses are decoded with json.Number so
// numeric fields keep the engine's exact textual form.
type Document map[string]any

// String returns field key as a string. Multi-valued fields yield their first value.
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case []any:
		if len(v) == 0 {
			return ""
		}
		return Document{key: v[0]}.String(key)
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns a multi-valued field. A single value becomes a one-element slice.
func (d Document) Strings(key string) []string {
	switch v := d[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, Document{key: item}.String(key))
		}
		return out
	default:
		return []string{d.String(key)}
	}
}

// Int returns field key parsed as an integer.
func (d Document) Int(key string) (int64, error) {
	raw := d.String(key)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %q is not an integer: %w", key, raw, err)
	}
	return n, nil
}
