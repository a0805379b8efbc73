package parse

import (
	"strconv"
	"strings"
)

// Record is one loosely-typed object recovered from generator output.
// Field presence and types are not trusted; use the accessors.
type Record map[string]any

// String returns the first of keys holding a non-empty string or number.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Strings returns the first of keys holding a list of strings. A bare string
// is returned as a one-element list.
func (r Record) Strings(keys ...string) []string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case []any:
			var out []string
			for _, e := range v {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

// Float returns the first of keys holding a number or numeric string.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Object returns the first of keys holding a nested object.
func (r Record) Object(keys ...string) Record {
	for _, k := range keys {
		if m, ok := r[k].(map[string]any); ok {
			return Record(m)
		}
	}
	return nil
}
