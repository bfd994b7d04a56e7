package agent

import (
	"fmt"
	"strings"
)

// Args are the decoded arguments of a tool call.
type Args map[string]any

// String returns the argument as a string. Scalars other than strings are
// formatted, since models sometimes send numbers for free-text fields.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool, int, int64:
		return fmt.Sprint(t), true
	}
	return "", false
}

// StringPtr is String for patch fields: nil when the key is absent.
func (a Args) StringPtr(key string) *string {
	s, ok := a.String(key)
	if !ok {
		return nil
	}
	return &s
}

// StringList returns a list argument. A single string is treated as a
// one-element list. Blank entries are dropped.
func (a Args) StringList(key string) ([]string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}

	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, t)
	default:
		return nil, false
	}

	cleaned := make([]string, 0, len(out))
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned, true
}
