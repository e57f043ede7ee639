// Package fields resolves values out of loosely-typed Airtable field bags
// whose column names have drifted across base revisions.
package fields

import (
	"fmt"
	"strconv"
	"strings"
)

// Bag is the "fields" object of an Airtable record.
type Bag map[string]any

// Resolve returns the value of the first candidate key present in bag with a
// non-nil value, or def when none is.
func Resolve(bag Bag, candidates []string, def any) any {
	for _, name := range candidates {
		if value, ok := bag[name]; ok && value != nil {
			return value
		}
	}
	return def
}

// Has reports whether any candidate key is present, even with a nil value.
func Has(bag Bag, candidates []string) bool {
	for _, name := range candidates {
		if _, ok := bag[name]; ok {
			return true
		}
	}
	return false
}

// String resolves candidates and coerces the value to a string.
func String(bag Bag, candidates []string) string {
	return toString(Resolve(bag, candidates, ""))
}

// Number resolves candidates and coerces the value to a float64. Numeric
// strings such as "1,200" are parsed; anything else yields 0.
func Number(bag Bag, candidates []string) float64 {
	switch v := Resolve(bag, candidates, 0).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return parsed
	case []any:
		if len(v) == 0 {
			return 0
		}
		return Number(Bag{"v": v[0]}, []string{"v"})
	default:
		return 0
	}
}

// Strings resolves candidates and coerces the value to a string slice. A
// scalar is wrapped as a singleton; a missing value yields an empty slice.
func Strings(bag Bag, candidates []string) []string {
	return toStrings(Resolve(bag, candidates, nil))
}

// Bool resolves candidates and coerces the value to a bool. Airtable
// checkboxes are true or absent.
func Bool(bag Bag, candidates []string) bool {
	switch v := Resolve(bag, candidates, false).(type) {
	case bool:
		return v
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(v))
		return parsed
	default:
		return false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return strings.Join(toStrings(v), ", ")
	case []string:
		return strings.Join(v, ", ")
	case map[string]any:
		// collaborator and attachment objects
		for _, key := range []string{"name", "email", "url", "id"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		s := toString(v)
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
}

// OwnerIDs collects every value of every OwnerCandidates column, so a person
// assigned under any historical name is matched. Collaborator objects yield
// both their display value and their user id.
func OwnerIDs(bag Bag) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, name := range OwnerCandidates {
		values := []any{bag[name]}
		switch v := bag[name].(type) {
		case []any:
			values = v
		case []string:
			values = values[:0]
			for _, s := range v {
				values = append(values, s)
			}
		}
		for _, value := range values {
			add(toString(value))
			if obj, ok := value.(map[string]any); ok {
				if id, ok := obj["id"].(string); ok {
					add(id)
				}
			}
		}
	}
	return out
}
