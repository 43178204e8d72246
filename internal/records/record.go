// Package records defines the schemaless CRM records shared by the API
// server, the remote client and the dashboard views.
package records

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Placeholder is shown in place of an absent or empty field.
const Placeholder = "—"

// Record maps field names to display values. Values are whatever the JSON
// decoder produced: string, bool, float64, nil, or (rarely) nested objects.
// Records are treated as immutable once loaded.
type Record map[string]any

// Get returns the raw value for key and whether it was present and non-null.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String coerces the value for key to a string. Missing and null values
// coerce to "".
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Display returns the string form of key, or Placeholder when the value is
// absent or empty.
func (r Record) Display(key string) string {
	s := r.String(key)
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// Stringify converts a decoded JSON value to its string form.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Fold returns the case-folded string form of key, used for search and sort.
func (r Record) Fold(key string) string {
	return strings.ToLower(r.String(key))
}
