package leads

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// formValues reads loosely typed form data. Every accessor returns the
// trimmed text or "" when the value is absent or blank.
type formValues map[string]interface{}

func (f formValues) text(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case time.Time:
		return v.UTC().Format("2006-01-02")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for i := range v {
			if s := (formValues{"v": v[i]}).text("v"); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// first returns the first non-blank value among keys.
func (f formValues) first(keys ...string) string {
	for _, k := range keys {
		if s := f.text(k); s != "" {
			return s
		}
	}
	return ""
}

func (f formValues) truthy(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true", "on", "1":
			return true
		}
	}
	return false
}

// timestamp renders a date or date-time value for a description line.
func (f formValues) timestamp(key string) string {
	if t, ok := f[key].(time.Time); ok {
		return t.UTC().Format("2006-01-02 15:04 MST")
	}
	return f.text(key)
}
