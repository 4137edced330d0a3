// Package normalizer converts form data trees between their stored shape
// (no native time values) and their in-memory shape (time.Time restored).
package normalizer

import (
	"regexp"
	"time"
)

// TimeLayout is the storage format for time values: UTC, millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// dateLike only checks the date and time prefix. Any string that starts like a
// timestamp and parses is hydrated, so free text such as
// "2024-01-01T10:00:00 meeting" stays a string only because it fails to parse.
var dateLike = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// zone-less layouts are read as UTC
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamper is satisfied by store-native timestamp values such as
// *timestamppb.Timestamp.
type Timestamper interface {
	AsTime() time.Time
}

// Serialize returns a storage-safe copy of v. Time values become TimeLayout
// strings, nil values and nil times are dropped from maps and slices, and
// other leaves are returned unchanged.
func Serialize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(TimeLayout)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(TimeLayout)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if s := Serialize(item); s != nil {
				out[k] = s
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, item := range val {
			if s := Serialize(item); s != nil {
				out = append(out, s)
			}
		}
		return out
	default:
		return v
	}
}

// SerializeMap is Serialize for a top level form data map.
func SerializeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return Serialize(m).(map[string]interface{})
}

// Hydrate returns a copy of v with stored timestamps turned back into time.Time.
func Hydrate(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	case Timestamper:
		return val.AsTime()
	case string:
		if t, ok := parseDateLike(val); ok {
			return t
		}
		return val
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = Hydrate(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Hydrate(item)
		}
		return out
	default:
		return v
	}
}

// HydrateMap is Hydrate for a top level form data map.
func HydrateMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return Hydrate(m).(map[string]interface{})
}

func parseDateLike(s string) (time.Time, bool) {
	if !dateLike.MatchString(s) {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
