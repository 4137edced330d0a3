package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// parseRetryAfter accepts delta-seconds or an HTTP-date. Zero, negative and
// past values are ignored so the caller falls back to its own delay.
func parseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		if int64(seconds) > maxRetryAfterSeconds {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := http.ParseTime(raw); err == nil {
		if retryAt.After(now) {
			return retryAt.Sub(now), true
		}
	}
	return 0, false
}
