package codeassist

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// nextBackoff computes the full-jitter exponential backoff for the Nth
// retry: Uniform(0, min(max, base*2^(attempt-1))). attempt is 1-based (the
// wait before the 2nd overall request).
func nextBackoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	ceiling := float64(base) * math.Pow(2, float64(attempt-1))
	if ceiling > float64(max) {
		ceiling = float64(max)
	}
	if ceiling < 0 {
		ceiling = 0
	}
	return time.Duration(rand.Float64() * ceiling)
}

// parseRetryAfter accepts either a non-negative integer seconds count or an
// HTTP-date, per spec.md 4.8.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, v); err == nil {
			d := time.Until(t)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}

// isRetryableStatus reports whether a response status code should trigger
// a retry per spec.md 4.8.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
