package codeassist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff_FullJitterWithinCeiling(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		ceiling := base * time.Duration(1<<uint(attempt-1))
		if ceiling > max {
			ceiling = max
		}
		for i := 0; i < 50; i++ {
			d := nextBackoff(attempt, base, max)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, ceiling)
		}
	}
}

func TestNextBackoff_RespectsMaxCeiling(t *testing.T) {
	base := time.Second
	max := 2 * time.Second
	for i := 0; i < 50; i++ {
		d := nextBackoff(10, base, max)
		assert.LessOrEqual(t, d, max)
	}
}

func TestNextBackoff_DefaultsWhenZero(t *testing.T) {
	d := nextBackoff(1, 0, 0)
	assert.LessOrEqual(t, d, time.Second)
}

func TestParseRetryAfter_IntegerSeconds(t *testing.T) {
	d, ok := parseRetryAfter("5")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)
}

func TestParseRetryAfter_NegativeClampsToZero(t *testing.T) {
	d, ok := parseRetryAfter("-3")
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC().Format(time.RFC1123)
	d, ok := parseRetryAfter(future)
	assert.True(t, ok)
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, 31*time.Second)
}

func TestParseRetryAfter_EmptyOrGarbage(t *testing.T) {
	_, ok := parseRetryAfter("")
	assert.False(t, ok)
	_, ok = parseRetryAfter("not-a-date-or-int")
	assert.False(t, ok)
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, isRetryableStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, isRetryableStatus(code), code)
	}
}
