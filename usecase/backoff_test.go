package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorClass
	}{
		{"twitter rate limit exceeded (429): too many requests", ErrorClassRateLimit},
		{"youtube quota exceeded: dailyLimitExceeded", ErrorClassQuota},
		{"facebook network error: dial tcp: connection refused", ErrorClassNetwork},
		{"timeout: context deadline exceeded", ErrorClassNetwork},
		{"instagram rejected post (400): invalid media", ErrorClassOther},
		{"", ErrorClassOther},
		{"RATE LIMIT hit", ErrorClassRateLimit},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyError(c.msg), "message %q", c.msg)
	}
}

func TestRetryDelaySeconds(t *testing.T) {
	// base 60s doubling per attempt, no multipliers for twitter/other
	assert.Equal(t, 60, RetryDelaySeconds("twitter", ErrorClassOther, 0))
	assert.Equal(t, 120, RetryDelaySeconds("twitter", ErrorClassOther, 1))
	assert.Equal(t, 240, RetryDelaySeconds("twitter", ErrorClassOther, 2))

	// error class multipliers
	assert.Equal(t, 180, RetryDelaySeconds("twitter", ErrorClassRateLimit, 0))
	assert.Equal(t, 120, RetryDelaySeconds("twitter", ErrorClassQuota, 0))
	assert.Equal(t, 30, RetryDelaySeconds("twitter", ErrorClassNetwork, 0))
	assert.Equal(t, 60, RetryDelaySeconds("twitter", ErrorClassDenied, 0))

	// platform multipliers
	assert.Equal(t, 90, RetryDelaySeconds("instagram", ErrorClassOther, 0))
	assert.Equal(t, 72, RetryDelaySeconds("facebook", ErrorClassOther, 0))
	assert.Equal(t, 78, RetryDelaySeconds("linkedin", ErrorClassOther, 0))
	assert.Equal(t, 84, RetryDelaySeconds("tiktok", ErrorClassOther, 0))
	assert.Equal(t, 120, RetryDelaySeconds("youtube", ErrorClassOther, 0))

	// combined: youtube quota at attempt 2 = 240 * 2.0 * 2.0
	assert.Equal(t, 960, RetryDelaySeconds("youtube", ErrorClassQuota, 2))

	// unknown platform uses multiplier 1.0, case-insensitive lookup
	assert.Equal(t, 60, RetryDelaySeconds("myspace", ErrorClassOther, 0))
	assert.Equal(t, 90, RetryDelaySeconds("Instagram", ErrorClassOther, 0))
}
