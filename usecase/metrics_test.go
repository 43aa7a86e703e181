package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAttemptBucketsKeys(t *testing.T) {
	cache := newMemCache()
	m := NewPostMetrics(cache)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.RecordAttempt(context.Background(), "twitter")
	m.RecordAttempt(context.Background(), "twitter")

	assert.Equal(t, "2", cache.values["posting_attempts:twitter"])
	assert.Equal(t, "2", cache.values["posting_attempts_daily:twitter:2026-03-14"])
	assert.Equal(t, "2", cache.values["posting_attempts_hourly:twitter:2026-03-14:09"])
}

func TestRecordOutcomeKeys(t *testing.T) {
	cache := newMemCache()
	m := NewPostMetrics(cache)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.RecordOutcome(context.Background(), "facebook", "published")

	assert.Equal(t, "1", cache.values["post_metrics:facebook:published"])
	assert.Equal(t, "1", cache.values["post_daily:2026-03-14:published"])
	assert.Equal(t, "1", cache.values["post_hourly:2026-03-14:09:published"])
}

func TestSuccessRate(t *testing.T) {
	cache := newMemCache()
	m := NewPostMetrics(cache)

	m.RecordSuccess(context.Background(), "twitter")
	m.RecordSuccess(context.Background(), "twitter")
	m.RecordSuccess(context.Background(), "twitter")
	m.RecordFailure(context.Background(), "twitter", ErrorClassOther)

	assert.Equal(t, "3", cache.values["platform_success:twitter"])
	assert.Equal(t, "1", cache.values["platform_failures:twitter"])
	assert.Equal(t, "1", cache.values["platform_errors:twitter:other"])
	assert.Equal(t, "75.00", cache.values["platform_success_rate:twitter"])
}

func TestRecordRetryAndDenied(t *testing.T) {
	cache := newMemCache()
	m := NewPostMetrics(cache)

	m.RecordRetry(context.Background(), "instagram", ErrorClassRateLimit)
	m.RecordDenied(context.Background(), "instagram")

	assert.Equal(t, "1", cache.values["platform_retries:instagram"])
	assert.Equal(t, "1", cache.values["platform_errors:instagram:rate_limit"])
	assert.Equal(t, "1", cache.values["platform_denied:instagram"])
	// denials must not count as failures
	assert.Empty(t, cache.values["platform_failures:instagram"])
}

func TestMetricsSilentOnCacheError(t *testing.T) {
	cache := newMemCache()
	cache.failAll = true
	m := NewPostMetrics(cache)

	// none of these may panic or error out
	m.RecordAttempt(context.Background(), "twitter")
	m.RecordSuccess(context.Background(), "twitter")
	m.RecordFailure(context.Background(), "twitter", ErrorClassNetwork)
	m.RecordSweep(context.Background(), time.Second)
}

func TestSweepStats(t *testing.T) {
	cache := newMemCache()
	m := NewPostMetrics(cache)

	m.RecordSweep(context.Background(), 100*time.Millisecond)
	m.RecordSweep(context.Background(), 300*time.Millisecond)
	m.RecordSweepSkip(context.Background())

	runs, skips, avg := m.SweepStats(context.Background())
	assert.Equal(t, int64(2), runs)
	assert.Equal(t, int64(1), skips)
	assert.Equal(t, 200*time.Millisecond, avg)
}

func TestUsageCountsPropagatesError(t *testing.T) {
	cache := newMemCache()
	cache.failAll = true
	m := NewPostMetrics(cache)

	_, _, err := m.UsageCounts(context.Background(), "twitter")
	assert.Error(t, err)
}
