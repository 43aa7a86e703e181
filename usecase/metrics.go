package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

// Metric key TTLs follow the rollup windows: platform counters live a day,
// daily rollups a week, the success-rate cache an hour.
const (
	metricTTLDay        = 24 * time.Hour
	metricTTLWeek       = 7 * 24 * time.Hour
	metricTTLHourlyKeys = 24 * time.Hour
	metricTTLRate       = time.Hour

	sweepTimingKey    = "dispatcher_timing"
	sweepTimingMaxLen = 100
)

// PostMetrics records publish outcomes and dispatcher timings in the cache
// layer. Every write is best effort: a failed increment is logged at debug
// level and otherwise ignored, so cache unavailability never stalls dispatch.
type PostMetrics struct {
	cache repository.ISchedulerCache
	now   func() time.Time
}

func NewPostMetrics(cache repository.ISchedulerCache) *PostMetrics {
	return &PostMetrics{cache: cache, now: time.Now}
}

func (m *PostMetrics) incr(ctx context.Context, key string, ttl time.Duration) {
	if _, err := m.cache.Incr(ctx, key, ttl); err != nil {
		logger.GetLogger().WithField("key", key).WithField("error", err).Debug("metric increment skipped")
	}
}

// RecordAttempt counts a publish attempt in the rolling admission windows.
func (m *PostMetrics) RecordAttempt(ctx context.Context, platform string) {
	now := m.now().UTC()
	m.incr(ctx, fmt.Sprintf("posting_attempts:%s", platform), metricTTLDay)
	m.incr(ctx, fmt.Sprintf("posting_attempts_daily:%s:%s", platform, now.Format("2006-01-02")), metricTTLDay+time.Hour)
	m.incr(ctx, fmt.Sprintf("posting_attempts_hourly:%s:%s", platform, now.Format("2006-01-02:15")), metricTTLHourlyKeys)
}

// RecordOutcome counts a terminal-or-retry outcome plus its daily and hourly
// rollups. status is the resulting post status string.
func (m *PostMetrics) RecordOutcome(ctx context.Context, platform, status string) {
	now := m.now().UTC()
	m.incr(ctx, fmt.Sprintf("post_metrics:%s:%s", platform, status), metricTTLDay)
	m.incr(ctx, fmt.Sprintf("post_daily:%s:%s", now.Format("2006-01-02"), status), metricTTLWeek)
	m.incr(ctx, fmt.Sprintf("post_hourly:%s:%s", now.Format("2006-01-02:15"), status), metricTTLHourlyKeys)
}

// RecordSuccess updates the success counter and refreshes the cached rate.
func (m *PostMetrics) RecordSuccess(ctx context.Context, platform string) {
	m.incr(ctx, fmt.Sprintf("platform_success:%s", platform), metricTTLDay)
	m.updateSuccessRate(ctx, platform)
}

// RecordFailure updates the failure counter, tags the error class, and
// refreshes the cached rate.
func (m *PostMetrics) RecordFailure(ctx context.Context, platform string, class ErrorClass) {
	m.incr(ctx, fmt.Sprintf("platform_failures:%s", platform), metricTTLDay)
	m.incr(ctx, fmt.Sprintf("platform_errors:%s:%s", platform, class), metricTTLDay)
	m.updateSuccessRate(ctx, platform)
}

// RecordRetry counts a retry-scheduled outcome with its error class.
func (m *PostMetrics) RecordRetry(ctx context.Context, platform string, class ErrorClass) {
	m.incr(ctx, fmt.Sprintf("platform_retries:%s", platform), metricTTLDay)
	m.incr(ctx, fmt.Sprintf("platform_errors:%s:%s", platform, class), metricTTLDay)
}

// RecordDenied counts an admission denial. Denials are deliberately kept out
// of the failure counters so throttling does not skew the success rate.
func (m *PostMetrics) RecordDenied(ctx context.Context, platform string) {
	m.incr(ctx, fmt.Sprintf("platform_denied:%s", platform), metricTTLDay)
}

func (m *PostMetrics) updateSuccessRate(ctx context.Context, platform string) {
	success, err1 := m.cache.GetInt(ctx, fmt.Sprintf("platform_success:%s", platform))
	failures, err2 := m.cache.GetInt(ctx, fmt.Sprintf("platform_failures:%s", platform))
	if err1 != nil || err2 != nil {
		return
	}
	total := success + failures
	if total == 0 {
		return
	}
	rate := float64(success) / float64(total) * 100
	key := fmt.Sprintf("platform_success_rate:%s", platform)
	if err := m.cache.Set(ctx, key, strconv.FormatFloat(rate, 'f', 2, 64), metricTTLRate); err != nil {
		logger.GetLogger().WithField("key", key).WithField("error", err).Debug("success rate cache skipped")
	}
}

// UsageCounts returns attempts in the current daily and hourly buckets for
// admission decisions. Errors propagate so the caller can fail open.
func (m *PostMetrics) UsageCounts(ctx context.Context, platform string) (daily, hourly int64, err error) {
	now := m.now().UTC()
	daily, err = m.cache.GetInt(ctx, fmt.Sprintf("posting_attempts_daily:%s:%s", platform, now.Format("2006-01-02")))
	if err != nil {
		return 0, 0, err
	}
	hourly, err = m.cache.GetInt(ctx, fmt.Sprintf("posting_attempts_hourly:%s:%s", platform, now.Format("2006-01-02:15")))
	if err != nil {
		return 0, 0, err
	}
	return daily, hourly, nil
}

// RecordSweep tracks a completed sweep and its duration.
func (m *PostMetrics) RecordSweep(ctx context.Context, d time.Duration) {
	m.incr(ctx, "dispatcher_metrics:total_runs", 30*metricTTLDay)
	if err := m.cache.PushDuration(ctx, sweepTimingKey, d, sweepTimingMaxLen, metricTTLWeek); err != nil {
		logger.GetLogger().WithField("error", err).Debug("sweep timing push skipped")
	}
}

// RecordSweepSkip tracks a sweep that bailed out on queue overload.
func (m *PostMetrics) RecordSweepSkip(ctx context.Context) {
	m.incr(ctx, "dispatcher_metrics:skipped_runs", 30*metricTTLDay)
}

// SweepStats reports run counters and the average of recent sweep durations.
func (m *PostMetrics) SweepStats(ctx context.Context) (runs, skips int64, avg time.Duration) {
	runs, _ = m.cache.GetInt(ctx, "dispatcher_metrics:total_runs")
	skips, _ = m.cache.GetInt(ctx, "dispatcher_metrics:skipped_runs")
	durations, err := m.cache.RecentDurations(ctx, sweepTimingKey)
	if err != nil || len(durations) == 0 {
		return runs, skips, 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return runs, skips, total / time.Duration(len(durations))
}

// PlatformCounters reads the per-platform counter block for the stats API.
func (m *PostMetrics) PlatformCounters(ctx context.Context, platform string) (published, failed, retries, denied, attempts int64) {
	published, _ = m.cache.GetInt(ctx, fmt.Sprintf("platform_success:%s", platform))
	failed, _ = m.cache.GetInt(ctx, fmt.Sprintf("platform_failures:%s", platform))
	retries, _ = m.cache.GetInt(ctx, fmt.Sprintf("platform_retries:%s", platform))
	denied, _ = m.cache.GetInt(ctx, fmt.Sprintf("platform_denied:%s", platform))
	attempts, _ = m.cache.GetInt(ctx, fmt.Sprintf("posting_attempts:%s", platform))
	return
}
