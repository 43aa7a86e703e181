package repository

import (
	"context"
	"time"
)

// ISchedulerCache is the metrics/cache contract backed by Redis. It is never
// authoritative: every method may fail and callers must treat errors as cache
// misses, so an unavailable cache degrades to uncached reads and fail-open
// admission instead of halting dispatch.
type ISchedulerCache interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
	// PushDuration keeps a bounded most-recent list used for averaging.
	PushDuration(ctx context.Context, key string, d time.Duration, maxLen int64, ttl time.Duration) error
	RecentDurations(ctx context.Context, key string) ([]time.Duration, error)
}
