package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"social-scheduler/domain/repository"
)

// ErrNoClient is returned by every method when the Redis client was never
// connected. Callers already treat cache errors as misses, so a missing
// client degrades the same way a network failure does.
var ErrNoClient = errors.New("redis client not configured")

type SchedulerCache struct {
	client *redis.Client
}

func NewSchedulerCache(client *redis.Client) repository.ISchedulerCache {
	return &SchedulerCache{client: client}
}

func (c *SchedulerCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.client == nil {
		return 0, ErrNoClient
	}
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *SchedulerCache) GetInt(ctx context.Context, key string) (int64, error) {
	if c.client == nil {
		return 0, ErrNoClient
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (c *SchedulerCache) Get(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrNoClient
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *SchedulerCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if c.client == nil {
		return ErrNoClient
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

// DeletePattern scans for keys matching the glob pattern and deletes them in
// batches. SCAN is used instead of KEYS to avoid blocking the server.
func (c *SchedulerCache) DeletePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return ErrNoClient
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (c *SchedulerCache) PushDuration(ctx context.Context, key string, d time.Duration, maxLen int64, ttl time.Duration) error {
	if c.client == nil {
		return ErrNoClient
	}
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, d.Milliseconds())
	pipe.LTrim(ctx, key, 0, maxLen-1)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *SchedulerCache) RecentDurations(ctx context.Context, key string) ([]time.Duration, error) {
	if c.client == nil {
		return nil, ErrNoClient
	}
	vals, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]time.Duration, 0, len(vals))
	for _, v := range vals {
		ms, parseErr := strconv.ParseInt(v, 10, 64)
		if parseErr != nil {
			continue
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out, nil
}
