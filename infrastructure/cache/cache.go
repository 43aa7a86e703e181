package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"social-scheduler/infrastructure/logger"
)

// NewCache creates a Redis client and verifies connectivity with a ping.
// The client is returned even when the ping fails so callers can decide
// whether to run degraded.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis ping failed")
		return client, err
	}

	return client, nil
}
