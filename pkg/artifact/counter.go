package artifact

import (
	"context"
	"time"

	fernredis "github.com/Ramsey-B/fern/pkg/redis"
)

// Counter hands out the daily sequence number used in artifact filenames
type Counter interface {
	Next(ctx context.Context, category, day string) (int64, error)
}

// RedisCounter keeps one key per (category, day) that expires after the day is over
type RedisCounter struct {
	client *fernredis.Client
	ttl    time.Duration
}

func NewRedisCounter(client *fernredis.Client, ttl time.Duration) *RedisCounter {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisCounter{client: client, ttl: ttl}
}

func (c *RedisCounter) Next(ctx context.Context, category, day string) (int64, error) {
	return c.client.IncrWithExpiry(ctx, c.client.Key("artifact", category, day), c.ttl)
}
