package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reservation-engine/internal/domain"
)

// RedisReplayCache remembers fully processed webhook deliveries so processor
// retries can be acknowledged without touching the database.
type RedisReplayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReplayCache(client *redis.Client, ttl time.Duration) *RedisReplayCache {
	return &RedisReplayCache{client: client, ttl: ttl}
}

func (c *RedisReplayCache) Seen(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) (bool, error) {
	n, err := c.client.Exists(ctx, replayKey(sessionID, outcome)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (c *RedisReplayCache) Remember(ctx context.Context, sessionID string, outcome domain.PaymentOutcome) error {
	if err := c.client.Set(ctx, replayKey(sessionID, outcome), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func replayKey(sessionID string, outcome domain.PaymentOutcome) string {
	return fmt.Sprintf("payment:webhook:%s:%s", sessionID, outcome)
}
