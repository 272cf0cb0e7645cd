package subscription

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator is a WebhookDeduplicator shared across process instances,
// backed by TTL keys. Use it whenever more than one replica receives webhooks.
type RedisDeduplicator struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDeduplicator creates a deduplicator on an existing redis client.
// Panics on a nil client to fail fast during initialization.
func NewRedisDeduplicator(client redis.UniversalClient, ttl time.Duration) *RedisDeduplicator {
	if client == nil {
		panic("subscription: redis client is required")
	}
	return &RedisDeduplicator{client: client, ttl: ttl}
}

func (d *RedisDeduplicator) Seen(ctx context.Context, driver, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(driver, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduplicator) MarkProcessed(ctx context.Context, driver, eventID string) error {
	return d.client.Set(ctx, d.key(driver, eventID), 1, d.ttl).Err()
}

func (d *RedisDeduplicator) key(driver, eventID string) string {
	return "subscriptions:webhook:" + driver + ":" + eventID
}
