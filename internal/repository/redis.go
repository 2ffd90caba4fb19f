package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const eventKeyPrefix = "notifier:event:"

// RedisRepository remembers which trigger events were already handled so a
// redelivered event does not notify twice.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ClaimEvent returns true the first time an event ID is seen within the TTL.
func (r *RedisRepository) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	return r.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}
