package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator tracks which play events have already been committed to
// the warehouse. Seen is a read-only check; MarkSeen must be called only
// after the warehouse transaction commits, so a failed write attempt
// never classifies its own redelivery as a duplicate. The fact table's
// unique key remains the authoritative guard; this only saves enrichment
// round-trips on redelivery.
type Deduplicator interface {
	Seen(ctx context.Context, userID, songID, playedAt string) (bool, error)
	MarkSeen(ctx context.Context, userID, songID, playedAt string) error
}

type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduplicator(addr string, ttl time.Duration) (*RedisDeduplicator, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisDeduplicator{
		client: client,
		ttl:    ttl,
	}, nil
}

func (r *RedisDeduplicator) Seen(ctx context.Context, userID, songID, playedAt string) (bool, error) {
	exists, err := r.client.Exists(ctx, playKey(userID, songID, playedAt)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return exists > 0, nil
}

func (r *RedisDeduplicator) MarkSeen(ctx context.Context, userID, songID, playedAt string) error {
	// SETNX keeps the mark idempotent across concurrent consumers.
	if err := r.client.SetNX(ctx, playKey(userID, songID, playedAt), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}

	return nil
}

func (r *RedisDeduplicator) Close() error {
	return r.client.Close()
}

func playKey(userID, songID, playedAt string) string {
	return fmt.Sprintf("play:%s:%s:%s", userID, songID, playedAt)
}
