package triggers

import (
	"context"
	"fmt"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/database"
)

const DedupeKeyPrefix = "trigger:event:"

// Deduper remembers processed event ids so redelivered events run once.
type Deduper interface {
	// FirstDelivery claims eventID and reports whether this call won the claim.
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	// Release drops a claim so a redelivery of eventID runs again.
	Release(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	redis database.RedisClient
	ttl   time.Duration
}

func NewRedisDeduper(redis database.RedisClient, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{redis: redis, ttl: ttl}
}

func (d *RedisDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.redis.SetNX(ctx, DedupeKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl)
	if err != nil {
		return false, fmt.Errorf("claiming event %s: %w", eventID, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	if err := d.redis.Del(ctx, DedupeKeyPrefix+eventID); err != nil {
		return fmt.Errorf("releasing event %s: %w", eventID, err)
	}
	return nil
}
