// Package presence tracks which users currently hold a live connection.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/database"
)

const (
	KeyPrefix       = "presence:"
	RefreshInterval = 30 * time.Second
	TTL             = 90 * time.Second
)

// Tracker answers whether a user is online.
type Tracker interface {
	IsOnline(ctx context.Context, uid string) (bool, error)
}

// RedisTracker keeps one expiring key per online user.
type RedisTracker struct {
	redis database.RedisClient
	ttl   time.Duration
}

func NewRedisTracker(redis database.RedisClient) *RedisTracker {
	return &RedisTracker{redis: redis, ttl: TTL}
}

func Key(uid string) string {
	return KeyPrefix + uid
}

// MarkOnline sets or refreshes the user's presence key.
func (t *RedisTracker) MarkOnline(ctx context.Context, uid string) error {
	if err := t.redis.Set(ctx, Key(uid), time.Now().UTC().Format(time.RFC3339), t.ttl); err != nil {
		return fmt.Errorf("marking %s online: %w", uid, err)
	}
	return nil
}

func (t *RedisTracker) MarkOffline(ctx context.Context, uid string) error {
	if err := t.redis.Del(ctx, Key(uid)); err != nil {
		return fmt.Errorf("marking %s offline: %w", uid, err)
	}
	return nil
}

func (t *RedisTracker) IsOnline(ctx context.Context, uid string) (bool, error) {
	online, err := t.redis.Exists(ctx, Key(uid))
	if err != nil {
		return false, fmt.Errorf("checking presence of %s: %w", uid, err)
	}
	return online, nil
}
