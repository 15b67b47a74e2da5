package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/widgetshare/internal/config"
)

func stubRedis(t *testing.T, pingErr error) *redis.Options {
	t.Helper()
	origNew, origPing := newRedisClient, redisPing
	t.Cleanup(func() { newRedisClient, redisPing = origNew, origPing })

	got := &redis.Options{}
	newRedisClient = func(opts *redis.Options) *redis.Client {
		*got = *opts
		return origNew(opts)
	}
	redisPing = func(ctx context.Context, client *redis.Client) error { return pingErr }
	return got
}

func TestNewRedisDB_UsesConfiguredPool(t *testing.T) {
	got := stubRedis(t, nil)

	db, err := NewRedisDB(config.RedisConfig{
		Host:         "cache",
		Port:         6380,
		Password:     "pass",
		DB:           2,
		PoolSize:     32,
		MinIdleConns: 4,
		DialTimeout:  750 * time.Millisecond,
		IOTimeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got.Addr != "cache:6380" || got.Password != "pass" || got.DB != 2 {
		t.Fatalf("unexpected connection options %+v", got)
	}
	if got.ClientName != "widgetshare" {
		t.Fatalf("expected client name, got %q", got.ClientName)
	}
	if got.PoolSize != 32 || got.MinIdleConns != 4 {
		t.Fatalf("unexpected pool %d/%d", got.PoolSize, got.MinIdleConns)
	}
	if got.DialTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms dial, got %v", got.DialTimeout)
	}
	if got.ReadTimeout != time.Second || got.WriteTimeout != time.Second {
		t.Fatalf("expected 1s io timeouts, got %v/%v", got.ReadTimeout, got.WriteTimeout)
	}
}

func TestNewRedisDB_PingErrorNamesAddr(t *testing.T) {
	pingErr := errors.New("connection refused")
	stubRedis(t, pingErr)

	_, err := NewRedisDB(config.RedisConfig{Host: "cache", Port: 6379})
	if !errors.Is(err, pingErr) {
		t.Fatalf("expected ping error, got %v", err)
	}
	if !strings.Contains(err.Error(), "cache:6379") {
		t.Fatalf("expected addr in error, got %q", err.Error())
	}
}

func TestDialBudget(t *testing.T) {
	if d := dialBudget(&redis.Options{}); d != 5*time.Second {
		t.Fatalf("expected 5s fallback, got %v", d)
	}
	if d := dialBudget(&redis.Options{DialTimeout: time.Second}); d != time.Second {
		t.Fatalf("expected configured dial timeout, got %v", d)
	}
}

func TestRedisDB_Health(t *testing.T) {
	stubRedis(t, errors.New("loading dataset"))
	db := &RedisDB{Client: redis.NewClient(&redis.Options{Addr: "localhost:0"})}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Health(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
	redisPing = func(ctx context.Context, client *redis.Client) error { return nil }
	if err := db.Health(context.Background()); err != nil {
		t.Fatalf("unexpected health error: %v", err)
	}
}

func TestRedisDB_CloseWithoutClient(t *testing.T) {
	if err := (&RedisDB{}).Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}
