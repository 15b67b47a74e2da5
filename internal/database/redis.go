package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/widgetshare/internal/config"
)

// RedisDB owns the client shared by presence, trigger dedupe and rate limits.
type RedisDB struct {
	Client *redis.Client
}

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
)

func redisOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr(),
		ClientName:   applicationName,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}

func NewRedisDB(cfg config.RedisConfig) (*RedisDB, error) {
	opts := redisOptions(cfg)
	client := newRedisClient(opts)

	// The dial timeout also bounds the startup ping; go-redis applies its
	// own 5s default when unset.
	ctx, cancel := context.WithTimeout(context.Background(), dialBudget(opts))
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}

	return &RedisDB{Client: client}, nil
}

func dialBudget(opts *redis.Options) time.Duration {
	if opts.DialTimeout > 0 {
		return opts.DialTimeout
	}
	return 5 * time.Second
}

func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *RedisDB) Health(ctx context.Context) error {
	return redisPing(ctx, r.Client)
}
