package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// RedisConfig overrides pool settings parsed from the URL. Zero fields keep
// the URL (or go-redis) value.
type RedisConfig struct {
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig is sized for one analyze consumer group plus the
// embedding cache.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c *RedisConfig) apply(opt *redis.Options) {
	if c.PoolSize > 0 {
		opt.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		opt.MinIdleConns = c.MinIdleConns
	}
	if c.MaxRetries != 0 {
		opt.MaxRetries = c.MaxRetries
	}
	if c.DialTimeout > 0 {
		opt.DialTimeout = c.DialTimeout
	}
	// XREADGROUP BLOCK 명령은 go-redis가 읽기 타임아웃을 자동으로 늘린다
	if c.ReadTimeout > 0 {
		opt.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opt.WriteTimeout = c.WriteTimeout
	}
}

// NewRedis connects to redisURL and fails unless PING succeeds, so callers
// can fall back to running without Redis.
func NewRedis(redisURL string, cfg *RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	cfg.apply(opt)

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opt.Addr, err)
	}
	return client, nil
}
