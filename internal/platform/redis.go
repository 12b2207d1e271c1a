package platform

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis timeouts
const (
	RedisDialTimeout  = 5 * time.Second
	RedisReadTimeout  = 3 * time.Second
	RedisWriteTimeout = 3 * time.Second
	RedisPingTimeout  = 2 * time.Second
)

// NewRedisClient constructs a go-redis client, or nil when addr is empty
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  RedisDialTimeout,
		ReadTimeout:  RedisReadTimeout,
		WriteTimeout: RedisWriteTimeout,
	})
}

// PingRedis validates the connection. A nil client is healthy.
func PingRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, RedisPingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
