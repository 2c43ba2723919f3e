package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "schoolhub:"

type redisCache struct {
	client    *redis.Client
	logger    *zap.Logger
	available atomic.Bool
}

// NewRedisCache wraps a Redis client as a best-effort Client. The initial
// availability is probed with a ping; after that the flag tracks whether the
// most recent operation reached the backend.
func NewRedisCache(client *redis.Client, logger *zap.Logger) Client {
	c := &redisCache{client: client, logger: logger}
	c.available.Store(client.Ping(context.Background()).Err() == nil)
	return c
}

func (c *redisCache) Get(ctx context.Context, namespace, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, c.fullKey(namespace, key)).Bytes()
	if err == redis.Nil {
		c.available.Store(true)
		return false
	}
	if err != nil {
		c.fail("get", err)
		return false
	}
	c.available.Store(true)
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss",
			zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *redisCache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value not serializable", zap.String("namespace", namespace), zap.Error(err))
		return false
	}
	if err := c.client.Set(ctx, c.fullKey(namespace, key), data, ttl).Err(); err != nil {
		c.fail("set", err)
		return false
	}
	c.available.Store(true)
	return true
}

func (c *redisCache) Delete(ctx context.Context, namespace, key string) bool {
	if err := c.client.Del(ctx, c.fullKey(namespace, key)).Err(); err != nil {
		c.fail("delete", err)
		return false
	}
	c.available.Store(true)
	return true
}

func (c *redisCache) DelPattern(ctx context.Context, pattern string) bool {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.fail("scan", err)
		return false
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.fail("delete", err)
			return false
		}
	}
	c.available.Store(true)
	return true
}

func (c *redisCache) IsAvailable() bool {
	return c.available.Load()
}

func (c *redisCache) fullKey(namespace, key string) string {
	return keyPrefix + namespace + ":" + key
}

func (c *redisCache) fail(op string, err error) {
	c.available.Store(false)
	c.logger.Warn("cache unavailable", zap.String("op", op), zap.Error(err))
}
