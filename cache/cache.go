// Package cache stores JSON-encoded values in Redis under a key prefix.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is the cause of every Get on an absent or expired key.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCache(client redis.UniversalClient, prefix string) *Cache {
	return &Cache{
		redis:  client,
		prefix: prefix,
	}
}

// IsMiss reports whether err came from a lookup of an absent key.
func IsMiss(err error) bool {
	return errors.Cause(err) == ErrMiss
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return errors.Wrapf(ErrMiss, "key %q", key)
		}
		return errors.Wrap(err, "failed to get from cache")
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached data")
	}
	return nil
}

// Set stores value for expiration. A zero expiration keeps the key forever.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal data for cache")
	}

	if err := c.redis.Set(ctx, c.prefix+key, data, expiration).Err(); err != nil {
		return errors.Wrap(err, "failed to set cache")
	}
	return nil
}

// Incr atomically increments the counter at key and returns the new value.
// The key expires after expiration; zero leaves the current TTL alone.
func (c *Cache) Incr(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, c.prefix+key)
		if expiration > 0 {
			pipe.Expire(ctx, c.prefix+key, expiration)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to increment cache counter")
	}
	return incr.Val(), nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from cache")
	}
	return nil
}

// Clear removes every key under the prefix.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrap(err, "failed to clear cache")
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "failed to iterate over cache keys")
	}
	return nil
}
