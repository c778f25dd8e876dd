package counter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// RedisStore uses INCR, which is atomic on the server.
type RedisStore struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

func NewRedisStore(client redis.Cmdable, prefix string, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, timeout: timeout}
}

func (s *RedisStore) Increment(ctx context.Context, scope, key string) (int64, error) {
	id, err := compositeKey(scope, key)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.Incr(ctx, s.prefix+id).Result()
	if err != nil {
		return 0, apperr.Unavailable("counter increment", err)
	}
	return n, nil
}
