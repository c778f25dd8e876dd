package counter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protyush1995/Docto-friend/apperr"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "counter:", time.Second), mr
}

func TestRedisStoreIncrement(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	first, err := s.Increment(ctx, "CLINID", "SUNRISE_CARE")
	require.NoError(t, err)
	second, err := s.Increment(ctx, "CLINID", "SUNRISE_CARE")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	raw, err := mr.Get("counter:CLINID:SUNRISE_CARE")
	require.NoError(t, err)
	assert.Equal(t, "2", raw)
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Increment(context.Background(), "DOCID", "LEE")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
