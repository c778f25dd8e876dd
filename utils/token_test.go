package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenGenerator(t *testing.T) (*JwtTokenGenerator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJwtTokenGenerator(client, "test-secret-key-with-enough-bytes", time.Hour), mr
}

func TestGenerateAndVerifyJWT(t *testing.T) {
	ctx := context.Background()
	g, _ := newTokenGenerator(t)

	token, err := g.GenerateJWT(ctx, "DOCID_LEE_1", "ann.lee@example.com")
	require.NoError(t, err)

	claims, err := g.VerifyJWT(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "DOCID_LEE_1", claims.Subject)
	assert.Equal(t, "ann.lee@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestInvalidatedTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	g, _ := newTokenGenerator(t)

	token, err := g.GenerateJWT(ctx, "DOCID_LEE_1", "ann.lee@example.com")
	require.NoError(t, err)
	claims, err := g.VerifyJWT(ctx, token)
	require.NoError(t, err)

	require.NoError(t, g.InvalidateToken(ctx, claims.ID))
	_, err = g.VerifyJWT(ctx, token)
	assert.Error(t, err)
}

func TestTokenSignedWithOtherKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	g, mr := newTokenGenerator(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	other := NewJwtTokenGenerator(client, "a-completely-different-secret-key", time.Hour)

	token, err := other.GenerateJWT(ctx, "DOCID_LEE_1", "ann.lee@example.com")
	require.NoError(t, err)

	_, err = g.VerifyJWT(ctx, token)
	assert.Error(t, err)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	g, _ := newTokenGenerator(t)
	issued := time.Now().Add(-2 * time.Hour)
	g.now = func() time.Time { return issued }

	token, err := g.GenerateJWT(ctx, "DOCID_LEE_1", "ann.lee@example.com")
	require.NoError(t, err)

	g.now = time.Now
	_, err = g.VerifyJWT(ctx, token)
	assert.Error(t, err)
}
