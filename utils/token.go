package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Protyush1995/Docto-friend/cache"
)

// DoctorClaims identify a logged-in doctor. Subject is the doctor id.
type DoctorClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator issues HS256 session tokens. Every issued jti is kept in
// Redis until expiry, so a token is only valid while its jti is cached and
// logging out revokes it.
type JwtTokenGenerator struct {
	cache     *cache.Cache
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewJwtTokenGenerator(redisClient redis.UniversalClient, secretKey string, ttl time.Duration) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		cache:     cache.NewCache(redisClient, "jwt:"),
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (g *JwtTokenGenerator) TTL() time.Duration { return g.ttl }

// GenerateJWT signs a token for the doctor and records its jti.
func (g *JwtTokenGenerator) GenerateJWT(ctx context.Context, doctorID, email string) (string, error) {
	now := g.now()
	claims := DoctorClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   doctorID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(g.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	if err := g.cache.Set(ctx, claims.ID, claims.Subject, g.ttl); err != nil {
		return "", errors.Wrap(err, "failed to cache token")
	}
	return signedToken, nil
}

// VerifyJWT parses the token, checks its signature and expiry and that its
// jti has not been revoked.
func (g *JwtTokenGenerator) VerifyJWT(ctx context.Context, tokenString string) (*DoctorClaims, error) {
	claims := &DoctorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return g.secretKey, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}

	var doctorID string
	if err := g.cache.Get(ctx, claims.ID, &doctorID); err != nil {
		return nil, errors.Wrap(err, "token not found in cache")
	}
	if doctorID != claims.Subject {
		return nil, errors.New("token subject mismatch")
	}
	return claims, nil
}

// InvalidateToken revokes a token by jti.
func (g *JwtTokenGenerator) InvalidateToken(ctx context.Context, jti string) error {
	return g.cache.Delete(ctx, jti)
}
