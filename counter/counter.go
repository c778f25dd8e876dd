// Package counter provides durable, atomic per-key sequences used to build
// human-readable identifiers such as DOCID_LEE_3.
package counter

import (
	"context"
	"strings"
	"time"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// Store hands out strictly increasing values per (scope, key). Values are
// never reused, gaps are allowed.
type Store interface {
	Increment(ctx context.Context, scope, key string) (int64, error)
}

const DefaultTimeout = 5 * time.Second

// normalize trims scope and key and rejects either being blank.
func normalize(scope, key string) (string, string, error) {
	scope = strings.TrimSpace(scope)
	key = strings.TrimSpace(key)
	if scope == "" {
		return "", "", apperr.InvalidSeed("scope", "counter scope must not be empty")
	}
	if key == "" {
		return "", "", apperr.InvalidSeed("key", "counter key must not be empty")
	}
	return scope, key, nil
}

func compositeKey(scope, key string) (string, error) {
	scope, key, err := normalize(scope, key)
	if err != nil {
		return "", err
	}
	return scope + ":" + key, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
