package counter

import (
	"context"
	"sync"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// MemoryStore keeps counters in process memory. Suitable for tests and
// single-instance development runs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Increment(ctx context.Context, scope, key string) (int64, error) {
	id, err := compositeKey(scope, key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, apperr.Unavailable("counter increment", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id]++
	return s.values[id], nil
}
