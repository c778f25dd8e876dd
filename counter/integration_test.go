//go:build integration

package counter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/counter"
	"github.com/Protyush1995/Docto-friend/testutil/containers"
)

type CounterStoreSuite struct {
	suite.Suite
	mongo    *containers.MongoContainer
	postgres *containers.PostgresContainer
}

func TestCounterStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CounterStoreSuite))
}

func (s *CounterStoreSuite) SetupSuite() {
	s.mongo = containers.NewMongoContainer(s.T())
	s.postgres = containers.NewPostgresContainer(s.T())
}

func (s *CounterStoreSuite) stores() map[string]counter.Store {
	pg := counter.NewPostgresStore(s.postgres.Pool, 5*time.Second)
	s.Require().NoError(pg.EnsureSchema(context.Background()))
	_, err := s.postgres.Pool.Exec(context.Background(), "TRUNCATE id_counters")
	s.Require().NoError(err)

	return map[string]counter.Store{
		"mongo":    counter.NewMongoStore(s.mongo.FreshDatabase(), 5*time.Second, zap.NewNop()),
		"postgres": pg,
	}
}

// TestConcurrentIncrementsNeverCollide hammers a single key from many
// goroutines and checks every value is handed out exactly once.
func (s *CounterStoreSuite) TestConcurrentIncrementsNeverCollide() {
	const goroutines, perGoroutine = 25, 20

	for name, store := range s.stores() {
		s.Run(name, func() {
			var (
				mu   sync.Mutex
				seen = make(map[int64]int)
				wg   sync.WaitGroup
			)
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						n, err := store.Increment(context.Background(), "DOCID", "LEE")
						s.NoError(err)
						mu.Lock()
						seen[n]++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			s.Len(seen, goroutines*perGoroutine)
			for v, count := range seen {
				s.Equal(1, count, "value %d issued more than once", v)
			}
		})
	}
}

func (s *CounterStoreSuite) TestCountersSurviveNewStoreInstance() {
	db := s.mongo.FreshDatabase()
	first := counter.NewMongoStore(db, 5*time.Second, zap.NewNop())
	n, err := first.Increment(context.Background(), "CLINID", "SUNRISE")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	second := counter.NewMongoStore(db, 5*time.Second, zap.NewNop())
	n, err = second.Increment(context.Background(), "CLINID", "SUNRISE")
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}
