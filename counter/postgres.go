package counter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// PgExecutor is the subset of *pgxpool.Pool the Postgres store needs.
type PgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createCountersTable = `
CREATE TABLE IF NOT EXISTS id_counters (
	scope      TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      BIGINT      NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scope, key)
)`

const incrementCounter = `
INSERT INTO id_counters (scope, key, value)
VALUES ($1, $2, 1)
ON CONFLICT (scope, key)
DO UPDATE SET value = id_counters.value + 1, updated_at = now()
RETURNING value`

type PostgresStore struct {
	db      PgExecutor
	timeout time.Duration
}

func NewPostgresStore(db PgExecutor, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// EnsureSchema creates the counters table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, createCountersTable); err != nil {
		return apperr.Unavailable("create id_counters", err)
	}
	return nil
}

func (s *PostgresStore) Increment(ctx context.Context, scope, key string) (int64, error) {
	scope, key, err := normalize(scope, key)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var value int64
	if err := s.db.QueryRow(ctx, incrementCounter, scope, key).Scan(&value); err != nil {
		return 0, apperr.Unavailable("counter increment", err)
	}
	return value, nil
}
