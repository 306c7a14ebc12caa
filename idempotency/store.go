package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate signals the key was already registered by another request.
var ErrDuplicate = errors.New("idempotency: duplicate request")

// PGStore registers idempotency keys in Postgres. The primary key on the
// keys table makes registration first-wins.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Register claims key for the calling request. It reports false when another
// request already holds it.
func (s *PGStore) Register(ctx context.Context, key string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO idempotency (key) VALUES ($1)
ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return false, MarkRetryable(fmt.Errorf("idempotency: register %s: %w", key, err))
	}
	return tag.RowsAffected() == 1, nil
}

// Release frees key so the request may be retried. Used as the registration
// step's compensation when a later step fails.
func (s *PGStore) Release(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency WHERE key = $1`, key); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}
