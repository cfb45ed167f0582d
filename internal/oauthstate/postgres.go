package oauthstate

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps states in Postgres so any instance can complete a callback.
// Only sha256(state) is stored.
type PGStore struct {
	pool pgxQuerier
	now  func() time.Time
}

func NewPGStore(pool pgxQuerier) *PGStore {
	return &PGStore{pool: pool, now: time.Now}
}

func hashState(state string) []byte {
	h := sha256.Sum256([]byte(state))
	return h[:]
}

func (s *PGStore) Put(ctx context.Context, state string, sellerID uuid.UUID, ttl time.Duration) error {
	const q = `INSERT INTO oauth_states (state_hash, seller_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, q, hashState(state), sellerID, s.now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// TakeOnce deletes the row and reads it back in one statement, so two racing
// callbacks with the same state cannot both succeed.
func (s *PGStore) TakeOnce(ctx context.Context, state string) (uuid.UUID, bool, error) {
	const q = `DELETE FROM oauth_states WHERE state_hash=$1 RETURNING seller_id, expires_at`
	var (
		sellerID  uuid.UUID
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx, q, hashState(state)).Scan(&sellerID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to take oauth state: %w", err)
	}
	if !s.now().Before(expiresAt) {
		return uuid.Nil, false, nil
	}
	return sellerID, true, nil
}

func (s *PGStore) Purge(ctx context.Context) (int, error) {
	const q = `DELETE FROM oauth_states WHERE expires_at <= $1`
	tag, err := s.pool.Exec(ctx, q, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge oauth states: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
