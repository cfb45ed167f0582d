package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// PG is a PostgreSQL-backed fixed-window limiter.
type PG struct {
	pool pgxQuerier
	now  func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG accepts a *pgxpool.Pool or anything else that can Exec and QueryRow.
func NewPG(q pgxQuerier) *PG {
	return &PG{pool: q, now: time.Now}
}

// Allow bumps the counter for the window containing now. A row left over from
// an earlier window is reset to 1.
func (l *PG) Allow(ctx context.Context, bucket string, ipHash []byte, limit int, window time.Duration) (bool, time.Duration, error) {
	now := l.now()
	start := now.Truncate(window)

	const q = `
INSERT INTO rate_limits (bucket, ip_hash, window_start, hits)
VALUES ($1, $2, $3, 1)
ON CONFLICT (bucket, ip_hash) DO UPDATE
SET
  hits = CASE WHEN rate_limits.window_start = EXCLUDED.window_start THEN rate_limits.hits + 1 ELSE 1 END,
  window_start = EXCLUDED.window_start
RETURNING hits`
	var hits int
	if err := l.pool.QueryRow(ctx, q, bucket, ipHash, start).Scan(&hits); err != nil {
		return false, 0, err
	}
	if hits > limit {
		return false, start.Add(window).Sub(now), nil
	}
	return true, 0, nil
}

// Purge drops counters whose window ended before olderThan.
func (l *PG) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	const q = `DELETE FROM rate_limits WHERE window_start < $1`
	tag, err := l.pool.Exec(ctx, q, l.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// RunJanitor purges stale counters every interval until ctx is done.
func (l *PG) RunJanitor(ctx context.Context, interval, retain time.Duration, log *zap.Logger) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := l.Purge(ctx, retain)
			if err != nil {
				log.Warn("rate limit purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("rate limit counters purged", zap.Int("count", n))
			}
		}
	}
}
