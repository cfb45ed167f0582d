package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"livey-backend/internal/models"
	"livey-backend/internal/repository"
)

const (
	SweepBatchSize = 50
	MaxSyncRetries = 10

	baseBackoffSeconds = 300
)

// BackoffSeconds is 300 * 3^retryCount: 5m, 15m, 45m, 2h15m, ...
func BackoffSeconds(retryCount int) int64 {
	d := int64(baseBackoffSeconds)
	for i := 0; i < retryCount; i++ {
		d *= 3
	}
	return d
}

// IsRetryDue reports whether o has waited out its backoff. An order that was
// never updated is always due.
func IsRetryDue(o *models.Order, now time.Time) bool {
	if o.UpdatedAt == nil {
		return true
	}
	wait := time.Duration(BackoffSeconds(o.SyncRetryCount)) * time.Second
	return now.Sub(*o.UpdatedAt) >= wait
}

// RetryService re-attempts sheet sync for orders that previously failed.
type RetryService struct {
	orders repository.OrderRepository
	syncer Syncer
	now    func() time.Time
	log    *zap.Logger
}

func NewRetryService(orders repository.OrderRepository, syncer Syncer, log *zap.Logger) *RetryService {
	return &RetryService{orders: orders, syncer: syncer, now: time.Now, log: log}
}

// Sweep processes one batch sequentially. Per-order failures are counted, not returned.
func (s *RetryService) Sweep(ctx context.Context) (*models.SweepResult, error) {
	candidates, err := s.orders.ListUnsynced(ctx, MaxSyncRetries, SweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("list unsynced orders: %w", err)
	}

	res := &models.SweepResult{Total: len(candidates)}
	now := s.now()

	for i := range candidates {
		o := &candidates[i]
		if !IsRetryDue(o, now) {
			res.Skipped++
			continue
		}
		if ctx.Err() != nil {
			break
		}

		res.Processed++
		if err := s.syncer.SyncOrder(ctx, o); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	res.Message = fmt.Sprintf("Processed %d orders: %d succeeded, %d failed, %d skipped (backoff)",
		res.Processed, res.Succeeded, res.Failed, res.Skipped)

	s.log.Info("retry sweep completed",
		zap.Int("total", res.Total),
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Run sweeps every interval until ctx is done.
func (s *RetryService) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("retry sweep failed", zap.Error(err))
			}
		}
	}
}
