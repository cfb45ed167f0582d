package oauthstate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GCInterval is how often expired states are purged.
const GCInterval = 5 * time.Minute

// RunJanitor purges expired states every interval until ctx is done.
func RunJanitor(ctx context.Context, s Store, interval time.Duration, log *zap.Logger) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.Warn("oauth state purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("oauth states purged", zap.Int("count", n))
			}
		}
	}
}
