// Package limiter implements per-client request budgets shared across instances.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter counts hits per (bucket, client) in fixed windows.
type Limiter interface {
	// Allow records one hit and reports whether it fits in limit for the current
	// window. When it does not, retryAfter is the time left in the window.
	Allow(ctx context.Context, bucket string, ipHash []byte, limit int, window time.Duration) (ok bool, retryAfter time.Duration, err error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
