// Package cache holds the counters shared between server instances.
package cache

import (
	"context"
	"time"
)

// Store counts hits per key within a fixed window.
type Store interface {
	// IncrementWithTTL records a hit and returns the count within the current window and
	// the time until the window resets.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
