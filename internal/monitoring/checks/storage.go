package checks

import (
	"context"
	"time"

	"github.com/charlesng35/barangay/internal/monitoring"
)

// StorageProber reports whether the document store is reachable.
type StorageProber interface {
	Ping(ctx context.Context) error
}

// Storage returns a readiness probe for the document object store.
func Storage(store StorageProber) monitoring.Check {
	return monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "storage not configured",
				Duration: time.Since(start),
			}
		}
		return monitoring.ResultFromError("storage", store.Ping(ctx), time.Since(start))
	})
}
