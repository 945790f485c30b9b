package checks

import (
	"context"
	"time"

	"github.com/charlesng35/barangay/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis probes the shared rate-limit counter store. Rate limiting falls back to allowing
// requests when redis is unreachable, so a failure only degrades the report.
func Redis(client RedisPinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "redis unavailable",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  err.Error(),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
