package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/metrics"
	"github.com/charlesng35/barangay/pkg/response"
)

const maxTrackedKeys = 10_000

// RateStore counts hits per key within a fixed window. cache.Store implementations
// satisfy it, so counters can be shared between instances.
type RateStore interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// MemoryRateStore is a process-local RateStore.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*rateCounter
	clock func() time.Time
}

type rateCounter struct {
	count     int64
	windowEnd time.Time
}

// NewMemoryRateStore constructs an empty in-memory store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{data: make(map[string]*rateCounter), clock: time.Now}
}

// IncrementWithTTL records a hit for key.
func (s *MemoryRateStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) >= maxTrackedKeys {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
	}
	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &rateCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++
	return counter.count, counter.windowEnd.Sub(now), nil
}

// RateLimiter allows max hits per key within window.
type RateLimiter struct {
	store  RateStore
	max    int
	window time.Duration
}

// NewRateLimiter allows max requests per key within window, counted in store. A nil store
// counts in process memory. A non-positive max or window disables limiting.
func NewRateLimiter(max int, window time.Duration, store RateStore) *RateLimiter {
	if store == nil {
		store = NewMemoryRateStore()
	}
	return &RateLimiter{store: store, max: max, window: window}
}

// Allow records a hit for key and reports whether it is within the limit, plus the
// remaining budget and the time until the window resets. When the store fails the hit is
// allowed and the error returned.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	if l.max <= 0 || l.window <= 0 {
		return true, l.max, 0, nil
	}

	count, resetIn, err := l.store.IncrementWithTTL(ctx, key, l.window)
	if err != nil {
		return true, l.max, l.window, err
	}
	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(l.max), remaining, resetIn, nil
}

// RateLimit limits requests per (client IP, route). It guards the public endpoints that
// accept invitation codes, whose six-digit space is otherwise cheap to enumerate.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		allowed, remaining, resetIn, err := limiter.Allow(c.Request.Context(), c.ClientIP()+"|"+c.FullPath())
		if err != nil {
			metrics.RateLimitDecisions.WithLabelValues("store_error").Inc()
			logger.WithModule("http").Warn("rate limit store unavailable",
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if !allowed {
			metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
			logger.WithModule("http").Warn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.FullPath()),
			)
			response.Error(c, errors.ErrRateLimited)
			c.Abort()
			return
		}
		if err == nil {
			metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
		}
		c.Next()
	}
}
