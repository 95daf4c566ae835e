package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/dineatlas/restaurant-directory/internal/core/ports"
)

// BreakerCache wraps another Cache with a circuit breaker. When the backend
// is flapping, calls fail fast with gobreaker.ErrOpenState instead of
// holding every request for the full network timeout; the service layer
// already treats any cache error as a miss, so an open breaker degrades to
// store-only operation.
type BreakerCache struct {
	inner ports.Cache
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerCache(inner ports.Cache, logger *logrus.Logger) *BreakerCache {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lookaside-cache",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("cache circuit breaker state changed")
			}
		},
	})
	return &BreakerCache{inner: inner, cb: cb}
}

type getResult struct {
	value []byte
	found bool
}

// Get implements Cache.Get.
func (c *BreakerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := c.cb.Execute(func() (any, error) {
		value, found, err := c.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{value: value, found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.value, r.found, nil
}

// Set implements Cache.Set.
func (c *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.inner.Set(ctx, key, value, ttl)
	})
	return err
}

// Delete implements Cache.Delete.
func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.inner.Delete(ctx, key)
	})
	return err
}

var _ ports.Cache = (*BreakerCache)(nil)
