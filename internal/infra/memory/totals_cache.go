package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wedding-pool-service/internal/domain"
)

// TotalsSource provides the aggregated cross-event standings.
type TotalsSource interface {
	GlobalTotals(ctx context.Context) ([]domain.UserTotal, error)
}

// TotalsCache caches the global standings with a TTL to keep leaderboard
// reads off the aggregate query.
type TotalsCache struct {
	source TotalsSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.UserTotal
	expiresAt time.Time
}

func NewTotalsCache(source TotalsSource, ttl time.Duration) *TotalsCache {
	return &TotalsCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TotalsCache) GlobalTotals(ctx context.Context) ([]domain.UserTotal, error) {
	now := c.clock()

	c.mu.RLock()
	if c.cached != nil && c.expiresAt.After(now) {
		totals := c.cached
		c.mu.RUnlock()
		return totals, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("global", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.cached != nil && c.expiresAt.After(now) {
			totals := c.cached
			c.mu.RUnlock()
			return totals, nil
		}
		c.mu.RUnlock()

		totals, err := c.source.GlobalTotals(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = totals
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.UserTotal), nil
}

// Invalidate drops the cached standings; settlement calls this so the next
// read sees fresh totals.
func (c *TotalsCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
	return nil
}

func (c *TotalsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
