package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"wedding-pool-service/internal/domain"
)

const totalsKey = "leaderboard:global:totals"

// TotalsSource provides the aggregated cross-event standings.
type TotalsSource interface {
	GlobalTotals(ctx context.Context) ([]domain.UserTotal, error)
}

// TotalsCache keeps the global standings as a JSON blob in Redis and falls
// back to the source on cache miss. Settlement invalidates the key so ranks
// never lag a settled category for longer than one read.
type TotalsCache struct {
	client *redis.Client
	source TotalsSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTotalsCache(client *redis.Client, source TotalsSource, ttl time.Duration) *TotalsCache {
	return &TotalsCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TotalsCache) GlobalTotals(ctx context.Context) ([]domain.UserTotal, error) {
	if totals, ok := c.fromCache(ctx); ok {
		return totals, nil
	}

	result, err, _ := c.sf.Do(totalsKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if totals, ok := c.fromCache(ctx); ok {
			return totals, nil
		}

		totals, err := c.source.GlobalTotals(ctx)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(totals); err == nil {
			// best-effort: a failed cache write only costs the next read a query
			_ = c.client.Set(ctx, totalsKey, raw, c.ttlWithJitter()).Err()
		}
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.UserTotal), nil
}

// Invalidate drops the cached standings.
func (c *TotalsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, totalsKey).Err()
}

func (c *TotalsCache) fromCache(ctx context.Context) ([]domain.UserTotal, bool) {
	raw, err := c.client.Get(ctx, totalsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var totals []domain.UserTotal
	if err := json.Unmarshal(raw, &totals); err != nil {
		return nil, false
	}
	return totals, true
}

func (c *TotalsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
