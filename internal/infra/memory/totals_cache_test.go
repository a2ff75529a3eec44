package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"wedding-pool-service/internal/domain"
)

type countingSource struct {
	calls  atomic.Int64
	totals []domain.UserTotal
}

func (s *countingSource) GlobalTotals(context.Context) ([]domain.UserTotal, error) {
	s.calls.Add(1)
	return s.totals, nil
}

func TestTotalsCacheServesFromCache(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{totals: []domain.UserTotal{{UserID: "u1", TotalPoints: 30}}}
	cache := NewTotalsCache(source, time.Minute)

	for i := 0; i < 3; i++ {
		totals, err := cache.GlobalTotals(ctx)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(totals) != 1 || totals[0].UserID != "u1" {
			t.Fatalf("unexpected totals: %+v", totals)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected a single source call, got %d", got)
	}
}

func TestTotalsCacheInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{totals: []domain.UserTotal{{UserID: "u1", TotalPoints: 30}}}
	cache := NewTotalsCache(source, time.Minute)

	if _, err := cache.GlobalTotals(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	source.totals = []domain.UserTotal{{UserID: "u1", TotalPoints: 45}}

	totals, err := cache.GlobalTotals(ctx)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if totals[0].TotalPoints != 45 {
		t.Fatalf("expected fresh totals after invalidate, got %+v", totals[0])
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected 2 source calls, got %d", got)
	}
}

func TestTotalsCacheExpires(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{totals: []domain.UserTotal{{UserID: "u1"}}}
	cache := NewTotalsCache(source, time.Minute)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	if _, err := cache.GlobalTotals(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.GlobalTotals(ctx); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := source.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", got)
	}
}
