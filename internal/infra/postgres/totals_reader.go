package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"wedding-pool-service/internal/domain"
)

// TotalsReader serves the global-leaderboard aggregate straight from
// Postgres. It is the read-side counterpart of Store and is what the
// leaderboard cache wraps.
type TotalsReader struct {
	pool *pgxpool.Pool
}

func NewTotalsReader(pool *pgxpool.Pool) *TotalsReader {
	return &TotalsReader{pool: pool}
}

func (r *TotalsReader) GlobalTotals(ctx context.Context) ([]domain.UserTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id,
		       coalesce(u.email, ''),
		       coalesce(sum(p.total_points), 0),
		       count(DISTINCT p.event_id)
		FROM event_participants p
		LEFT JOIN users u ON u.id = p.user_id
		GROUP BY p.user_id, u.email
		ORDER BY p.user_id`)
	if err != nil {
		return nil, fmt.Errorf("query global totals: %w", err)
	}
	defer rows.Close()

	var totals []domain.UserTotal
	for rows.Next() {
		var total domain.UserTotal
		if err := rows.Scan(&total.UserID, &total.Email, &total.TotalPoints, &total.EventsParticipated); err != nil {
			return nil, fmt.Errorf("scan global totals: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate global totals: %w", err)
	}
	return totals, nil
}
