package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"wedding-pool-service/internal/domain"
)

// Store is the bun-backed implementation of app.Store. Every multi-row
// mutation (event creation with seed data, join, settlement) runs inside a
// single transaction.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	row := userRow{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE u.email END").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, event domain.Event, categories []domain.BetCategory, creator domain.Participant) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := eventRow{
			ID:          event.ID,
			Title:       event.Title,
			Description: event.Description,
			Date:        event.Date,
			CreatorID:   event.CreatorID,
			AccessCode:  strings.ToUpper(event.AccessCode),
			Status:      string(event.Status),
			CreatedAt:   event.CreatedAt,
			UpdatedAt:   event.UpdatedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAccessCodeTaken
			}
			return fmt.Errorf("insert event: %w", err)
		}

		if len(categories) > 0 {
			rows := make([]categoryRow, 0, len(categories))
			for _, category := range categories {
				rows = append(rows, categoryRowFromDomain(category))
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert seed categories: %w", err)
			}
		}

		participant := participantRow{
			EventID:     creator.EventID,
			UserID:      creator.UserID,
			TotalPoints: 0,
			JoinedAt:    creator.JoinedAt,
		}
		if _, err := tx.NewInsert().Model(&participant).Exec(ctx); err != nil {
			return fmt.Errorf("enroll creator: %w", err)
		}
		return nil
	})
	return err
}

func (s *Store) EventByID(ctx context.Context, id string) (domain.Event, error) {
	var row eventRow
	err := s.db.NewSelect().Model(&row).Where("e.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("select event: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) EventByAccessCode(ctx context.Context, code string) (domain.Event, error) {
	var row eventRow
	err := s.db.NewSelect().Model(&row).Where("e.access_code = upper(?)", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("select event by code: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error {
	res, err := s.db.NewUpdate().
		Model((*eventRow)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = now()").
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (s *Store) ListEventsForUser(ctx context.Context, userID string) ([]domain.EventSummary, error) {
	var rows []eventSummaryRow
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("e.*").
		ColumnExpr("(SELECT count(*) FROM event_participants pc WHERE pc.event_id = e.id) AS participant_count").
		Join("LEFT JOIN event_participants AS p ON p.event_id = e.id AND p.user_id = ?", userID).
		Where("p.user_id IS NOT NULL OR e.creator_id = ?", userID).
		OrderExpr("e.created_at DESC, e.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	summaries := make([]domain.EventSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domain.EventSummary{
			Event:            row.toDomain(),
			ParticipantCount: row.ParticipantCount,
			IsCreator:        row.CreatorID == userID,
		})
	}
	return summaries, nil
}

func (s *Store) ListActiveEventIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*eventRow)(nil)).
		Column("e.id").
		Where("e.status = ?", string(domain.EventActive)).
		OrderExpr("e.id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	return ids, nil
}

func (s *Store) AddCategory(ctx context.Context, category domain.BetCategory) error {
	row := categoryRowFromDomain(category)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) CategoryByID(ctx context.Context, id string) (domain.BetCategory, error) {
	var row categoryRow
	err := s.db.NewSelect().Model(&row).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BetCategory{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.BetCategory{}, fmt.Errorf("select category: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListCategories(ctx context.Context, eventID string) ([]domain.BetCategory, error) {
	var rows []categoryRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("c.event_id = ?", eventID).
		OrderExpr("c.seq").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]domain.BetCategory, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, row.toDomain())
	}
	return categories, nil
}

func (s *Store) SetCategoryStatus(ctx context.Context, categoryID string, status domain.CategoryStatus) error {
	res, err := s.db.NewUpdate().
		Model((*categoryRow)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", categoryID).
		Where("status != ?", string(domain.CategorySettled)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update category status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Distinguish a missing category from a settled one.
		if _, err := s.CategoryByID(ctx, categoryID); err != nil {
			return err
		}
		return domain.ErrCategorySettled
	}
	return nil
}

func (s *Store) JoinEvent(ctx context.Context, participant domain.Participant) (domain.Participant, bool, error) {
	row := participantRow{
		EventID:     participant.EventID,
		UserID:      participant.UserID,
		TotalPoints: 0,
		JoinedAt:    participant.JoinedAt,
	}
	res, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (event_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Participant{}, false, domain.ErrEventNotFound
		}
		return domain.Participant{}, false, fmt.Errorf("join event: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return participant, false, nil
	}

	existing, err := s.Participant(ctx, participant.EventID, participant.UserID)
	if err != nil {
		return domain.Participant{}, false, err
	}
	return existing, true, nil
}

func (s *Store) Participant(ctx context.Context, eventID, userID string) (domain.Participant, error) {
	var row participantRow
	err := s.db.NewSelect().
		Model(&row).
		ColumnExpr("p.*").
		ColumnExpr("coalesce(u.email, '') AS email").
		Join("LEFT JOIN users AS u ON u.id = p.user_id").
		Where("p.event_id = ? AND p.user_id = ?", eventID, userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) Participants(ctx context.Context, eventID string) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("p.*").
		ColumnExpr("coalesce(u.email, '') AS email").
		Join("LEFT JOIN users AS u ON u.id = p.user_id").
		Where("p.event_id = ?", eventID).
		OrderExpr("p.total_points DESC, p.joined_at, p.user_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	participants := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, row.toDomain())
	}
	return participants, nil
}

func (s *Store) UpsertBet(ctx context.Context, bet domain.Bet) (domain.Bet, error) {
	var stored betRow
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Lock the category row shared so the open gate serializes against a
		// concurrent settlement, which locks it exclusively.
		var status string
		err := tx.NewSelect().
			Model((*categoryRow)(nil)).
			Column("c.status").
			Where("c.id = ?", bet.CategoryID).
			For("SHARE").
			Scan(ctx, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("lock category: %w", err)
		}
		if domain.CategoryStatus(status) != domain.CategoryOpen {
			return domain.ErrCategoryNotOpen
		}

		row := betRowFromDomain(bet)
		err = tx.NewInsert().
			Model(&row).
			On("CONFLICT (user_id, category_id) DO UPDATE").
			Set("selected_option = EXCLUDED.selected_option").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("*").
			Scan(ctx, &row)
		if err != nil {
			return fmt.Errorf("upsert bet: %w", err)
		}
		stored = row
		return nil
	})
	if err != nil {
		return domain.Bet{}, err
	}
	return stored.toDomain(), nil
}

func (s *Store) BetsForCategory(ctx context.Context, categoryID string) ([]domain.Bet, error) {
	var rows []betRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("b.category_id = ?", categoryID).
		OrderExpr("b.user_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category bets: %w", err)
	}
	return betsToDomain(rows), nil
}

func (s *Store) BetsForUser(ctx context.Context, eventID, userID string) ([]domain.Bet, error) {
	var rows []betRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("b.event_id = ? AND b.user_id = ?", eventID, userID).
		OrderExpr("b.category_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user bets: %w", err)
	}
	return betsToDomain(rows), nil
}

func (s *Store) SettleCategory(ctx context.Context, categoryID, correctOption string) (domain.SettlementResult, error) {
	result := domain.SettlementResult{CategoryID: categoryID, CorrectAnswer: correctOption}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Exclusive lock: the second of two concurrent settlement attempts
		// blocks here and then observes status=settled.
		var row categoryRow
		err := tx.NewSelect().
			Model(&row).
			Where("c.id = ?", categoryID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("lock category: %w", err)
		}
		switch domain.CategoryStatus(row.Status) {
		case domain.CategorySettled:
			return domain.ErrCategorySettled
		case domain.CategoryOpen:
			return domain.ErrCategoryNotClosed
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bets
			SET is_correct = (selected_option = ?),
			    points_earned = CASE WHEN selected_option = ? THEN ? ELSE 0 END,
			    updated_at = now()
			WHERE category_id = ?`,
			correctOption, correctOption, row.Points, categoryID,
		); err != nil {
			return fmt.Errorf("score bets: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `
			SELECT count(*),
			       count(*) FILTER (WHERE is_correct),
			       coalesce(sum(points_earned), 0)
			FROM bets WHERE category_id = ?`, categoryID,
		).Scan(&result.BetsScored, &result.Winners, &result.PointsAwarded); err != nil {
			return fmt.Errorf("tally settlement: %w", err)
		}

		// Re-derive totals from bet state rather than incrementing, so the
		// cached aggregate can never drift within a settled event.
		if _, err := tx.ExecContext(ctx, `
			UPDATE event_participants p
			SET total_points = derived.total
			FROM (
				SELECT p2.user_id, coalesce(sum(b.points_earned), 0) AS total
				FROM event_participants p2
				LEFT JOIN bets b ON b.event_id = p2.event_id AND b.user_id = p2.user_id
				WHERE p2.event_id = ?
				GROUP BY p2.user_id
			) derived
			WHERE p.event_id = ? AND p.user_id = derived.user_id`,
			row.EventID, row.EventID,
		); err != nil {
			return fmt.Errorf("recompute totals: %w", err)
		}

		if _, err := tx.NewUpdate().
			Model((*categoryRow)(nil)).
			Set("status = ?", string(domain.CategorySettled)).
			Set("correct_answer = ?", correctOption).
			Where("id = ?", categoryID).
			Exec(ctx); err != nil {
			return fmt.Errorf("mark settled: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.SettlementResult{}, err
	}
	return result, nil
}

func (s *Store) ReconcileEventTotals(ctx context.Context, eventID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE event_participants p
		SET total_points = derived.total
		FROM (
			SELECT p2.user_id, coalesce(sum(b.points_earned), 0) AS total
			FROM event_participants p2
			LEFT JOIN bets b ON b.event_id = p2.event_id AND b.user_id = p2.user_id
			WHERE p2.event_id = ?
			GROUP BY p2.user_id
		) derived
		WHERE p.event_id = ? AND p.user_id = derived.user_id
		  AND p.total_points <> derived.total`,
		eventID, eventID,
	)
	if err != nil {
		return 0, fmt.Errorf("reconcile totals: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *Store) EventStats(ctx context.Context, eventID string) (domain.EventStats, error) {
	var stats domain.EventStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM event_participants WHERE event_id = ?),
			(SELECT count(*) FROM bets WHERE event_id = ?),
			count(*) FILTER (WHERE status = 'open'),
			count(*) FILTER (WHERE status = 'settled'),
			count(*)
		FROM bet_categories WHERE event_id = ?`,
		eventID, eventID, eventID,
	).Scan(
		&stats.ParticipantCount,
		&stats.BetCount,
		&stats.OpenCategories,
		&stats.SettledCategories,
		&stats.TotalCategories,
	)
	if err != nil {
		return domain.EventStats{}, fmt.Errorf("event stats: %w", err)
	}
	return stats, nil
}

func betsToDomain(rows []betRow) []domain.Bet {
	bets := make([]domain.Bet, 0, len(rows))
	for _, row := range rows {
		bets = append(bets, row.toDomain())
	}
	return bets
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}
