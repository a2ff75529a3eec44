package app

import (
	"context"

	"wedding-pool-service/internal/domain"
)

// Store abstracts persistence for events, categories, participants and bets
// (in-memory, Postgres). Multi-row mutations (event creation with seed
// data, join, settlement) are atomic: they fully apply or fully fail.
type Store interface {
	// UpsertUser keeps the minimal user mirror current.
	UpsertUser(ctx context.Context, user domain.User) error

	// CreateEvent atomically persists the event, its seed categories and the
	// creator's participation. Returns domain.ErrAccessCodeTaken when the
	// access code collides with an existing event.
	CreateEvent(ctx context.Context, event domain.Event, categories []domain.BetCategory, creator domain.Participant) error
	EventByID(ctx context.Context, id string) (domain.Event, error)
	// EventByAccessCode looks up by normalized (uppercase) code.
	EventByAccessCode(ctx context.Context, code string) (domain.Event, error)
	UpdateEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error
	ListEventsForUser(ctx context.Context, userID string) ([]domain.EventSummary, error)
	ListActiveEventIDs(ctx context.Context) ([]string, error)

	AddCategory(ctx context.Context, category domain.BetCategory) error
	CategoryByID(ctx context.Context, id string) (domain.BetCategory, error)
	ListCategories(ctx context.Context, eventID string) ([]domain.BetCategory, error)
	// SetCategoryStatus flips open<->closed. It fails with
	// domain.ErrCategorySettled when the category is already settled.
	SetCategoryStatus(ctx context.Context, categoryID string, status domain.CategoryStatus) error

	// JoinEvent is an idempotent enroll: it returns the existing
	// participation with alreadyJoined=true instead of duplicating the row.
	JoinEvent(ctx context.Context, participant domain.Participant) (joined domain.Participant, alreadyJoined bool, err error)
	Participant(ctx context.Context, eventID, userID string) (domain.Participant, error)
	Participants(ctx context.Context, eventID string) ([]domain.Participant, error)

	// UpsertBet inserts or overwrites the (user, category) bet. The open
	// gate is re-checked atomically with the write; a closed or settled
	// category fails with domain.ErrCategoryNotOpen.
	UpsertBet(ctx context.Context, bet domain.Bet) (domain.Bet, error)
	BetsForCategory(ctx context.Context, categoryID string) ([]domain.Bet, error)
	BetsForUser(ctx context.Context, eventID, userID string) ([]domain.Bet, error)

	// SettleCategory scores every bet in the category against correctOption,
	// marks the category settled and re-derives participant totals, all in
	// one transaction. The status gate runs inside the transaction: a
	// concurrent second attempt observes settled and fails with
	// domain.ErrCategorySettled; a still-open category fails with
	// domain.ErrCategoryNotClosed.
	SettleCategory(ctx context.Context, categoryID, correctOption string) (domain.SettlementResult, error)

	// ReconcileEventTotals re-derives every participant total from the bets
	// table and reports how many rows were corrected.
	ReconcileEventTotals(ctx context.Context, eventID string) (int, error)

	EventStats(ctx context.Context, eventID string) (domain.EventStats, error)
}

// TotalsSource provides the aggregated cross-event standings for the global
// leaderboard. It is a separate read-side contract so it can be served by a
// raw aggregate query or wrapped in a cache.
type TotalsSource interface {
	GlobalTotals(ctx context.Context) ([]domain.UserTotal, error)
}
