package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wedding-pool-service/internal/accesscode"
	"wedding-pool-service/internal/domain"
)

// maxCodeAttempts bounds the access-code retry loop on uniqueness conflicts.
const maxCodeAttempts = 5

// EventService contains the event lifecycle and betting use cases: create,
// join by code, category status toggles, bet placement and settlement.
type EventService struct {
	store Store
	codes *accesscode.Generator
	clock func() time.Time
}

func NewEventService(store Store, codes *accesscode.Generator) *EventService {
	return &EventService{store: store, codes: codes, clock: time.Now}
}

// NewEventServiceWithClock is test-only for deterministic timestamps.
func NewEventServiceWithClock(store Store, codes *accesscode.Generator, now func() time.Time) *EventService {
	return &EventService{store: store, codes: codes, clock: now}
}

// CreateEventInput carries the organizer-supplied fields. Categories may be
// empty, in which case the default wedding catalog is seeded.
type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Categories  []domain.CategorySeed
}

// CreateEvent validates input, draws a unique access code and atomically
// persists the event, its seed categories and the creator's participation.
func (s *EventService) CreateEvent(ctx context.Context, session domain.Session, input CreateEventInput) (domain.Event, error) {
	if input.Title == "" {
		return domain.Event{}, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if input.Date.IsZero() {
		return domain.Event{}, fmt.Errorf("%w: date is required", domain.ErrInvalidArgument)
	}
	seeds := input.Categories
	if len(seeds) == 0 {
		seeds = DefaultCategories()
	}
	for _, seed := range seeds {
		if err := validateCategorySeed(seed); err != nil {
			return domain.Event{}, err
		}
	}

	if err := s.ensureUser(ctx, session); err != nil {
		return domain.Event{}, err
	}

	now := s.clock()
	event := domain.Event{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Date:        input.Date,
		CreatorID:   session.UserID,
		Status:      domain.EventActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	categories := make([]domain.BetCategory, 0, len(seeds))
	for _, seed := range seeds {
		categories = append(categories, s.categoryFromSeed(event.ID, seed, now))
	}
	creator := domain.Participant{
		EventID:  event.ID,
		UserID:   session.UserID,
		Email:    session.Email,
		JoinedAt: now,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		event.AccessCode = s.codes.Generate()
		err := s.store.CreateEvent(ctx, event, categories, creator)
		if err == nil {
			return event, nil
		}
		if err != domain.ErrAccessCodeTaken {
			return domain.Event{}, err
		}
	}
	return domain.Event{}, fmt.Errorf("could not allocate a unique access code after %d attempts", maxCodeAttempts)
}

// JoinByCode redeems an access code. Redeeming a code for an event the user
// already joined returns the existing participation and alreadyJoined=true;
// an unknown code fails with domain.ErrEventNotFound.
func (s *EventService) JoinByCode(ctx context.Context, session domain.Session, code string) (domain.Event, domain.Participant, bool, error) {
	normalized := accesscode.Normalize(code)
	if normalized == "" {
		return domain.Event{}, domain.Participant{}, false, fmt.Errorf("%w: access code is required", domain.ErrInvalidArgument)
	}

	event, err := s.store.EventByAccessCode(ctx, normalized)
	if err != nil {
		return domain.Event{}, domain.Participant{}, false, err
	}
	if err := s.ensureUser(ctx, session); err != nil {
		return domain.Event{}, domain.Participant{}, false, err
	}

	participant, alreadyJoined, err := s.store.JoinEvent(ctx, domain.Participant{
		EventID:  event.ID,
		UserID:   session.UserID,
		Email:    session.Email,
		JoinedAt: s.clock(),
	})
	if err != nil {
		return domain.Event{}, domain.Participant{}, false, err
	}
	return event, participant, alreadyJoined, nil
}

// AddCategory appends a category to an event. Creator-only.
func (s *EventService) AddCategory(ctx context.Context, session domain.Session, eventID string, seed domain.CategorySeed) (domain.BetCategory, error) {
	if err := validateCategorySeed(seed); err != nil {
		return domain.BetCategory{}, err
	}
	event, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.BetCategory{}, err
	}
	if event.CreatorID != session.UserID {
		return domain.BetCategory{}, domain.ErrNotCreator
	}
	category := s.categoryFromSeed(event.ID, seed, s.clock())
	if err := s.store.AddCategory(ctx, category); err != nil {
		return domain.BetCategory{}, err
	}
	return category, nil
}

// SetCategoryStatus toggles a category between open and closed. Creator-only;
// a settled category can never be reverted.
func (s *EventService) SetCategoryStatus(ctx context.Context, session domain.Session, categoryID string, status domain.CategoryStatus) (domain.BetCategory, error) {
	if status != domain.CategoryOpen && status != domain.CategoryClosed {
		return domain.BetCategory{}, fmt.Errorf("%w: status must be open or closed", domain.ErrInvalidArgument)
	}
	category, err := s.store.CategoryByID(ctx, categoryID)
	if err != nil {
		return domain.BetCategory{}, err
	}
	event, err := s.store.EventByID(ctx, category.EventID)
	if err != nil {
		return domain.BetCategory{}, err
	}
	if event.CreatorID != session.UserID {
		return domain.BetCategory{}, domain.ErrNotCreator
	}
	if err := s.store.SetCategoryStatus(ctx, categoryID, status); err != nil {
		return domain.BetCategory{}, err
	}
	category.Status = status
	return category, nil
}

// UpdateEventStatus flips the administrative event status. Creator-only.
func (s *EventService) UpdateEventStatus(ctx context.Context, session domain.Session, eventID string, status domain.EventStatus) error {
	switch status {
	case domain.EventActive, domain.EventCompleted, domain.EventCancelled:
	default:
		return fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidArgument, status)
	}
	event, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != session.UserID {
		return domain.ErrNotCreator
	}
	return s.store.UpdateEventStatus(ctx, eventID, status)
}

// PlaceBet records the caller's selected option for a category. The bet is
// an upsert keyed on (user, category): re-placing while the category is
// still open overwrites the previous selection.
func (s *EventService) PlaceBet(ctx context.Context, session domain.Session, categoryID, option string) (domain.Bet, error) {
	category, err := s.store.CategoryByID(ctx, categoryID)
	if err != nil {
		return domain.Bet{}, err
	}
	if category.Status != domain.CategoryOpen {
		return domain.Bet{}, domain.ErrCategoryNotOpen
	}
	if !category.HasOption(option) {
		return domain.Bet{}, domain.ErrOptionUnknown
	}
	if _, err := s.store.Participant(ctx, category.EventID, session.UserID); err != nil {
		if err == domain.ErrParticipantNotFound {
			return domain.Bet{}, domain.ErrNotParticipant
		}
		return domain.Bet{}, err
	}

	now := s.clock()
	return s.store.UpsertBet(ctx, domain.Bet{
		ID:             uuid.NewString(),
		UserID:         session.UserID,
		EventID:        category.EventID,
		CategoryID:     category.ID,
		SelectedOption: option,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Settle declares the correct option for a closed category and scores every
// bet in it. Creator-only, terminal and atomic: the category flips to
// settled, each bet gets is_correct and points_earned, and participant
// totals are re-derived from bets in the same transaction.
func (s *EventService) Settle(ctx context.Context, session domain.Session, categoryID, correctOption string) (domain.SettlementResult, error) {
	category, err := s.store.CategoryByID(ctx, categoryID)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	event, err := s.store.EventByID(ctx, category.EventID)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	if event.CreatorID != session.UserID {
		return domain.SettlementResult{}, domain.ErrNotCreator
	}
	if !category.HasOption(correctOption) {
		return domain.SettlementResult{}, domain.ErrOptionUnknown
	}
	// The store re-checks the closed gate inside the settlement transaction;
	// this early check only gives callers a precise error without a write.
	switch category.Status {
	case domain.CategorySettled:
		return domain.SettlementResult{}, domain.ErrCategorySettled
	case domain.CategoryOpen:
		return domain.SettlementResult{}, domain.ErrCategoryNotClosed
	}
	return s.store.SettleCategory(ctx, categoryID, correctOption)
}

// EventDetail returns the full projection for one event: the event itself,
// categories in creation order, participants ordered by points and the
// caller's bets. Participants only.
func (s *EventService) EventDetail(ctx context.Context, session domain.Session, eventID string) (domain.EventDetail, error) {
	event, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return domain.EventDetail{}, err
	}
	if _, err := s.store.Participant(ctx, eventID, session.UserID); err != nil {
		if err == domain.ErrParticipantNotFound {
			return domain.EventDetail{}, domain.ErrNotParticipant
		}
		return domain.EventDetail{}, err
	}
	categories, err := s.store.ListCategories(ctx, eventID)
	if err != nil {
		return domain.EventDetail{}, err
	}
	participants, err := s.store.Participants(ctx, eventID)
	if err != nil {
		return domain.EventDetail{}, err
	}
	myBets, err := s.store.BetsForUser(ctx, eventID, session.UserID)
	if err != nil {
		return domain.EventDetail{}, err
	}
	return domain.EventDetail{
		Event:        event,
		Categories:   categories,
		Participants: participants,
		MyBets:       myBets,
	}, nil
}

// ListEvents returns the events the user created or joined, newest first.
func (s *EventService) ListEvents(ctx context.Context, session domain.Session) ([]domain.EventSummary, error) {
	return s.store.ListEventsForUser(ctx, session.UserID)
}

// Stats returns the dashboard counters for one event.
func (s *EventService) Stats(ctx context.Context, session domain.Session, eventID string) (domain.EventStats, error) {
	if _, err := s.store.EventByID(ctx, eventID); err != nil {
		return domain.EventStats{}, err
	}
	return s.store.EventStats(ctx, eventID)
}

// ReconcileTotals re-derives participant totals from bets for every active
// event and returns the number of corrected rows. Settlement keeps totals
// consistent transactionally; this pass exists to detect and repair drift.
func (s *EventService) ReconcileTotals(ctx context.Context) (int, error) {
	eventIDs, err := s.store.ListActiveEventIDs(ctx)
	if err != nil {
		return 0, err
	}
	corrected := 0
	for _, id := range eventIDs {
		n, err := s.store.ReconcileEventTotals(ctx, id)
		if err != nil {
			return corrected, err
		}
		corrected += n
	}
	return corrected, nil
}

func (s *EventService) ensureUser(ctx context.Context, session domain.Session) error {
	if session.UserID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return s.store.UpsertUser(ctx, domain.User{
		ID:        session.UserID,
		Email:     session.Email,
		CreatedAt: s.clock(),
	})
}

func (s *EventService) categoryFromSeed(eventID string, seed domain.CategorySeed, now time.Time) domain.BetCategory {
	return domain.BetCategory{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Title:       seed.Title,
		Description: seed.Description,
		Options:     append([]string(nil), seed.Options...),
		Points:      seed.Points,
		Status:      domain.CategoryOpen,
		CreatedAt:   now,
	}
}

func validateCategorySeed(seed domain.CategorySeed) error {
	if seed.Title == "" {
		return fmt.Errorf("%w: category title is required", domain.ErrInvalidArgument)
	}
	if len(seed.Options) == 0 {
		return fmt.Errorf("%w: category needs at least one option", domain.ErrInvalidArgument)
	}
	if seed.Points <= 0 {
		return fmt.Errorf("%w: category points must be positive", domain.ErrInvalidArgument)
	}
	return nil
}
