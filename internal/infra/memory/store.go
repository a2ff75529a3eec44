package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. A single mutex gives
// every operation the same all-or-nothing behavior the Postgres store gets
// from transactions, which is what the settlement contract requires.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	events       map[string]domain.Event
	codeIndex    map[string]string // access code -> event id
	categories   map[string]*domain.BetCategory
	categorySeq  map[string]int // category id -> insertion order
	nextSeq      int
	participants map[string]map[string]*domain.Participant // event id -> user id
	bets         map[string]map[string]*domain.Bet         // category id -> user id
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		events:       make(map[string]domain.Event),
		codeIndex:    make(map[string]string),
		categories:   make(map[string]*domain.BetCategory),
		categorySeq:  make(map[string]int),
		participants: make(map[string]map[string]*domain.Participant),
		bets:         make(map[string]map[string]*domain.Bet),
	}
}

func (s *Store) UpsertUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.ID]; ok {
		if user.Email != "" {
			existing.Email = user.Email
			s.users[user.ID] = existing
		}
		return nil
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) CreateEvent(_ context.Context, event domain.Event, categories []domain.BetCategory, creator domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToUpper(event.AccessCode)
	if _, taken := s.codeIndex[code]; taken {
		return domain.ErrAccessCodeTaken
	}

	event.AccessCode = code
	s.events[event.ID] = event
	s.codeIndex[code] = event.ID
	for i := range categories {
		s.addCategoryLocked(categories[i])
	}
	s.participants[event.ID] = map[string]*domain.Participant{
		creator.UserID: cloneParticipant(creator),
	}
	return nil
}

func (s *Store) EventByID(_ context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

func (s *Store) EventByAccessCode(_ context.Context, code string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[strings.ToUpper(code)]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return s.events[id], nil
}

func (s *Store) UpdateEventStatus(_ context.Context, eventID string, status domain.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.Status = status
	event.UpdatedAt = time.Now()
	s.events[eventID] = event
	return nil
}

func (s *Store) ListEventsForUser(_ context.Context, userID string) ([]domain.EventSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.EventSummary, 0)
	for id, event := range s.events {
		_, joined := s.participants[id][userID]
		if !joined && event.CreatorID != userID {
			continue
		}
		summaries = append(summaries, domain.EventSummary{
			Event:            event,
			ParticipantCount: len(s.participants[id]),
			IsCreator:        event.CreatorID == userID,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].Event.CreatedAt.Equal(summaries[j].Event.CreatedAt) {
			return summaries[i].Event.CreatedAt.After(summaries[j].Event.CreatedAt)
		}
		return summaries[i].Event.ID < summaries[j].Event.ID
	})
	return summaries, nil
}

func (s *Store) ListActiveEventIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, event := range s.events {
		if event.Status == domain.EventActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) AddCategory(_ context.Context, category domain.BetCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[category.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	s.addCategoryLocked(category)
	return nil
}

func (s *Store) CategoryByID(_ context.Context, id string) (domain.BetCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.categories[id]
	if !ok {
		return domain.BetCategory{}, domain.ErrCategoryNotFound
	}
	return cloneCategory(*category), nil
}

func (s *Store) ListCategories(_ context.Context, eventID string) ([]domain.BetCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := make([]domain.BetCategory, 0)
	for _, category := range s.categories {
		if category.EventID == eventID {
			categories = append(categories, cloneCategory(*category))
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return s.categorySeq[categories[i].ID] < s.categorySeq[categories[j].ID]
	})
	return categories, nil
}

func (s *Store) SetCategoryStatus(_ context.Context, categoryID string, status domain.CategoryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	category, ok := s.categories[categoryID]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	if category.Status == domain.CategorySettled {
		return domain.ErrCategorySettled
	}
	category.Status = status
	return nil
}

func (s *Store) JoinEvent(_ context.Context, participant domain.Participant) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[participant.EventID]; !ok {
		return domain.Participant{}, false, domain.ErrEventNotFound
	}
	byUser := s.participants[participant.EventID]
	if byUser == nil {
		byUser = make(map[string]*domain.Participant)
		s.participants[participant.EventID] = byUser
	}
	if existing, ok := byUser[participant.UserID]; ok {
		return *existing, true, nil
	}
	byUser[participant.UserID] = cloneParticipant(participant)
	return participant, false, nil
}

func (s *Store) Participant(_ context.Context, eventID, userID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[eventID][userID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *participant, nil
}

func (s *Store) Participants(_ context.Context, eventID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants := make([]domain.Participant, 0, len(s.participants[eventID]))
	for _, p := range s.participants[eventID] {
		participants = append(participants, *p)
	}
	sort.Slice(participants, func(i, j int) bool {
		if participants[i].TotalPoints != participants[j].TotalPoints {
			return participants[i].TotalPoints > participants[j].TotalPoints
		}
		if !participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		}
		return participants[i].UserID < participants[j].UserID
	})
	return participants, nil
}

func (s *Store) UpsertBet(_ context.Context, bet domain.Bet) (domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[bet.CategoryID]
	if !ok {
		return domain.Bet{}, domain.ErrCategoryNotFound
	}
	// The open gate lives under the same lock as the write, so a bet can
	// never land on a category that settlement already picked up.
	if category.Status != domain.CategoryOpen {
		return domain.Bet{}, domain.ErrCategoryNotOpen
	}

	byUser := s.bets[bet.CategoryID]
	if byUser == nil {
		byUser = make(map[string]*domain.Bet)
		s.bets[bet.CategoryID] = byUser
	}
	if existing, ok := byUser[bet.UserID]; ok {
		existing.SelectedOption = bet.SelectedOption
		existing.UpdatedAt = bet.UpdatedAt
		return *existing, nil
	}
	byUser[bet.UserID] = cloneBet(bet)
	return bet, nil
}

func (s *Store) BetsForCategory(_ context.Context, categoryID string) ([]domain.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bets := make([]domain.Bet, 0, len(s.bets[categoryID]))
	for _, bet := range s.bets[categoryID] {
		bets = append(bets, *cloneBet(*bet))
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].UserID < bets[j].UserID })
	return bets, nil
}

func (s *Store) BetsForUser(_ context.Context, eventID, userID string) ([]domain.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bets := make([]domain.Bet, 0)
	for _, byUser := range s.bets {
		if bet, ok := byUser[userID]; ok && bet.EventID == eventID {
			bets = append(bets, *cloneBet(*bet))
		}
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].CategoryID < bets[j].CategoryID })
	return bets, nil
}

func (s *Store) SettleCategory(_ context.Context, categoryID, correctOption string) (domain.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[categoryID]
	if !ok {
		return domain.SettlementResult{}, domain.ErrCategoryNotFound
	}
	switch category.Status {
	case domain.CategorySettled:
		return domain.SettlementResult{}, domain.ErrCategorySettled
	case domain.CategoryOpen:
		return domain.SettlementResult{}, domain.ErrCategoryNotClosed
	}

	result := domain.SettlementResult{
		CategoryID:    categoryID,
		CorrectAnswer: correctOption,
	}
	for _, bet := range s.bets[categoryID] {
		correct, points := app.ScoreBet(*bet, *category, correctOption)
		bet.IsCorrect = &correct
		bet.PointsEarned = points
		result.BetsScored++
		if correct {
			result.Winners++
			result.PointsAwarded += points
		}
	}

	answer := correctOption
	category.CorrectAnswer = &answer
	category.Status = domain.CategorySettled

	s.recomputeTotalsLocked(category.EventID)
	return result, nil
}

func (s *Store) ReconcileEventTotals(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return 0, domain.ErrEventNotFound
	}
	return s.recomputeTotalsLocked(eventID), nil
}

func (s *Store) EventStats(_ context.Context, eventID string) (domain.EventStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.EventStats{ParticipantCount: len(s.participants[eventID])}
	for _, category := range s.categories {
		if category.EventID != eventID {
			continue
		}
		stats.TotalCategories++
		switch category.Status {
		case domain.CategoryOpen:
			stats.OpenCategories++
		case domain.CategorySettled:
			stats.SettledCategories++
		}
		stats.BetCount += len(s.bets[category.ID])
	}
	return stats, nil
}

func (s *Store) GlobalTotals(_ context.Context) ([]domain.UserTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]*domain.UserTotal)
	for _, participants := range s.participants {
		for userID, p := range participants {
			total, ok := byUser[userID]
			if !ok {
				total = &domain.UserTotal{UserID: userID, Email: s.users[userID].Email}
				byUser[userID] = total
			}
			total.TotalPoints += p.TotalPoints
			total.EventsParticipated++
		}
	}

	totals := make([]domain.UserTotal, 0, len(byUser))
	for _, total := range byUser {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].UserID < totals[j].UserID })
	return totals, nil
}

// recomputeTotalsLocked re-derives every participant total of the event
// from bet state and reports how many rows changed.
func (s *Store) recomputeTotalsLocked(eventID string) int {
	earned := make(map[string]int)
	for categoryID, byUser := range s.bets {
		category, ok := s.categories[categoryID]
		if !ok || category.EventID != eventID {
			continue
		}
		for userID, bet := range byUser {
			earned[userID] += bet.PointsEarned
		}
	}

	changed := 0
	for userID, p := range s.participants[eventID] {
		if total := earned[userID]; total != p.TotalPoints {
			p.TotalPoints = total
			changed++
		}
	}
	return changed
}

func (s *Store) addCategoryLocked(category domain.BetCategory) {
	stored := cloneCategory(category)
	s.categories[category.ID] = &stored
	s.categorySeq[category.ID] = s.nextSeq
	s.nextSeq++
}

func cloneCategory(category domain.BetCategory) domain.BetCategory {
	category.Options = append([]string(nil), category.Options...)
	if category.CorrectAnswer != nil {
		answer := *category.CorrectAnswer
		category.CorrectAnswer = &answer
	}
	return category
}

func cloneParticipant(p domain.Participant) *domain.Participant {
	copied := p
	return &copied
}

func cloneBet(b domain.Bet) *domain.Bet {
	copied := b
	if b.IsCorrect != nil {
		correct := *b.IsCorrect
		copied.IsCorrect = &correct
	}
	return &copied
}
