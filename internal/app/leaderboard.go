package app

import (
	"context"
	"sort"

	"wedding-pool-service/internal/domain"
)

// LeaderboardService produces the ranked read projections. Rankings are
// recomputed on read from current totals, never maintained on write.
type LeaderboardService struct {
	store  Store
	totals TotalsSource
}

// NewLeaderboardService wires the per-event reads to the store and the
// global reads to totals (typically the store behind a cache).
func NewLeaderboardService(store Store, totals TotalsSource) *LeaderboardService {
	return &LeaderboardService{store: store, totals: totals}
}

// ForEvent ranks an event's participants by total points. Ties break by
// earliest join, then user id, so the order is reproducible.
func (s *LeaderboardService) ForEvent(ctx context.Context, session domain.Session, eventID string) ([]domain.LeaderboardEntry, error) {
	if _, err := s.store.EventByID(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.store.Participants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return RankParticipants(participants, session.UserID), nil
}

// Global ranks every known user by their summed totals across joined events.
func (s *LeaderboardService) Global(ctx context.Context, session domain.Session) ([]domain.LeaderboardEntry, error) {
	totals, err := s.totals.GlobalTotals(ctx)
	if err != nil {
		return nil, err
	}
	return RankTotals(totals, session.UserID), nil
}

// RankParticipants orders event participants: points descending, then
// earliest JoinedAt, then user id ascending. Ranks are positional (index+1);
// ties are not collapsed. The viewer's row is flagged IsSelf.
// EventsParticipated is always 1 on event-scoped rows: the row describes the
// user's standing in this one event.
func RankParticipants(participants []domain.Participant, viewerID string) []domain.LeaderboardEntry {
	sorted := append([]domain.Participant(nil), participants...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		if !sorted[i].JoinedAt.Equal(sorted[j].JoinedAt) {
			return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:               i + 1,
			UserID:             p.UserID,
			Email:              p.Email,
			TotalPoints:        p.TotalPoints,
			EventsParticipated: 1,
			IsSelf:             p.UserID == viewerID,
		})
	}
	return entries
}

// RankTotals orders global standings: points descending, then user id
// ascending. Same positional-rank rule as RankParticipants.
func RankTotals(totals []domain.UserTotal, viewerID string) []domain.LeaderboardEntry {
	sorted := append([]domain.UserTotal(nil), totals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, t := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:               i + 1,
			UserID:             t.UserID,
			Email:              t.Email,
			TotalPoints:        t.TotalPoints,
			EventsParticipated: t.EventsParticipated,
			IsSelf:             t.UserID == viewerID,
		})
	}
	return entries
}
