package app_test

import (
	"context"
	"testing"
	"time"

	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/domain"
)

func TestRankParticipantsBreaksTiesDeterministically(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	participants := []domain.Participant{
		{UserID: "u1", TotalPoints: 100, JoinedAt: base},
		{UserID: "u2", TotalPoints: 250, JoinedAt: base.Add(2 * time.Hour)},
		{UserID: "u3", TotalPoints: 250, JoinedAt: base.Add(time.Hour)},
		{UserID: "u4", TotalPoints: 0, JoinedAt: base},
	}

	entries := app.RankParticipants(participants, "u4")
	wantOrder := []string{"u3", "u2", "u1", "u4"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(entries))
	}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, entries[i].UserID)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("expected positional rank %d, got %d", i+1, entries[i].Rank)
		}
	}
	if !entries[3].IsSelf {
		t.Fatal("expected viewer row flagged IsSelf")
	}
	for _, e := range entries {
		if e.EventsParticipated != 1 {
			t.Fatalf("event-scoped row must report one event, got %d for %s", e.EventsParticipated, e.UserID)
		}
	}
	if entries[0].IsSelf || entries[1].IsSelf || entries[2].IsSelf {
		t.Fatal("expected only the viewer row flagged IsSelf")
	}
}

func TestRankParticipantsTieOnJoinTimeFallsBackToUserID(t *testing.T) {
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := app.RankParticipants([]domain.Participant{
		{UserID: "zeta", TotalPoints: 10, JoinedAt: at},
		{UserID: "alpha", TotalPoints: 10, JoinedAt: at},
	}, "")
	if entries[0].UserID != "alpha" || entries[1].UserID != "zeta" {
		t.Fatalf("expected user-id tiebreak, got %s then %s", entries[0].UserID, entries[1].UserID)
	}
}

func TestRankTotalsOrdersByPointsThenUserID(t *testing.T) {
	entries := app.RankTotals([]domain.UserTotal{
		{UserID: "u1", TotalPoints: 5, EventsParticipated: 1},
		{UserID: "u3", TotalPoints: 9, EventsParticipated: 2},
		{UserID: "u2", TotalPoints: 9, EventsParticipated: 3},
	}, "u2")

	wantOrder := []string{"u2", "u3", "u1"}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, entries[i].UserID)
		}
	}
	if !entries[0].IsSelf {
		t.Fatal("expected viewer row flagged IsSelf")
	}
	if entries[0].EventsParticipated != 3 {
		t.Fatalf("expected events participated carried through, got %d", entries[0].EventsParticipated)
	}
}

func TestGlobalLeaderboardSumsAcrossEvents(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()
	leaderboard := app.NewLeaderboardService(store, store)

	for _, title := range []string{"First Wedding", "Second Wedding"} {
		event, err := service.CreateEvent(ctx, organizer, app.CreateEventInput{
			Title:      title,
			Date:       time.Now(),
			Categories: []domain.CategorySeed{{Title: "Cry", Options: []string{"Bride", "Groom"}, Points: 15}},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		detail, _ := service.EventDetail(ctx, organizer, event.ID)
		category := detail.Categories[0]
		mustJoin(t, service, guestA, event.AccessCode)
		mustPlaceBet(t, service, guestA, category.ID, "Bride")
		if _, err := service.SetCategoryStatus(ctx, organizer, category.ID, domain.CategoryClosed); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if _, err := service.Settle(ctx, organizer, category.ID, "Bride"); err != nil {
			t.Fatalf("settle failed: %v", err)
		}
	}

	entries, err := leaderboard.Global(ctx, guestA)
	if err != nil {
		t.Fatalf("global failed: %v", err)
	}
	if entries[0].UserID != guestA.UserID || entries[0].TotalPoints != 30 {
		t.Fatalf("expected Alice leading with 30 across events, got %+v", entries[0])
	}
	if entries[0].EventsParticipated != 2 {
		t.Fatalf("expected 2 events participated, got %d", entries[0].EventsParticipated)
	}
	if !entries[0].IsSelf {
		t.Fatal("expected viewer row flagged IsSelf")
	}
}
