package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"wedding-pool-service/internal/accesscode"
	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/domain"
	"wedding-pool-service/internal/infra/memory"
	transport "wedding-pool-service/internal/transport/http"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	events := app.NewEventService(store, accesscode.NewGenerator())
	leaderboard := app.NewLeaderboardService(store, store)
	handler := transport.NewHandler(events, leaderboard, zap.NewNop())

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, server *httptest.Server, method, path, userID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Email", userID+"@example.com")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < 300 {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createTestEvent(t *testing.T, server *httptest.Server, creator string) domain.Event {
	t.Helper()
	var event domain.Event
	status := doJSON(t, server, http.MethodPost, "/api/events", creator, map[string]any{
		"title": "Smith Wedding",
		"date":  "2026-06-20",
		"categories": []map[string]any{
			{"title": "Who Will Cry First?", "options": []string{"Bride", "Groom"}, "points": 15},
		},
	}, &event)
	if status != http.StatusCreated {
		t.Fatalf("create event: status %d", status)
	}
	return event
}

func eventCategory(t *testing.T, server *httptest.Server, userID, eventID string) domain.BetCategory {
	t.Helper()
	var detail domain.EventDetail
	if status := doJSON(t, server, http.MethodGet, "/api/events/"+eventID, userID, nil, &detail); status != http.StatusOK {
		t.Fatalf("event detail: status %d", status)
	}
	if len(detail.Categories) == 0 {
		t.Fatal("event has no categories")
	}
	return detail.Categories[0]
}

func TestMissingIdentityHeaderIsUnauthorized(t *testing.T) {
	server := newTestServer(t)
	if status := doJSON(t, server, http.MethodGet, "/api/events", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestCreateEventValidatesBody(t *testing.T) {
	server := newTestServer(t)

	status := doJSON(t, server, http.MethodPost, "/api/events", "creator", map[string]any{"date": "2026-06-20"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", status)
	}
	status = doJSON(t, server, http.MethodPost, "/api/events", "creator", map[string]any{"title": "x", "date": "June 20"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", status)
	}
}

func TestJoinFlow(t *testing.T) {
	server := newTestServer(t)
	event := createTestEvent(t, server, "creator")

	var joined struct {
		Event         domain.Event       `json:"event"`
		Participant   domain.Participant `json:"participant"`
		AlreadyJoined bool               `json:"alreadyJoined"`
	}
	status := doJSON(t, server, http.MethodPost, "/api/join", "alice", map[string]any{"accessCode": event.AccessCode}, &joined)
	if status != http.StatusOK {
		t.Fatalf("join: status %d", status)
	}
	if joined.AlreadyJoined || joined.Event.ID != event.ID {
		t.Fatalf("unexpected join response: %+v", joined)
	}

	status = doJSON(t, server, http.MethodPost, "/api/join", "alice", map[string]any{"accessCode": event.AccessCode}, &joined)
	if status != http.StatusOK || !joined.AlreadyJoined {
		t.Fatalf("expected idempotent rejoin, status=%d already=%v", status, joined.AlreadyJoined)
	}

	if status := doJSON(t, server, http.MethodPost, "/api/join", "bob", map[string]any{"accessCode": "ZZZZZZ"}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", status)
	}
}

func TestBetAndSettleFlow(t *testing.T) {
	server := newTestServer(t)
	event := createTestEvent(t, server, "creator")
	category := eventCategory(t, server, "creator", event.ID)

	if status := doJSON(t, server, http.MethodPost, "/api/join", "alice", map[string]any{"accessCode": event.AccessCode}, nil); status != http.StatusOK {
		t.Fatalf("join: status %d", status)
	}

	var bet domain.Bet
	status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/bets", category.ID), "alice",
		map[string]any{"selectedOption": "Bride"}, &bet)
	if status != http.StatusOK {
		t.Fatalf("place bet: status %d", status)
	}
	if bet.SelectedOption != "Bride" {
		t.Fatalf("unexpected bet: %+v", bet)
	}

	// Non-participants cannot bet.
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/bets", category.ID), "mallory",
		map[string]any{"selectedOption": "Bride"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-participant, got %d", status)
	}

	// Unknown options are semantic errors, not validation errors.
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/bets", category.ID), "alice",
		map[string]any{"selectedOption": "Officiant"}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown option, got %d", status)
	}

	// Settling an open category conflicts.
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/settle", category.ID), "creator",
		map[string]any{"correctAnswer": "Bride"}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 settling open category, got %d", status)
	}

	status = doJSON(t, server, http.MethodPatch, fmt.Sprintf("/api/categories/%s/status", category.ID), "creator",
		map[string]any{"status": "closed"}, nil)
	if status != http.StatusOK {
		t.Fatalf("close: status %d", status)
	}

	// Betting on a closed category conflicts.
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/bets", category.ID), "alice",
		map[string]any{"selectedOption": "Groom"}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 betting on closed category, got %d", status)
	}

	// Only the creator settles.
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/settle", category.ID), "alice",
		map[string]any{"correctAnswer": "Bride"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-creator settle, got %d", status)
	}

	var result domain.SettlementResult
	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/settle", category.ID), "creator",
		map[string]any{"correctAnswer": "Bride"}, &result)
	if status != http.StatusOK {
		t.Fatalf("settle: status %d", status)
	}
	if result.BetsScored != 1 || result.Winners != 1 || result.PointsAwarded != 15 {
		t.Fatalf("unexpected settlement: %+v", result)
	}

	status = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/categories/%s/settle", category.ID), "creator",
		map[string]any{"correctAnswer": "Groom"}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on re-settle, got %d", status)
	}

	var entries []domain.LeaderboardEntry
	status = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/events/%s/leaderboard", event.ID), "alice", nil, &entries)
	if status != http.StatusOK {
		t.Fatalf("leaderboard: status %d", status)
	}
	if entries[0].UserID != "alice" || entries[0].TotalPoints != 15 || entries[0].Rank != 1 {
		t.Fatalf("unexpected leader: %+v", entries[0])
	}
	if !entries[0].IsSelf {
		t.Fatal("expected viewer row flagged")
	}
}

func TestCategoryStatusValidation(t *testing.T) {
	server := newTestServer(t)
	event := createTestEvent(t, server, "creator")
	category := eventCategory(t, server, "creator", event.ID)

	// settled is not a legal toggle target at the transport layer either.
	status := doJSON(t, server, http.MethodPatch, fmt.Sprintf("/api/categories/%s/status", category.ID), "creator",
		map[string]any{"status": "settled"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for settled toggle, got %d", status)
	}

	status = doJSON(t, server, http.MethodPatch, fmt.Sprintf("/api/categories/%s/status", category.ID), "alice",
		map[string]any{"status": "closed"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-creator, got %d", status)
	}
}

func TestEventStatusAndStats(t *testing.T) {
	server := newTestServer(t)
	event := createTestEvent(t, server, "creator")

	status := doJSON(t, server, http.MethodPatch, "/api/events/"+event.ID+"/status", "creator",
		map[string]any{"status": "completed"}, nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}

	var stats domain.EventStats
	if status := doJSON(t, server, http.MethodGet, "/api/events/"+event.ID+"/stats", "creator", nil, &stats); status != http.StatusOK {
		t.Fatalf("stats: status %d", status)
	}
	if stats.ParticipantCount != 1 || stats.TotalCategories != 1 || stats.OpenCategories != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	var summaries []domain.EventSummary
	if status := doJSON(t, server, http.MethodGet, "/api/events", "creator", nil, &summaries); status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	if len(summaries) != 1 || !summaries[0].IsCreator || summaries[0].Event.Status != domain.EventCompleted {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestEventDetailForbiddenForOutsiders(t *testing.T) {
	server := newTestServer(t)
	event := createTestEvent(t, server, "creator")

	if status := doJSON(t, server, http.MethodGet, "/api/events/"+event.ID, "outsider", nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
}
