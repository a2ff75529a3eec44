// Package http exposes the JSON REST surface consumed by the mobile and web
// clients. Actor identity arrives as headers set by the upstream auth proxy.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/domain"
	"wedding-pool-service/internal/metrics"
)

// Handler wires the event and leaderboard use cases into HTTP routes.
type Handler struct {
	events      *app.EventService
	leaderboard *app.LeaderboardService
	invalidate  func(*http.Request)
	log         *zap.Logger
}

func NewHandler(events *app.EventService, leaderboard *app.LeaderboardService, log *zap.Logger) *Handler {
	return &Handler{events: events, leaderboard: leaderboard, log: log}
}

// WithTotalsInvalidation registers a callback run after every successful
// settlement, typically the leaderboard cache's Invalidate.
func (h *Handler) WithTotalsInvalidation(fn func(*http.Request)) *Handler {
	h.invalidate = fn
	return h
}

// Register attaches all routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/events", h.createEvent)
	mux.HandleFunc("GET /api/events", h.listEvents)
	mux.HandleFunc("GET /api/events/{id}", h.eventDetail)
	mux.HandleFunc("GET /api/events/{id}/stats", h.eventStats)
	mux.HandleFunc("GET /api/events/{id}/leaderboard", h.eventLeaderboard)
	mux.HandleFunc("PATCH /api/events/{id}/status", h.updateEventStatus)
	mux.HandleFunc("POST /api/events/{id}/categories", h.addCategory)
	mux.HandleFunc("POST /api/join", h.joinEvent)
	mux.HandleFunc("POST /api/categories/{id}/bets", h.placeBet)
	mux.HandleFunc("PATCH /api/categories/{id}/status", h.setCategoryStatus)
	mux.HandleFunc("POST /api/categories/{id}/settle", h.settleCategory)
	mux.HandleFunc("GET /api/leaderboard", h.globalLeaderboard)
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req createEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, _ := time.Parse(dateLayout, req.Date)
	seeds := make([]domain.CategorySeed, 0, len(req.Categories))
	for _, c := range req.Categories {
		seeds = append(seeds, c.toDomain())
	}

	event, err := h.events.CreateEvent(r.Context(), session, app.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Categories:  seeds,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics.EventsCreated.Inc()
	h.writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	summaries, err := h.events.ListEvents(r.Context(), session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) eventDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	detail, err := h.events.EventDetail(r.Context(), session, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) eventStats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	stats, err := h.events.Stats(r.Context(), session, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) eventLeaderboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := h.leaderboard.ForEvent(r.Context(), session, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) globalLeaderboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := h.leaderboard.Global(r.Context(), session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) updateEventStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req eventStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.events.UpdateEventStatus(r.Context(), session, r.PathValue("id"), domain.EventStatus(req.Status)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCategory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req categorySeedRequest
	if !h.decodeBody(w, r, &req, func() error { return validate.Struct(&req) }) {
		return
	}
	category, err := h.events.AddCategory(r.Context(), session, r.PathValue("id"), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) joinEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req joinEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, participant, alreadyJoined, err := h.events.JoinByCode(r.Context(), session, req.AccessCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics.EventsJoined.Inc()
	h.writeJSON(w, http.StatusOK, joinEventResponse{
		Event:         event,
		Participant:   participant,
		AlreadyJoined: alreadyJoined,
	})
}

func (h *Handler) placeBet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req placeBetRequest
	if !h.decode(w, r, &req) {
		return
	}
	bet, err := h.events.PlaceBet(r.Context(), session, r.PathValue("id"), req.SelectedOption)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics.BetsPlaced.Inc()
	h.writeJSON(w, http.StatusOK, bet)
}

func (h *Handler) setCategoryStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req categoryStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.events.SetCategoryStatus(r.Context(), session, r.PathValue("id"), domain.CategoryStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) settleCategory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req settleRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.events.Settle(r.Context(), session, r.PathValue("id"), req.CorrectAnswer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metrics.CategoriesSettled.Inc()
	if h.invalidate != nil {
		h.invalidate(r)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// session pulls the actor identity from headers. Missing identity is a 401;
// all authorization decisions stay in the app layer.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
		return domain.Session{}, false
	}
	return domain.Session{UserID: userID, Email: r.Header.Get("X-User-Email")}, true
}

type validatable interface {
	Validate() error
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req validatable) bool {
	return h.decodeBody(w, r, req, req.Validate)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any, validateFn func() error) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := validateFn(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Warn("write response failed", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotCreator),
		errors.Is(err, domain.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrCategoryNotOpen),
		errors.Is(err, domain.ErrCategoryNotClosed),
		errors.Is(err, domain.ErrCategorySettled):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrOptionUnknown):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
