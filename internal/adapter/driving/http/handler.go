// Package httphandler is the HTTP driving adapter serving the feed API.
package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/luoyuxi/campusfeed/internal/application"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Handler serves the read-only notification API. Reads are lazy: the first
// request triggers the full login-and-fetch run if it has not happened yet.
type Handler struct {
	store   driven.NotificationStore
	feedSvc *application.FeedService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store driven.NotificationStore, feedSvc *application.FeedService, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		feedSvc: feedSvc,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CORS, logging, and recovery middleware. GET and POST are both accepted
// on the read endpoints for compatibility with existing clients.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/notifications", h.ListNotifications)
	mux.HandleFunc("POST /api/notifications", h.ListNotifications)
	mux.HandleFunc("GET /api/notifications/count", h.CountNotifications)
	mux.HandleFunc("POST /api/notifications/count", h.CountNotifications)
	mux.HandleFunc("POST /api/refresh", h.Refresh)
	mux.HandleFunc("GET /api/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = corsMiddleware(wrapped)

	return wrapped
}

// ListNotifications returns the full aggregated feed, fetching it first if needed.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.feedSvc.EnsureFetched(r.Context()); err != nil {
		h.logger.Error("feed fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "feed fetch failed")
		return
	}

	notifications, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := notificationsResponse{Notifications: make([]NotificationResponse, 0, len(notifications))}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, toNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CountNotifications returns the number of stored notifications.
func (h *Handler) CountNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.feedSvc.EnsureFetched(r.Context()); err != nil {
		h.logger.Error("feed fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "feed fetch failed")
		return
	}

	count, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// Refresh forces a full login-and-fetch run and reports per-provider outcomes.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.feedSvc.Refresh(r.Context())
	if err != nil {
		h.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	resp := refreshResponse{Sources: make([]SourceOutcomeResponse, 0, len(outcomes))}
	for _, out := range outcomes {
		resp.Sources = append(resp.Sources, toSourceOutcomeResponse(out))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness and the feed's run state.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		State:  string(h.feedSvc.State()),
	})
}
