package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

// Service is the recipient-facing notification API.
type Service interface {
	List(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) (*models.ListResponse, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
}

type Handler struct {
	notifications Service
	logger        *slog.Logger
	requireAuth   func(http.Handler) http.Handler
}

func New(notifications Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{notifications: notifications, logger: logger, requireAuth: requireAuth}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unreadOnly := q.Get("unread") == "true"
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(w, r, "invalid limit", dErrors.NewField("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	resp, err := h.notifications.List(r.Context(), requestcontext.UserID(r.Context()), unreadOnly, limit)
	if err != nil {
		h.fail(w, r, "failed to list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to count notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.UnreadCountResponse{UnreadCount: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		h.fail(w, r, "invalid notification id", err)
		return
	}
	if _, err := h.notifications.MarkRead(r.Context(), requestcontext.UserID(r.Context()), notificationID); err != nil {
		h.fail(w, r, "failed to mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notifications.MarkAllRead(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to mark notifications read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MarkAllReadResponse{Updated: updated})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}
