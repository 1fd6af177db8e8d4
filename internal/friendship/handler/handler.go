package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/friendship/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

type Service interface {
	Invite(ctx context.Context, requester id.UserID, req *models.InviteRequest) (*models.Friendship, error)
	Accept(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error)
	Decline(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error)
	Cancel(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error)
	Remove(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error)
	Get(ctx context.Context, userID id.UserID, friendshipID id.FriendshipID) (*models.FriendshipResponse, error)
	ListFriends(ctx context.Context, userID id.UserID) (*models.ListFriendsResponse, error)
	ListPending(ctx context.Context, userID id.UserID) (*models.ListPendingResponse, error)
}

type Handler struct {
	friendships Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(friendships Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{friendships: friendships, logger: logger, requireAuth: requireAuth}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/friendships", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.handleInvite)
		r.Get("/", h.handleListFriends)
		r.Get("/pending", h.handleListPending)
		r.Get("/{friendshipID}", h.handleGet)
		r.Post("/{friendshipID}/accept", h.transition(Service.Accept, "failed to accept friend request"))
		r.Post("/{friendshipID}/decline", h.transition(Service.Decline, "failed to decline friend request"))
		r.Post("/{friendshipID}/cancel", h.transition(Service.Cancel, "failed to cancel friend request"))
		r.Delete("/{friendshipID}", h.transition(Service.Remove, "failed to remove friend"))
	})
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req models.InviteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	f, err := h.friendships.Invite(r.Context(), requestcontext.UserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, "failed to send friend request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewFriendshipResponse(f, nil))
}

func (h *Handler) handleListFriends(w http.ResponseWriter, r *http.Request) {
	resp, err := h.friendships.ListFriends(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to list friends", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	resp, err := h.friendships.ListPending(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to list friend requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	friendshipID, err := id.ParseFriendshipID(chi.URLParam(r, "friendshipID"))
	if err != nil {
		h.fail(w, r, "invalid friendship id", err)
		return
	}
	resp, err := h.friendships.Get(r.Context(), requestcontext.UserID(r.Context()), friendshipID)
	if err != nil {
		h.fail(w, r, "failed to get friendship", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type transitionFunc func(Service, context.Context, id.UserID, id.FriendshipID) (*models.Friendship, error)

func (h *Handler) transition(apply transitionFunc, failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friendshipID, err := id.ParseFriendshipID(chi.URLParam(r, "friendshipID"))
		if err != nil {
			h.fail(w, r, "invalid friendship id", err)
			return
		}
		f, err := apply(h.friendships, r.Context(), requestcontext.UserID(r.Context()), friendshipID)
		if err != nil {
			h.fail(w, r, failMsg, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.NewFriendshipResponse(f, nil))
	}
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
