package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/group/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

type Service interface {
	CreateGroup(ctx context.Context, owner id.UserID, req *models.CreateGroupRequest) (*models.GroupResponse, error)
	GetGroup(ctx context.Context, actor id.UserID, groupID id.GroupID) (*models.GroupResponse, error)
	ListGroups(ctx context.Context, userID id.UserID) (*models.ListGroupsResponse, error)
	UpdateGroup(ctx context.Context, actor id.UserID, groupID id.GroupID, req *models.UpdateGroupRequest) (*models.GroupResponse, error)
	DeleteGroup(ctx context.Context, actor id.UserID, groupID id.GroupID) error
	ListMembers(ctx context.Context, actor id.UserID, groupID id.GroupID) (*models.ListMembersResponse, error)
	Invite(ctx context.Context, actor id.UserID, groupID id.GroupID, req *models.InviteMemberRequest) (*models.Membership, error)
	ListInvites(ctx context.Context, userID id.UserID) (*models.ListInvitesResponse, error)
	Accept(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error)
	Decline(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error)
	Cancel(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error)
	Kick(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error)
	Leave(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error)
	TransferOwnership(ctx context.Context, actor id.UserID, fromID, toID id.MembershipID) (*models.TransferOwnershipResponse, error)
}

type Handler struct {
	groups      Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(groups Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{groups: groups, logger: logger, requireAuth: requireAuth}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/groups", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Get("/members", h.handleListMembers)
			r.Post("/members", h.handleInvite)
		})
	})
	r.Route("/api/memberships", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/invites", h.handleListInvites)
		r.Post("/transfer-ownership", h.handleTransferOwnership)
		r.Post("/{membershipID}/accept", h.transition(Service.Accept, "failed to accept invitation"))
		r.Post("/{membershipID}/decline", h.transition(Service.Decline, "failed to decline invitation"))
		r.Post("/{membershipID}/cancel", h.transition(Service.Cancel, "failed to cancel invitation"))
		r.Post("/{membershipID}/leave", h.transition(Service.Leave, "failed to leave group"))
		r.Delete("/{membershipID}", h.transition(Service.Kick, "failed to remove member"))
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	resp, err := h.groups.CreateGroup(r.Context(), requestcontext.UserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, "failed to create group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	resp, err := h.groups.ListGroups(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to list groups", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	resp, err := h.groups.GetGroup(r.Context(), requestcontext.UserID(r.Context()), groupID)
	if err != nil {
		h.fail(w, r, "failed to get group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req models.UpdateGroupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	resp, err := h.groups.UpdateGroup(r.Context(), requestcontext.UserID(r.Context()), groupID, &req)
	if err != nil {
		h.fail(w, r, "failed to update group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	if err := h.groups.DeleteGroup(r.Context(), requestcontext.UserID(r.Context()), groupID); err != nil {
		h.fail(w, r, "failed to delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	resp, err := h.groups.ListMembers(r.Context(), requestcontext.UserID(r.Context()), groupID)
	if err != nil {
		h.fail(w, r, "failed to list members", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req models.InviteMemberRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	m, err := h.groups.Invite(r.Context(), requestcontext.UserID(r.Context()), groupID, &req)
	if err != nil {
		h.fail(w, r, "failed to invite member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewMembershipResponse(m, nil))
}

func (h *Handler) handleListInvites(w http.ResponseWriter, r *http.Request) {
	resp, err := h.groups.ListInvites(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to list invitations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req models.TransferOwnershipRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	from, to, err := req.Parse()
	if err != nil {
		h.fail(w, r, "invalid transfer request", err)
		return
	}
	resp, err := h.groups.TransferOwnership(r.Context(), requestcontext.UserID(r.Context()), from, to)
	if err != nil {
		h.fail(w, r, "failed to transfer ownership", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type transitionFunc func(Service, context.Context, id.UserID, id.MembershipID) (*models.Membership, error)

func (h *Handler) transition(apply transitionFunc, failMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipID, err := id.ParseMembershipID(chi.URLParam(r, "membershipID"))
		if err != nil {
			h.fail(w, r, "invalid membership id", err)
			return
		}
		m, err := apply(h.groups, r.Context(), requestcontext.UserID(r.Context()), membershipID)
		if err != nil {
			h.fail(w, r, failMsg, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.NewMembershipResponse(m, nil))
	}
}

func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (id.GroupID, bool) {
	groupID, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		h.fail(w, r, "invalid group id", err)
		return id.GroupID{}, false
	}
	return groupID, true
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
