package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

// Service defines the auth operations the handler exposes.
type Service interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResult, error)
	Logout(ctx context.Context) error
	RequestVerificationCode(ctx context.Context, req *models.EmailRequest) error
	VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) (*models.User, error)
	RequestPasswordReset(ctx context.Context, req *models.EmailRequest) error
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID id.UserID, req *models.UpdateProfileRequest) (*models.User, error)
}

type Handler struct {
	auth        Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(auth Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{auth: auth, logger: logger, requireAuth: requireAuth}
}

// Register mounts the /api/auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.handleSignup)
		r.Post("/login", h.handleLogin)
		r.Post("/verification-code", h.handleRequestVerificationCode)
		r.Post("/verify-email", h.handleVerifyEmail)
		r.Post("/password-reset", h.handleRequestPasswordReset)
		r.Post("/password-reset/confirm", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
			r.Patch("/me", h.handleUpdateProfile)
		})
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.auth.Signup(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "signup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewUserResponse(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.fail(w, r, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.RequestVerificationCode(r.Context(), &req); err != nil {
		h.fail(w, r, "verification code request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "If the address is registered, a code has been sent"})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.auth.VerifyEmail(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "email verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}

func (h *Handler) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), &req); err != nil {
		h.fail(w, r, "password reset request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "If the address is registered, a reset code has been sent"})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), &req); err != nil {
		h.fail(w, r, "password reset failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "failed to load current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(r.Context(), requestcontext.UserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, "profile update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return false
	}
	return true
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
