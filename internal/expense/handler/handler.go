package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/expense/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, userID id.UserID, req *models.CreateExpenseRequest) (*models.Expense, error)
	Get(ctx context.Context, userID id.UserID, expenseID id.ExpenseID) (*models.Expense, error)
	List(ctx context.Context, userID id.UserID, req *models.ListExpensesRequest) ([]*models.Expense, error)
	Update(ctx context.Context, userID id.UserID, expenseID id.ExpenseID, req *models.UpdateExpenseRequest) (*models.Expense, error)
	Delete(ctx context.Context, userID id.UserID, expenseID id.ExpenseID) error
}

type Handler struct {
	expenses    Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(expenses Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{expenses: expenses, logger: logger, requireAuth: requireAuth}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/expenses", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{expenseID}", h.handleGet)
		r.Patch("/{expenseID}", h.handleUpdate)
		r.Delete("/{expenseID}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExpenseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	e, err := h.expenses.Create(r.Context(), requestcontext.UserID(r.Context()), &req)
	if err != nil {
		h.fail(w, r, "failed to create expense", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewExpenseResponse(e))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListExpensesRequest{
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
	expenses, err := h.expenses.List(r.Context(), requestcontext.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, r, "failed to list expenses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewListExpensesResponse(expenses))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	expenseID, err := id.ParseExpenseID(chi.URLParam(r, "expenseID"))
	if err != nil {
		h.fail(w, r, "invalid expense id", err)
		return
	}
	e, err := h.expenses.Get(r.Context(), requestcontext.UserID(r.Context()), expenseID)
	if err != nil {
		h.fail(w, r, "failed to get expense", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewExpenseResponse(e))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	expenseID, err := id.ParseExpenseID(chi.URLParam(r, "expenseID"))
	if err != nil {
		h.fail(w, r, "invalid expense id", err)
		return
	}
	var req models.UpdateExpenseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid request body", err)
		return
	}
	e, err := h.expenses.Update(r.Context(), requestcontext.UserID(r.Context()), expenseID, &req)
	if err != nil {
		h.fail(w, r, "failed to update expense", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewExpenseResponse(e))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	expenseID, err := id.ParseExpenseID(chi.URLParam(r, "expenseID"))
	if err != nil {
		h.fail(w, r, "invalid expense id", err)
		return
	}
	if err := h.expenses.Delete(r.Context(), requestcontext.UserID(r.Context()), expenseID); err != nil {
		h.fail(w, r, "failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg, "error", err, "request_id", request.GetRequestID(ctx))
	httputil.WriteError(w, err)
}
