package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	expensemetrics "spendwise/internal/expense/metrics"
	"spendwise/internal/expense/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

var tracer = otel.Tracer("spendwise/internal/expense")

type Store interface {
	Create(ctx context.Context, e *models.Expense) error
	FindByID(ctx context.Context, expenseID id.ExpenseID) (*models.Expense, error)
	ListByUser(ctx context.Context, userID id.UserID, filter models.Filter) ([]*models.Expense, error)
	Execute(ctx context.Context, expenseID id.ExpenseID, validate func(*models.Expense) error, mutate func(*models.Expense) error) (*models.Expense, error)
	Delete(ctx context.Context, expenseID id.ExpenseID) error
}

// Service manages a user's own expenses. Other users' expenses are reported as missing.
type Service struct {
	store   Store
	logger  *slog.Logger
	audit   *audit.Logger
	metrics *expensemetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.audit = audit.NewLogger(logger)
	}
}

func WithMetrics(m *expensemetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = audit.NewLogger(s.logger)
	}
	return s
}

func (s *Service) Create(ctx context.Context, userID id.UserID, req *models.CreateExpenseRequest) (_ *models.Expense, err error) {
	ctx, span := tracer.Start(ctx, "expense.Create")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	date := now
	if req.Date != "" {
		date, _ = models.ParseDate(req.Date)
	}
	e, err := models.NewExpense(id.ExpenseID(uuid.New()), userID, req.Description, *req.Price,
		req.QuantityOrDefault(), models.Category(req.Category), date, now)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create expense")
	}

	s.audit.Log(ctx, audit.EventExpenseCreated,
		"user_id", userID.String(),
		"expense_id", e.ID.String(),
		"category", string(e.Category),
	)
	if s.metrics != nil {
		s.metrics.IncrementExpensesCreated(string(e.Category))
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID, expenseID id.ExpenseID) (*models.Expense, error) {
	e, err := s.store.FindByID(ctx, expenseID)
	if err != nil {
		return nil, wrapExpenseErr(err, "load expense")
	}
	if !e.IsOwnedBy(userID) {
		return nil, errExpenseNotFound
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID id.UserID, req *models.ListExpensesRequest) ([]*models.Expense, error) {
	filter, err := req.ToFilter()
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expenses")
	}
	return expenses, nil
}

// Update applies a partial update and recomputes the total price.
func (s *Service) Update(ctx context.Context, userID id.UserID, expenseID id.ExpenseID, req *models.UpdateExpenseRequest) (_ *models.Expense, err error) {
	ctx, span := tracer.Start(ctx, "expense.Update")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	patch := req.ToPatch()
	now := requestcontext.Now(ctx)

	e, err := s.store.Execute(ctx, expenseID,
		func(e *models.Expense) error {
			if !e.IsOwnedBy(userID) {
				return errExpenseNotFound
			}
			return nil
		},
		func(e *models.Expense) error {
			return e.ApplyPatch(patch, now)
		},
	)
	if err != nil {
		return nil, wrapExpenseErr(err, "update expense")
	}
	s.audit.Log(ctx, audit.EventExpenseUpdated, "user_id", userID.String(), "expense_id", expenseID.String())
	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID id.UserID, expenseID id.ExpenseID) error {
	e, err := s.store.FindByID(ctx, expenseID)
	if err != nil {
		return wrapExpenseErr(err, "load expense")
	}
	if !e.IsOwnedBy(userID) {
		return errExpenseNotFound
	}
	if err := s.store.Delete(ctx, expenseID); err != nil {
		return wrapExpenseErr(err, "delete expense")
	}
	s.audit.Log(ctx, audit.EventExpenseDeleted, "user_id", userID.String(), "expense_id", expenseID.String())
	if s.metrics != nil {
		s.metrics.IncrementExpensesDeleted()
	}
	return nil
}

var errExpenseNotFound = dErrors.New(dErrors.CodeNotFound, "expense not found")

func wrapExpenseErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errExpenseNotFound
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return toValidation(err)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}

// toValidation surfaces model invariant failures as client validation errors.
func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		var de *dErrors.Error
		errors.As(err, &de)
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
