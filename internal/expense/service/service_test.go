package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	expensemetrics "spendwise/internal/expense/metrics"
	"spendwise/internal/expense/models"
	"spendwise/internal/expense/store"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/requestcontext"
)

type ExpenseServiceSuite struct {
	suite.Suite
	service *Service
	store   *store.InMemoryStore
	metrics *expensemetrics.Metrics
	ctx     context.Context
	owner   id.UserID
	other   id.UserID
}

func TestExpenseServiceSuite(t *testing.T) {
	suite.Run(t, new(ExpenseServiceSuite))
}

func (s *ExpenseServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory()
	s.metrics = expensemetrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithMetrics(s.metrics),
	)
	s.owner = id.UserID(uuid.New())
	s.other = id.UserID(uuid.New())
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func intPtr(v int) *int { return &v }

func (s *ExpenseServiceSuite) create(desc, p string, qty int, category, date string) *models.Expense {
	e, err := s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{
		Description: desc,
		Price:       price(p),
		Quantity:    intPtr(qty),
		Category:    category,
		Date:        date,
	})
	s.Require().NoError(err)
	return e
}

func (s *ExpenseServiceSuite) TestCreate() {
	s.Run("computes total price with decimal math", func() {
		e := s.create("Bus ticket", "0.10", 3, "transport", "2026-03-10")
		s.True(e.TotalPrice.Equal(decimal.RequireFromString("0.30")), "got %s", e.TotalPrice)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ExpensesCreated.WithLabelValues("transport")))
	})

	s.Run("defaults quantity to one and date to today", func() {
		e, err := s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{
			Description: "Lunch",
			Price:       price("12.00"),
			Category:    "food",
		})
		s.Require().NoError(err)
		s.Equal(1, e.Quantity)
		s.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), e.Date)
	})

	s.Run("rejects missing price", func() {
		_, err := s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{Description: "x", Category: "food"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects overly long description", func() {
		long := make([]byte, models.MaxDescriptionLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{
			Description: string(long), Price: price("1"), Category: "food",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ExpenseServiceSuite) TestOwnerOnlyAccess() {
	e := s.create("Rent", "900", 1, "housing", "2026-03-01")

	_, err := s.service.Get(s.ctx, s.other, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Update(s.ctx, s.other, e.ID, &models.UpdateExpenseRequest{Quantity: intPtr(2)})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Delete(s.ctx, s.other, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got, err := s.service.Get(s.ctx, s.owner, e.ID)
	s.Require().NoError(err)
	s.True(got.TotalPrice.Equal(decimal.RequireFromString("900")))
}

func (s *ExpenseServiceSuite) TestUpdateRecomputesTotal() {
	e := s.create("Cinema", "8.50", 2, "entertainment", "2026-03-05")

	updated, err := s.service.Update(s.ctx, s.owner, e.ID, &models.UpdateExpenseRequest{Quantity: intPtr(4)})
	s.Require().NoError(err)
	s.True(updated.TotalPrice.Equal(decimal.RequireFromString("34.00")))

	updated, err = s.service.Update(s.ctx, s.owner, e.ID, &models.UpdateExpenseRequest{Price: price("9.25")})
	s.Require().NoError(err)
	s.True(updated.TotalPrice.Equal(decimal.RequireFromString("37.00")))

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.True(stored.TotalPrice.Equal(stored.Price.Mul(decimal.NewFromInt(int64(stored.Quantity)))))
}

func (s *ExpenseServiceSuite) TestAmountsOutsideStorageRangeAreValidationErrors() {
	_, err := s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{
		Description: "Yacht", Price: price("1000000000000.00"), Category: "travel",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Create(s.ctx, s.owner, &models.CreateExpenseRequest{
		Description: "Stickers", Price: price("0.01"), Quantity: intPtr(2147483647), Category: "shopping",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	e := s.create("Island", "999999999999.99", 1, "housing", "2026-03-01")
	_, err = s.service.Update(s.ctx, s.owner, e.ID, &models.UpdateExpenseRequest{Quantity: intPtr(500)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	stored, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.Quantity)
}

func (s *ExpenseServiceSuite) TestUpdateRequiresAField() {
	e := s.create("Cinema", "8.50", 1, "entertainment", "2026-03-05")
	_, err := s.service.Update(s.ctx, s.owner, e.ID, &models.UpdateExpenseRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ExpenseServiceSuite) TestListFiltersAndOrders() {
	older := s.create("Groceries", "40", 1, "food", "2026-02-20")
	newer := s.create("Dinner", "25", 1, "food", "2026-03-10")
	s.create("Train", "15", 1, "transport", "2026-03-11")
	_, err := s.service.Create(s.ctx, s.other, &models.CreateExpenseRequest{
		Description: "Not mine", Price: price("1"), Category: "food", Date: "2026-03-12",
	})
	s.Require().NoError(err)

	all, err := s.service.List(s.ctx, s.owner, &models.ListExpensesRequest{})
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal("Train", all[0].Description, "newest first")

	food, err := s.service.List(s.ctx, s.owner, &models.ListExpensesRequest{Category: "food"})
	s.Require().NoError(err)
	s.Require().Len(food, 2)
	s.Equal(newer.ID, food[0].ID)
	s.Equal(older.ID, food[1].ID)

	march, err := s.service.List(s.ctx, s.owner, &models.ListExpensesRequest{From: "2026-03-01", To: "2026-03-10"})
	s.Require().NoError(err)
	s.Require().Len(march, 1)
	s.Equal(newer.ID, march[0].ID)
}

func (s *ExpenseServiceSuite) TestDelete() {
	e := s.create("Book", "30", 1, "education", "2026-03-01")
	s.Require().NoError(s.service.Delete(s.ctx, s.owner, e.ID))

	_, err := s.service.Get(s.ctx, s.owner, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.service.Delete(s.ctx, s.owner, e.ID), dErrors.CodeNotFound))
}
