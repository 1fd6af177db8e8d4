package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/expense/models"
	"spendwise/internal/expense/service"
	"spendwise/internal/expense/store"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/testutil"
)

const userHeader = "X-Test-User"

// headerAuth authenticates the user named in X-Test-User.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(userHeader) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, testutil.WithUserID(r, r.Header.Get(userHeader)))
	})
}

func newExpenseRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), service.WithLogger(logger))
	r := chi.NewRouter()
	New(svc, logger, headerAuth).Register(r)
	return r
}

func as(req *http.Request, userID id.UserID) *http.Request {
	req.Header.Set(userHeader, userID.String())
	return req
}

func TestExpenseLifecycle(t *testing.T) {
	router := newExpenseRouter(t)
	owner := id.UserID(uuid.New())
	stranger := id.UserID(uuid.New())

	body := `{"description":"Groceries","price":"12.35","quantity":3,"category":"food","date":"2026-03-02"}`
	rr := testutil.DoRequest(router, as(testutil.NewRequestWithBody(t, http.MethodPost, "/api/expenses/", body), owner))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := testutil.UnmarshalResponse[models.ExpenseResponse](t, rr)
	assert.Equal(t, "37.05", created.TotalPrice.StringFixed(2))
	assert.Equal(t, "2026-03-02", created.Date)

	testutil.Given(t, "another user", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/api/expenses/"+created.ID), stranger))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	testutil.When(t, "the owner patches the quantity", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequestWithBody(t, http.MethodPatch,
			"/api/expenses/"+created.ID, `{"quantity":1}`), owner))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		updated := testutil.UnmarshalResponse[models.ExpenseResponse](t, rr)
		assert.Equal(t, "12.35", updated.TotalPrice.StringFixed(2))
	})

	testutil.Then(t, "the listing totals the owner's expenses", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/api/expenses/?category=food"), owner))
		require.Equal(t, http.StatusOK, rr.Code)
		list := testutil.UnmarshalResponse[models.ListExpensesResponse](t, rr)
		require.Len(t, list.Expenses, 1)
		assert.Equal(t, "12.35", list.Total.StringFixed(2))
	})

	testutil.Then(t, "delete removes it", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodDelete, "/api/expenses/"+created.ID), owner))
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/api/expenses/"+created.ID), owner))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestExpenseValidation(t *testing.T) {
	router := newExpenseRouter(t)
	owner := id.UserID(uuid.New())

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"zero quantity", `{"description":"x","price":"1","quantity":0,"category":"food"}`, "quantity"},
		{"unknown category", `{"description":"x","price":"1","category":"bitcoin"}`, "category"},
		{"bad date", `{"description":"x","price":"1","category":"food","date":"03/02/2026"}`, "date"},
		{"negative price", `{"description":"x","price":"-3","category":"food"}`, "price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, as(testutil.NewRequestWithBody(t, http.MethodPost, "/api/expenses/", tc.body), owner))
			require.Equal(t, http.StatusBadRequest, rr.Code)
			errBody := testutil.UnmarshalErrorResponse(t, rr)
			assert.Equal(t, string(dErrors.CodeValidation), errBody["error"])
			assert.Equal(t, tc.field, errBody["field"])
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		rr := testutil.DoRequest(router, as(testutil.NewRequest(t, http.MethodGet, "/api/expenses/not-a-uuid"), owner))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/expenses/"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
