package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dErrors "spendwise/pkg/domain-errors"
)

type CreateExpenseRequest struct {
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity,omitempty"`
	Category    string           `json:"category"`
	Date        string           `json:"date,omitempty"`
}

func (r *CreateExpenseRequest) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Date = strings.TrimSpace(r.Date)
}

func (r *CreateExpenseRequest) Validate() error {
	if r.Description == "" {
		return dErrors.NewField("description", "description is required")
	}
	if r.Price == nil {
		return dErrors.NewField("price", "price is required")
	}
	if err := validatePrice(*r.Price); err != nil {
		return err
	}
	if r.Quantity != nil {
		if err := validateQuantity(*r.Quantity); err != nil {
			return err
		}
	}
	if totalPrice(*r.Price, r.QuantityOrDefault()).GreaterThan(MaxTotalPrice) {
		return dErrors.NewField("quantity", "total price must be at most "+MaxTotalPrice.StringFixed(2))
	}
	if !Category(r.Category).IsValid() {
		return dErrors.NewField("category", "unknown category")
	}
	if r.Date != "" {
		if _, err := ParseDate(r.Date); err != nil {
			return dErrors.NewField("date", "date must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}

// QuantityOrDefault returns the requested quantity, defaulting to one.
func (r *CreateExpenseRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type UpdateExpenseRequest struct {
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Date        *string          `json:"date,omitempty"`
}

func (r *UpdateExpenseRequest) Normalize() {
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
	}
	if r.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*r.Category))
		r.Category = &c
	}
}

func (r *UpdateExpenseRequest) Validate() error {
	if r.Description == nil && r.Price == nil && r.Quantity == nil && r.Category == nil && r.Date == nil {
		return dErrors.New(dErrors.CodeBadRequest, "at least one field must be provided")
	}
	if r.Description != nil && *r.Description == "" {
		return dErrors.NewField("description", "description cannot be empty")
	}
	if r.Price != nil {
		if err := validatePrice(*r.Price); err != nil {
			return err
		}
	}
	if r.Quantity != nil {
		if err := validateQuantity(*r.Quantity); err != nil {
			return err
		}
	}
	if r.Price != nil && r.Quantity != nil && totalPrice(*r.Price, *r.Quantity).GreaterThan(MaxTotalPrice) {
		return dErrors.NewField("quantity", "total price must be at most "+MaxTotalPrice.StringFixed(2))
	}
	if r.Category != nil && !Category(*r.Category).IsValid() {
		return dErrors.NewField("category", "unknown category")
	}
	if r.Date != nil {
		if _, err := ParseDate(*r.Date); err != nil {
			return dErrors.NewField("date", "date must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}

// ToPatch converts a validated request into a model patch.
func (r *UpdateExpenseRequest) ToPatch() Patch {
	p := Patch{
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
	}
	if r.Category != nil {
		c := Category(*r.Category)
		p.Category = &c
	}
	if r.Date != nil {
		if d, err := ParseDate(*r.Date); err == nil {
			p.Date = &d
		}
	}
	return p
}

// ListExpensesRequest carries the optional query filters of a listing.
type ListExpensesRequest struct {
	Category string
	From     string
	To       string
}

// ToFilter validates the query values and builds a Filter.
func (r *ListExpensesRequest) ToFilter() (Filter, error) {
	var f Filter
	if c := strings.ToLower(strings.TrimSpace(r.Category)); c != "" {
		if !Category(c).IsValid() {
			return Filter{}, dErrors.NewField("category", "unknown category")
		}
		f.Category = Category(c)
	}
	if r.From != "" {
		d, err := ParseDate(r.From)
		if err != nil {
			return Filter{}, dErrors.NewField("from", "from must be formatted as YYYY-MM-DD")
		}
		f.From = d
	}
	if r.To != "" {
		d, err := ParseDate(r.To)
		if err != nil {
			return Filter{}, dErrors.NewField("to", "to must be formatted as YYYY-MM-DD")
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Filter{}, dErrors.NewField("to", "to must not be before from")
	}
	return f, nil
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return dErrors.NewField("price", "price cannot be negative")
	}
	if !p.Equal(p.Truncate(2)) {
		return dErrors.NewField("price", "price must have at most two decimal places")
	}
	if p.GreaterThan(MaxPrice) {
		return dErrors.NewField("price", "price must be at most "+MaxPrice.StringFixed(2))
	}
	return nil
}

func validateQuantity(q int) error {
	if q < 1 {
		return dErrors.NewField("quantity", "quantity must be at least 1")
	}
	if q > MaxQuantity {
		return dErrors.NewField("quantity", "quantity must be at most "+strconv.Itoa(MaxQuantity))
	}
	return nil
}

type ExpenseResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Category    Category        `json:"category"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewExpenseResponse(e *Expense) *ExpenseResponse {
	return &ExpenseResponse{
		ID:          e.ID.String(),
		Description: e.Description,
		Price:       e.Price,
		Quantity:    e.Quantity,
		TotalPrice:  e.TotalPrice,
		Category:    e.Category,
		Date:        e.Date.Format(DateLayout),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type ListExpensesResponse struct {
	Expenses []*ExpenseResponse `json:"expenses"`
	Total    decimal.Decimal    `json:"total"`
}

func NewListExpensesResponse(expenses []*Expense) *ListExpensesResponse {
	resp := &ListExpensesResponse{
		Expenses: make([]*ExpenseResponse, 0, len(expenses)),
		Total:    decimal.Zero,
	}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, NewExpenseResponse(e))
		resp.Total = resp.Total.Add(e.TotalPrice)
	}
	return resp
}
