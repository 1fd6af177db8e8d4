package models

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

const (
	MaxDescriptionLength = 200
	// MaxQuantity bounds the units of one expense.
	MaxQuantity = 1_000_000
	// DateLayout is the wire format of an expense date.
	DateLayout = "2006-01-02"
)

// Category classifies an expense.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHousing       Category = "housing"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryShopping      Category = "shopping"
	CategoryEducation     Category = "education"
	CategoryTravel        Category = "travel"
	CategoryOther         Category = "other"
)

var categories = map[Category]struct{}{
	CategoryFood: {}, CategoryTransport: {}, CategoryHousing: {}, CategoryUtilities: {},
	CategoryEntertainment: {}, CategoryHealth: {}, CategoryShopping: {}, CategoryEducation: {},
	CategoryTravel: {}, CategoryOther: {},
}

// Price bounds follow the storage columns: NUMERIC(14,2) for the unit price
// and NUMERIC(16,2) for the total.
var (
	MaxPrice      = decimal.RequireFromString("999999999999.99")
	MaxTotalPrice = decimal.RequireFromString("99999999999999.99")
)

func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// Expense is a single spending record owned by one user.
//
// Invariants:
//   - TotalPrice == Price × Quantity, recomputed on every write
//   - Price is non-negative with at most two decimal places, at most MaxPrice
//   - 1 <= Quantity <= MaxQuantity
//   - TotalPrice <= MaxTotalPrice
//   - Date carries no time of day (UTC midnight)
type Expense struct {
	ID          id.ExpenseID
	UserID      id.UserID
	Description string
	Price       decimal.Decimal
	Quantity    int
	TotalPrice  decimal.Decimal
	Category    Category
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewExpense(expenseID id.ExpenseID, userID id.UserID, description string, price decimal.Decimal,
	quantity int, category Category, date, now time.Time) (*Expense, error) {
	e := &Expense{
		ID:          expenseID,
		UserID:      userID,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		Category:    category,
		Date:        TruncateDate(date),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	e.recomputeTotal()
	return e, nil
}

// Patch carries the fields of a partial update; nil leaves the field unchanged.
type Patch struct {
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Category    *Category
	Date        *time.Time
}

// ApplyPatch applies p and recomputes the total. The expense is left untouched when
// the patched result would break an invariant.
func (e *Expense) ApplyPatch(p Patch, now time.Time) error {
	next := *e
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Price != nil {
		next.Price = *p.Price
	}
	if p.Quantity != nil {
		next.Quantity = *p.Quantity
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Date != nil {
		next.Date = TruncateDate(*p.Date)
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.recomputeTotal()
	next.UpdatedAt = now
	*e = next
	return nil
}

func (e *Expense) IsOwnedBy(userID id.UserID) bool {
	return e.UserID == userID
}

func (e *Expense) recomputeTotal() {
	e.TotalPrice = totalPrice(e.Price, e.Quantity)
}

func totalPrice(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

func (e *Expense) validate() error {
	n := utf8.RuneCountInString(e.Description)
	if n == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense description cannot be empty")
	}
	if n > MaxDescriptionLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense description must be 200 characters or less")
	}
	if e.Price.IsNegative() {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense price cannot be negative")
	}
	if !e.Price.Equal(e.Price.Truncate(2)) {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense price must have at most two decimal places")
	}
	if e.Price.GreaterThan(MaxPrice) {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense price must be at most "+MaxPrice.StringFixed(2))
	}
	if e.Quantity < 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense quantity must be at least 1")
	}
	if e.Quantity > MaxQuantity {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense quantity must be at most "+strconv.Itoa(MaxQuantity))
	}
	if totalPrice(e.Price, e.Quantity).GreaterThan(MaxTotalPrice) {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense total price must be at most "+MaxTotalPrice.StringFixed(2))
	}
	if !e.Category.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown expense category")
	}
	if e.Date.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "expense date is required")
	}
	return nil
}

// TruncateDate drops the time of day, keeping the calendar date as UTC midnight.
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Filter narrows a user's expense listing. Zero values match everything.
type Filter struct {
	Category Category
	From     time.Time
	To       time.Time
}

// Matches reports whether e passes the filter. From and To are inclusive dates.
func (f Filter) Matches(e *Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	return true
}
