package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"spendwise/internal/expense/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists expenses in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const expenseColumns = `id, user_id, description, price, quantity, total_price, category, spent_on, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e *models.Expense) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.UserID, e.Description, e.Price, e.Quantity, e.TotalPrice, string(e.Category), e.Date,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, expenseID id.ExpenseID) (*models.Expense, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, expenseID)
	return scanExpense(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, filter models.Filter) ([]*models.Expense, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = $1`)
	args := []any{userID}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		fmt.Fprintf(&b, " AND category = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&b, " AND spent_on >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&b, " AND spent_on <= $%d", len(args))
	}
	b.WriteString(" ORDER BY spent_on DESC, created_at DESC, id")

	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Execute locks the expense row, validates, mutates and writes it back.
func (s *PostgresStore) Execute(ctx context.Context, expenseID id.ExpenseID, validate func(*models.Expense) error, mutate func(*models.Expense) error) (*models.Expense, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.Expense
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, expenseID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	e, err := scanExpense(exec.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, expenseID))
	if err != nil {
		return nil, err
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if err := mutate(e); err != nil {
		return nil, err
	}
	_, err = exec.ExecContext(ctx, `
		UPDATE expenses SET description = $2, price = $3, quantity = $4, total_price = $5,
			category = $6, spent_on = $7, updated_at = $8
		WHERE id = $1`,
		e.ID, e.Description, e.Price, e.Quantity, e.TotalPrice, string(e.Category), e.Date, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, expenseID id.ExpenseID) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	var category string
	err := row.Scan(&e.ID, &e.UserID, &e.Description, &e.Price, &e.Quantity, &e.TotalPrice,
		&category, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("expense: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	e.Category = models.Category(category)
	e.Date = models.TruncateDate(e.Date)
	return &e, nil
}
