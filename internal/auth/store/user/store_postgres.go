package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"spendwise/internal/auth/models"
	"spendwise/internal/platform/postgres"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, name, email, image, bio, password_hash, email_verified_at,
	verification_code_hash, verification_expires_at, reset_code_hash, reset_expires_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Name, user.Email, user.Image, user.Bio, user.PasswordHash, user.EmailVerifiedAt,
		user.VerificationCodeHash, user.VerificationExpiresAt, user.ResetCodeHash, user.ResetExpiresAt,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) FindByIDs(ctx context.Context, userIDs []id.UserID) ([]*models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(userIDs))
	for i, uid := range userIDs {
		keys[i] = uid.String()
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Execute locks the row with FOR UPDATE, validates, mutates and writes it back.
// Without an ambient transaction it opens its own.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.User
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, userID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	u, err := scanUser(exec.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, err
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	mutate(u)

	_, err = exec.ExecContext(ctx, `
		UPDATE users SET name = $2, image = $3, bio = $4, password_hash = $5, email_verified_at = $6,
			verification_code_hash = $7, verification_expires_at = $8, reset_code_hash = $9,
			reset_expires_at = $10, updated_at = $11
		WHERE id = $1`,
		u.ID, u.Name, u.Image, u.Bio, u.PasswordHash, u.EmailVerifiedAt,
		u.VerificationCodeHash, u.VerificationExpiresAt, u.ResetCodeHash, u.ResetExpiresAt, u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var verifiedAt, verificationExpiresAt, resetExpiresAt sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.Bio, &u.PasswordHash, &verifiedAt,
		&u.VerificationCodeHash, &verificationExpiresAt, &u.ResetCodeHash, &resetExpiresAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.EmailVerifiedAt = nullTime(verifiedAt)
	u.VerificationExpiresAt = nullTime(verificationExpiresAt)
	u.ResetExpiresAt = nullTime(resetExpiresAt)
	return &u, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
