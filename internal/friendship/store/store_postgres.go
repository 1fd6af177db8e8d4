package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"spendwise/internal/friendship/models"
	"spendwise/internal/platform/postgres"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists friendships. The unordered pair is unique through an
// expression index on LEAST/GREATEST of the two user IDs.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const friendshipColumns = `id, requester_id, recipient_id, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, f *models.Friendship) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO friendships (`+friendshipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.RequesterID, f.RecipientID, string(f.Status), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("friendship pair: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, friendshipID id.FriendshipID) (*models.Friendship, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`, friendshipID)
	return scanFriendship(row)
}

func (s *PostgresStore) FindBetween(ctx context.Context, a, b id.UserID) (*models.Friendship, error) {
	query := `SELECT ` + friendshipColumns + ` FROM friendships
		WHERE LEAST(requester_id, recipient_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(requester_id, recipient_id) = GREATEST($1::uuid, $2::uuid)`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, a, b)
	return scanFriendship(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Friendship, error) {
	keys := make([]string, len(statuses))
	for i, st := range statuses {
		keys[i] = string(st)
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT `+friendshipColumns+` FROM friendships
		WHERE (requester_id = $1 OR recipient_id = $1) AND status = ANY($2)
		ORDER BY updated_at DESC, id`,
		userID, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	var out []*models.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, friendshipID id.FriendshipID, validate func(*models.Friendship) error, mutate func(*models.Friendship)) (*models.Friendship, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.Friendship
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, friendshipID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	f, err := scanFriendship(exec.QueryRowContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = $1 FOR UPDATE`, friendshipID))
	if err != nil {
		return nil, err
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	mutate(f)
	_, err = exec.ExecContext(ctx, `
		UPDATE friendships SET requester_id = $2, recipient_id = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		f.ID, f.RequesterID, f.RecipientID, string(f.Status), f.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update friendship: %w", err)
	}
	return f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFriendship(row rowScanner) (*models.Friendship, error) {
	var f models.Friendship
	var status string
	err := row.Scan(&f.ID, &f.RequesterID, &f.RecipientID, &status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("friendship: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan friendship: %w", err)
	}
	f.Status = models.Status(status)
	return &f, nil
}
