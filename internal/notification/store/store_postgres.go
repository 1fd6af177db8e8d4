package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, user_id, from_user_id, type, reference_id, is_read, created_at`

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	var from, ref uuid.NullUUID
	if n.FromUserID != nil {
		from = uuid.NullUUID{UUID: uuid.UUID(*n.FromUserID), Valid: true}
	}
	if n.ReferenceID != uuid.Nil {
		ref = uuid.NullUUID{UUID: n.ReferenceID, Valid: true}
	}
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, from, string(n.Type), ref, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, notificationID)
	return scanNotification(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, notificationID id.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.Notification
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, notificationID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	n, err := scanNotification(exec.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 FOR UPDATE`, notificationID))
	if err != nil {
		return nil, err
	}
	if err := validate(n); err != nil {
		return nil, err
	}
	mutate(n)
	if _, err := exec.ExecContext(ctx, `UPDATE notifications SET is_read = $2 WHERE id = $1`, n.ID, n.IsRead); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var from, ref uuid.NullUUID
	var typ string
	err := row.Scan(&n.ID, &n.UserID, &from, &typ, &ref, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Type = models.Type(typ)
	if from.Valid {
		fromID := id.UserID(from.UUID)
		n.FromUserID = &fromID
	}
	if ref.Valid {
		n.ReferenceID = ref.UUID
	}
	return &n, nil
}
