package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"spendwise/internal/notification/models"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore is the outbox table. FetchUnpublished must run inside a transaction
// so the row locks are held until the batch is marked published.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e *models.OutboxEntry) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnpublished claims up to limit rows. Rows locked by another relay are skipped.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]*models.OutboxEntry, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []*models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, v := range ids {
		keys[i] = v.String()
	}
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1::uuid[]) AND published_at IS NULL`,
		pq.Array(keys), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountUnpublished(ctx context.Context) (int, error) {
	var count int
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return count, nil
}
