package authlockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/ratelimit/models"
)

// PostgresStore persists lockout records in PostgreSQL. It always writes through
// the pool, never through a caller's transaction, so a failure recorded by a
// request that later rolls back still counts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const lockoutColumns = `identifier, failure_count, daily_failures, locked_until, last_failure_at`

func (s *PostgresStore) Get(ctx context.Context, identifier string) (*models.AuthLockout, error) {
	record, err := scanAuthLockout(s.db.QueryRowContext(ctx,
		`SELECT `+lockoutColumns+` FROM auth_lockouts WHERE identifier = $1`, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth lockout: %w", err)
	}
	return record, nil
}

// RecordFailure increments the counters in one statement so concurrent failures
// cannot slip past the thresholds. Counters whose window lapsed start over.
func (s *PostgresStore) RecordFailure(ctx context.Context, identifier string, now time.Time, window time.Duration) (*models.AuthLockout, error) {
	query := `
		INSERT INTO auth_lockouts (identifier, failure_count, daily_failures, locked_until, last_failure_at)
		VALUES ($1, 1, 1, NULL, $2)
		ON CONFLICT (identifier) DO UPDATE SET
			failure_count = CASE WHEN auth_lockouts.last_failure_at <= $3 THEN 1
				ELSE auth_lockouts.failure_count + 1 END,
			daily_failures = CASE WHEN auth_lockouts.last_failure_at <= $4 THEN 1
				ELSE auth_lockouts.daily_failures + 1 END,
			last_failure_at = $2
		RETURNING ` + lockoutColumns
	record, err := scanAuthLockout(s.db.QueryRowContext(ctx, query,
		identifier, now, now.Add(-window), now.Add(-24*time.Hour)))
	if err != nil {
		return nil, fmt.Errorf("record auth failure: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, record *models.AuthLockout) error {
	if record == nil {
		return fmt.Errorf("auth lockout record is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_lockouts (`+lockoutColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identifier) DO UPDATE SET
			failure_count = EXCLUDED.failure_count,
			daily_failures = EXCLUDED.daily_failures,
			locked_until = EXCLUDED.locked_until,
			last_failure_at = EXCLUDED.last_failure_at`,
		record.Identifier,
		record.FailureCount,
		record.DailyFailures,
		record.LockedUntil,
		record.LastFailureAt,
	)
	if err != nil {
		return fmt.Errorf("update auth lockout: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, identifier string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_lockouts WHERE identifier = $1`, identifier); err != nil {
		return fmt.Errorf("clear auth lockout: %w", err)
	}
	return nil
}

func scanAuthLockout(row interface{ Scan(dest ...any) error }) (*models.AuthLockout, error) {
	var record models.AuthLockout
	var lockedUntil sql.NullTime
	if err := row.Scan(&record.Identifier, &record.FailureCount, &record.DailyFailures, &lockedUntil, &record.LastFailureAt); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		record.LockedUntil = &lockedUntil.Time
	}
	return &record, nil
}
