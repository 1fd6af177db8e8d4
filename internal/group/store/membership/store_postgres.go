package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"spendwise/internal/group/models"
	"spendwise/internal/platform/postgres"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists memberships. group_memberships_group_user_key keeps the
// (group, user) pair unique.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const membershipColumns = `id, group_id, user_id, invited_by, role, status, accepted_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, m *models.Membership) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO group_memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.GroupID, m.UserID, invitedBy(m), string(m.Role), string(m.Status), m.AcceptedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("membership for group %s: %w", m.GroupID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM group_memberships WHERE id = $1`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	return scanMembership(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, membershipID))
}

func (s *PostgresStore) FindByGroupAndUser(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM group_memberships WHERE group_id = $1 AND user_id = $2`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	return scanMembership(txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, groupID, userID))
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID id.GroupID, statuses ...models.Status) ([]*models.Membership, error) {
	return s.list(ctx, `group_id = $1`, groupID, statuses)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Membership, error) {
	return s.list(ctx, `user_id = $1`, userID, statuses)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg any, statuses []models.Status) ([]*models.Membership, error) {
	states := make([]string, len(statuses))
	for i, st := range statuses {
		states[i] = string(st)
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM group_memberships
		 WHERE `+where+` AND status = ANY($2)
		 ORDER BY created_at, id`, arg, pq.Array(states))
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountAccepted(ctx context.Context, groupIDs []id.GroupID) (map[id.GroupID]int, error) {
	counts := make(map[id.GroupID]int, len(groupIDs))
	if len(groupIDs) == 0 {
		return counts, nil
	}
	keys := make([]string, len(groupIDs))
	for i, groupID := range groupIDs {
		keys[i] = groupID.String()
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT group_id, COUNT(*) FROM group_memberships
		WHERE group_id = ANY($1::uuid[]) AND status = 'accepted'
		GROUP BY group_id`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("count memberships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var groupID id.GroupID
		var n int
		if err := rows.Scan(&groupID, &n); err != nil {
			return nil, fmt.Errorf("scan membership count: %w", err)
		}
		counts[groupID] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, membershipID id.MembershipID, validate func(*models.Membership) error, mutate func(*models.Membership)) (*models.Membership, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.Membership
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, membershipID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	m, err := scanMembership(exec.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM group_memberships WHERE id = $1 FOR UPDATE`, membershipID))
	if err != nil {
		return nil, err
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)
	_, err = exec.ExecContext(ctx, `
		UPDATE group_memberships
		SET invited_by = $2, role = $3, status = $4, accepted_at = $5, updated_at = $6
		WHERE id = $1`,
		m.ID, invitedBy(m), string(m.Role), string(m.Status), m.AcceptedAt, m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update membership: %w", err)
	}
	return m, nil
}

func invitedBy(m *models.Membership) uuid.NullUUID {
	if m.InvitedBy == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*m.InvitedBy), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	var m models.Membership
	var inviter uuid.NullUUID
	var role, status string
	var acceptedAt sql.NullTime
	err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &inviter, &role, &status, &acceptedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("membership: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	m.Role = models.Role(role)
	m.Status = models.Status(status)
	if inviter.Valid {
		by := id.UserID(inviter.UUID)
		m.InvitedBy = &by
	}
	if acceptedAt.Valid {
		m.AcceptedAt = &acceptedAt.Time
	}
	return &m, nil
}
