package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"spendwise/internal/group/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	txcontext "spendwise/pkg/platform/tx"
)

// PostgresStore persists groups. Soft-deleted rows keep deleted_at set and are
// filtered out of every query.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	groupColumns = `id, name, image, owner_id, status, deleted_at, created_at, updated_at`
	activeClause = `status = 'active' AND deleted_at IS NULL`
)

func (s *PostgresStore) Create(ctx context.Context, g *models.Group) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO groups (`+groupColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID, g.Name, g.Image, g.OwnerID, string(g.Status), g.DeletedAt, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1 AND `+activeClause, groupID)
	return scanGroup(row)
}

func (s *PostgresStore) ListByIDs(ctx context.Context, groupIDs []id.GroupID) ([]*models.Group, error) {
	if len(groupIDs) == 0 {
		return []*models.Group{}, nil
	}
	keys := make([]string, len(groupIDs))
	for i, groupID := range groupIDs {
		keys[i] = groupID.String()
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ANY($1::uuid[]) AND `+activeClause+`
		 ORDER BY created_at DESC, id`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Group, 0, len(groupIDs))
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, groupID id.GroupID, validate func(*models.Group) error, mutate func(*models.Group) error) (*models.Group, error) {
	if _, ok := txcontext.From(ctx); !ok {
		var out *models.Group
		err := txcontext.NewPostgresRunner(s.db).RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			out, err = s.Execute(txCtx, groupID, validate, mutate)
			return err
		})
		return out, err
	}

	exec := txcontext.ExecutorFrom(ctx, s.db)
	g, err := scanGroup(exec.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1 AND `+activeClause+` FOR UPDATE`, groupID))
	if err != nil {
		return nil, err
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	if err := mutate(g); err != nil {
		return nil, err
	}
	_, err = exec.ExecContext(ctx, `
		UPDATE groups SET name = $2, image = $3, owner_id = $4, status = $5, deleted_at = $6, updated_at = $7
		WHERE id = $1`,
		g.ID, g.Name, g.Image, g.OwnerID, string(g.Status), g.DeletedAt, g.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	var status string
	var deletedAt sql.NullTime
	err := row.Scan(&g.ID, &g.Name, &g.Image, &g.OwnerID, &status, &deletedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}
	g.Status = models.GroupStatus(status)
	if deletedAt.Valid {
		g.DeletedAt = &deletedAt.Time
	}
	return &g, nil
}
