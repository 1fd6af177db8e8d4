// Package directory exposes public user profiles to the other bounded contexts
// without handing them the auth user store.
package directory

import (
	"context"
	"errors"

	"spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/email"
	"spendwise/pkg/platform/sentinel"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) ([]*models.User, error)
}

// Directory resolves users by email or ID into PublicUser views.
type Directory struct {
	users userStore
}

func New(users userStore) *Directory {
	return &Directory{users: users}
}

// FindByEmail returns CodeNotFound when no account uses address.
func (d *Directory) FindByEmail(ctx context.Context, address string) (*models.PublicUser, error) {
	u, err := d.users.FindByEmail(ctx, email.Normalize(address))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no user with that email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	p := u.Public()
	return &p, nil
}

// FindByIDs returns the profiles keyed by ID. Missing users are absent from the map.
func (d *Directory) FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]models.PublicUser, error) {
	out := make(map[id.UserID]models.PublicUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := d.users.FindByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load users")
	}
	for _, u := range users {
		out[u.ID] = u.Public()
	}
	return out, nil
}

func dedupe(ids []id.UserID) []id.UserID {
	seen := make(map[id.UserID]struct{}, len(ids))
	out := make([]id.UserID, 0, len(ids))
	for _, uid := range ids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}
