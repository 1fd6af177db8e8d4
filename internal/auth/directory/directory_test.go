package directory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/auth/models"
	userstore "spendwise/internal/auth/store/user"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

func seed(t *testing.T, store *userstore.InMemoryUserStore, name, address string) *models.User {
	t.Helper()
	u, err := models.NewUser(id.UserID(uuid.New()), name, address, "hash", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestFindByEmail(t *testing.T) {
	store := userstore.NewInMemoryUserStore()
	ana := seed(t, store, "Ana", "ana@example.com")
	d := New(store)

	p, err := d.FindByEmail(context.Background(), " ANA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, p.ID)
	assert.Equal(t, "Ana", p.Name)

	_, err = d.FindByEmail(context.Background(), "ghost@example.com")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestFindByIDs(t *testing.T) {
	store := userstore.NewInMemoryUserStore()
	ana := seed(t, store, "Ana", "ana@example.com")
	bob := seed(t, store, "Bob", "bob@example.com")
	d := New(store)

	got, err := d.FindByIDs(context.Background(), []id.UserID{ana.ID, bob.ID, ana.ID, id.UserID(uuid.New())})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Bob", got[bob.ID].Name)

	empty, err := d.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
