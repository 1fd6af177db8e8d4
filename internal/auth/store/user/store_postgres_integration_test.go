//go:build integration

package user_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"spendwise/internal/auth/models"
	"spendwise/internal/auth/store/user"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"outbox", "notifications", "expenses", "friendships", "group_memberships", "groups", "users"))
}

func newPGUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.User{
		ID:           id.UserID(uuid.New()),
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := newPGUser("ana@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByEmail(ctx, "ANA@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Nil(found.EmailVerifiedAt)

	list, err := s.store.FindByIDs(ctx, []id.UserID{u.ID, id.UserID(uuid.New())})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PostgresStoreSuite) TestExecutePersistsMutation() {
	ctx := context.Background()
	u := newPGUser("verify@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	now := time.Now().UTC()
	_, err := s.store.Execute(ctx, u.ID,
		func(*models.User) error { return nil },
		func(u *models.User) { u.ApplyEmailVerified(now) })
	s.Require().NoError(err)

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(found.EmailVerifiedAt)

	_, err = s.store.Execute(ctx, id.UserID(uuid.New()),
		func(*models.User) error { return nil }, func(*models.User) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentSignupSameEmail verifies the unique index lets exactly one signup win.
func (s *PostgresStoreSuite) TestConcurrentSignupSameEmail() {
	ctx := context.Background()
	const goroutines = 20
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newPGUser("race@example.com"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}
