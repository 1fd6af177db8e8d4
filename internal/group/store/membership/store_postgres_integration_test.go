//go:build integration

package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	authmodels "spendwise/internal/auth/models"
	userstore "spendwise/internal/auth/store/user"
	"spendwise/internal/group/models"
	groupstore "spendwise/internal/group/store/group"
	"spendwise/internal/group/store/membership"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	groups      *groupstore.PostgresStore
	memberships *membership.PostgresStore
	users       *userstore.PostgresStore
	now         time.Time
	owner       id.UserID
	invitee     id.UserID
	group       *models.Group
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.groups = groupstore.NewPostgres(s.postgres.DB)
	s.memberships = membership.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"outbox", "notifications", "expenses", "friendships", "group_memberships", "groups", "users"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.owner = s.addUser("Owner")
	s.invitee = s.addUser("Invitee")
	s.group = s.addGroup("Flat", s.owner)
}

func (s *PostgresStoreSuite) addUser(name string) id.UserID {
	u, err := authmodels.NewUser(id.UserID(uuid.New()), name, uuid.NewString()+"@example.com", "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u.ID
}

func (s *PostgresStoreSuite) addGroup(name string, owner id.UserID) *models.Group {
	g, err := models.NewGroup(id.GroupID(uuid.New()), name, "", owner, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.groups.Create(context.Background(), g))
	s.Require().NoError(s.memberships.Create(context.Background(),
		models.NewOwnerMembership(id.MembershipID(uuid.New()), g.ID, owner, s.now)))
	return g
}

func (s *PostgresStoreSuite) invite() *models.Membership {
	m, err := models.NewInvitation(id.MembershipID(uuid.New()), s.group.ID, s.invitee, s.owner, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.memberships.Create(context.Background(), m))
	return m
}

func (s *PostgresStoreSuite) TestGroupUserPairIsUnique() {
	s.invite()

	dup, err := models.NewInvitation(id.MembershipID(uuid.New()), s.group.ID, s.invitee, s.owner, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.memberships.Create(context.Background(), dup), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestRoundTripKeepsNullableColumns() {
	ctx := context.Background()
	owner, err := s.memberships.FindByGroupAndUser(ctx, s.group.ID, s.owner)
	s.Require().NoError(err)
	s.Nil(owner.InvitedBy)
	s.Require().NotNil(owner.AcceptedAt)
	s.Equal(models.RoleOwner, owner.Role)

	m := s.invite()
	got, err := s.memberships.FindByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.InvitedBy)
	s.Equal(s.owner, *got.InvitedBy)
	s.Nil(got.AcceptedAt)
}

func (s *PostgresStoreSuite) TestExecuteAndCounts() {
	ctx := context.Background()
	m := s.invite()

	counts, err := s.memberships.CountAccepted(ctx, []id.GroupID{s.group.ID})
	s.Require().NoError(err)
	s.Equal(1, counts[s.group.ID])

	_, err = s.memberships.Execute(ctx, m.ID,
		func(m *models.Membership) error { return m.CanAccept(s.invitee) },
		func(m *models.Membership) { m.ApplyAccept(s.now) },
	)
	s.Require().NoError(err)

	counts, err = s.memberships.CountAccepted(ctx, []id.GroupID{s.group.ID})
	s.Require().NoError(err)
	s.Equal(2, counts[s.group.ID])

	mine, err := s.memberships.ListByUser(ctx, s.invitee, models.StatusAccepted)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(m.ID, mine[0].ID)

	pending, err := s.memberships.ListByGroup(ctx, s.group.ID, models.StatusPending)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *PostgresStoreSuite) TestSoftDeletedGroupsAreHidden() {
	ctx := context.Background()
	other := s.addGroup("Trip", s.owner)

	_, err := s.groups.Execute(ctx, other.ID,
		func(g *models.Group) error { return g.CanManage(s.owner) },
		func(g *models.Group) error {
			g.ApplyDelete(s.now)
			return nil
		},
	)
	s.Require().NoError(err)

	_, err = s.groups.FindByID(ctx, other.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	groups, err := s.groups.ListByIDs(ctx, []id.GroupID{s.group.ID, other.ID})
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(s.group.ID, groups[0].ID)

	_, err = s.groups.Execute(ctx, other.ID,
		func(*models.Group) error { return nil },
		func(*models.Group) error { return nil },
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
