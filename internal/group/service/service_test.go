package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"spendwise/internal/auth/directory"
	authmodels "spendwise/internal/auth/models"
	userstore "spendwise/internal/auth/store/user"
	groupmetrics "spendwise/internal/group/metrics"
	"spendwise/internal/group/models"
	groupstore "spendwise/internal/group/store/group"
	membershipstore "spendwise/internal/group/store/membership"
	notificationmodels "spendwise/internal/notification/models"
	"spendwise/internal/notification/outbox"
	notificationservice "spendwise/internal/notification/service"
	notificationstore "spendwise/internal/notification/store"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/requestcontext"
)

type GroupServiceSuite struct {
	suite.Suite
	service       *Service
	groups        *groupstore.InMemoryGroupStore
	memberships   *membershipstore.InMemoryMembershipStore
	notifications *notificationservice.Service
	outbox        *outbox.InMemoryStore
	runner        *tx.MemoryRunner
	metrics       *groupmetrics.Metrics
	users         *userstore.InMemoryUserStore
	ctx           context.Context
	now           time.Time
	alice         *authmodels.User
	bob           *authmodels.User
	carol         *authmodels.User
}

func TestGroupServiceSuite(t *testing.T) {
	suite.Run(t, new(GroupServiceSuite))
}

func (s *GroupServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.users = userstore.NewInMemoryUserStore()
	s.alice = s.addUser("Alice", "alice@example.com")
	s.bob = s.addUser("Bob", "bob@example.com")
	s.carol = s.addUser("Carol", "carol@example.com")

	s.groups = groupstore.NewInMemoryGroupStore()
	s.memberships = membershipstore.NewInMemoryMembershipStore()
	notifications := notificationstore.NewInMemory()
	s.outbox = outbox.NewInMemory()
	s.runner = tx.NewMemoryRunner()
	dir := directory.New(s.users)
	s.notifications = notificationservice.New(notifications, s.outbox, dir,
		notificationservice.WithLogger(logger),
		notificationservice.WithTxRunner(s.runner),
	)
	s.metrics = groupmetrics.New(prometheus.NewRegistry())
	s.service = New(s.groups, s.memberships, dir, s.notifications,
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithTxRunner(s.runner),
	)
}

func (s *GroupServiceSuite) addUser(name, email string) *authmodels.User {
	u, err := authmodels.NewUser(id.UserID(uuid.New()), name, email, "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *GroupServiceSuite) createGroup(owner *authmodels.User, name string) id.GroupID {
	resp, err := s.service.CreateGroup(s.ctx, owner.ID, &models.CreateGroupRequest{Name: name})
	s.Require().NoError(err)
	groupID, err := id.ParseGroupID(resp.ID)
	s.Require().NoError(err)
	return groupID
}

func (s *GroupServiceSuite) invite(actor *authmodels.User, groupID id.GroupID, email string) *models.Membership {
	m, err := s.service.Invite(s.ctx, actor.ID, groupID, &models.InviteMemberRequest{Email: email})
	s.Require().NoError(err)
	return m
}

// join invites user into the group as the owner and accepts on their behalf.
func (s *GroupServiceSuite) join(owner, user *authmodels.User, groupID id.GroupID) *models.Membership {
	m := s.invite(owner, groupID, user.Email)
	accepted, err := s.service.Accept(s.ctx, user.ID, m.ID)
	s.Require().NoError(err)
	return accepted
}

func (s *GroupServiceSuite) ownerMembership(groupID id.GroupID, owner *authmodels.User) *models.Membership {
	m, err := s.memberships.FindByGroupAndUser(s.ctx, groupID, owner.ID)
	s.Require().NoError(err)
	return m
}

func (s *GroupServiceSuite) unread(userID id.UserID) []notificationmodels.Type {
	resp, err := s.notifications.List(s.ctx, userID, true, 0)
	s.Require().NoError(err)
	types := make([]notificationmodels.Type, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		types = append(types, n.Type)
	}
	return types
}

// assertSingleOwner checks that exactly one accepted owner membership exists and
// that it matches the group's owner field.
func (s *GroupServiceSuite) assertSingleOwner(groupID id.GroupID) id.UserID {
	g, err := s.groups.FindByID(s.ctx, groupID)
	s.Require().NoError(err)
	members, err := s.memberships.ListByGroup(s.ctx, groupID, models.StatusAccepted, models.StatusPending)
	s.Require().NoError(err)
	var owners []id.UserID
	for _, m := range members {
		if m.Role == models.RoleOwner {
			s.Equal(models.StatusAccepted, m.Status)
			owners = append(owners, m.UserID)
		}
	}
	s.Require().Len(owners, 1)
	s.Equal(g.OwnerID, owners[0])
	return owners[0]
}

func (s *GroupServiceSuite) TestCreateGroupWritesOwnerMembership() {
	resp, err := s.service.CreateGroup(s.ctx, s.alice.ID, &models.CreateGroupRequest{Name: " Trip ", Image: "img"})
	s.Require().NoError(err)
	s.Equal("Trip", resp.Name)
	s.Equal(1, resp.MemberCount)
	s.Require().NotNil(resp.Owner)
	s.Equal("Alice", resp.Owner.Name)

	groupID, err := id.ParseGroupID(resp.ID)
	s.Require().NoError(err)
	s.Equal(s.alice.ID, s.assertSingleOwner(groupID))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.GroupsCreated))
}

func (s *GroupServiceSuite) TestCreateGroupValidation() {
	_, err := s.service.CreateGroup(s.ctx, s.alice.ID, &models.CreateGroupRequest{Name: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *GroupServiceSuite) TestGetGroupMembersOnly() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)

	resp, err := s.service.GetGroup(s.ctx, s.bob.ID, groupID)
	s.Require().NoError(err)
	s.Equal(2, resp.MemberCount)

	_, err = s.service.GetGroup(s.ctx, s.carol.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.invite(s.alice, groupID, s.carol.Email)
	_, err = s.service.GetGroup(s.ctx, s.carol.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "pending invitees are not members yet")

	_, err = s.service.GetGroup(s.ctx, s.alice.ID, id.GroupID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *GroupServiceSuite) TestListGroupsCountsAcceptedMembers() {
	flat := s.createGroup(s.alice, "Flat")
	s.ctx = requestcontext.WithTime(context.Background(), s.now.Add(time.Minute))
	trip := s.createGroup(s.bob, "Trip")
	s.join(s.alice, s.bob, flat)
	s.invite(s.alice, flat, s.carol.Email)

	resp, err := s.service.ListGroups(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Require().Len(resp.Groups, 2)
	s.Equal(trip.String(), resp.Groups[0].ID, "newest first")
	s.Equal(1, resp.Groups[0].MemberCount)
	s.Equal(flat.String(), resp.Groups[1].ID)
	s.Equal(2, resp.Groups[1].MemberCount, "pending invitations are not counted")

	carolGroups, err := s.service.ListGroups(s.ctx, s.carol.ID)
	s.Require().NoError(err)
	s.Empty(carolGroups.Groups)
}

func (s *GroupServiceSuite) TestUpdateGroupOwnerOnly() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)
	name := "Flat 2"

	_, err := s.service.UpdateGroup(s.ctx, s.bob.ID, groupID, &models.UpdateGroupRequest{Name: &name})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	resp, err := s.service.UpdateGroup(s.ctx, s.alice.ID, groupID, &models.UpdateGroupRequest{Name: &name})
	s.Require().NoError(err)
	s.Equal("Flat 2", resp.Name)
	s.Equal(2, resp.MemberCount)

	_, err = s.service.UpdateGroup(s.ctx, s.alice.ID, groupID, &models.UpdateGroupRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *GroupServiceSuite) TestDeleteGroupHidesItEverywhere() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)
	pending := s.invite(s.alice, groupID, s.carol.Email)

	err := s.service.DeleteGroup(s.ctx, s.bob.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Require().NoError(s.service.DeleteGroup(s.ctx, s.alice.ID, groupID))

	_, err = s.service.GetGroup(s.ctx, s.alice.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	groups, err := s.service.ListGroups(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(groups.Groups)

	invites, err := s.service.ListInvites(s.ctx, s.carol.ID)
	s.Require().NoError(err)
	s.Empty(invites.Invites)

	_, err = s.service.Accept(s.ctx, s.carol.ID, pending.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.DeleteGroup(s.ctx, s.alice.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *GroupServiceSuite) TestInviteCreatesPendingMembershipAndNotification() {
	groupID := s.createGroup(s.alice, "Flat")

	m := s.invite(s.alice, groupID, "BOB@example.com")
	s.Equal(models.StatusPending, m.Status)
	s.Equal(models.RoleMember, m.Role)
	s.True(m.WasInvitedBy(s.alice.ID))
	s.Equal([]notificationmodels.Type{notificationmodels.TypeGroupInvite}, s.unread(s.bob.ID))
	s.Len(s.outbox.All(), 1)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.InvitesSent))

	invites, err := s.service.ListInvites(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Require().Len(invites.Invites, 1)
	s.Equal("Flat", invites.Invites[0].Group.Name)
	s.Equal("Alice", invites.Invites[0].InvitedBy.Name)
}

func (s *GroupServiceSuite) TestInviteRejections() {
	groupID := s.createGroup(s.alice, "Flat")
	s.invite(s.alice, groupID, s.bob.Email)

	tests := []struct {
		name    string
		actor   *authmodels.User
		groupID id.GroupID
		email   string
		code    dErrors.Code
	}{
		{"already pending", s.alice, groupID, s.bob.Email, dErrors.CodeConflict},
		{"self", s.alice, groupID, s.alice.Email, dErrors.CodeBadRequest},
		{"unknown email", s.alice, groupID, "nobody@example.com", dErrors.CodeNotFound},
		{"pending invitee cannot invite", s.bob, groupID, s.carol.Email, dErrors.CodeForbidden},
		{"non-member cannot invite", s.carol, groupID, s.bob.Email, dErrors.CodeForbidden},
		{"unknown group", s.alice, id.GroupID(uuid.New()), s.carol.Email, dErrors.CodeNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Invite(s.ctx, tt.actor.ID, tt.groupID, &models.InviteMemberRequest{Email: tt.email})
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
	s.Len(s.outbox.All(), 1, "rejected invitations emit nothing")
}

func (s *GroupServiceSuite) TestAnyMemberCanInviteAndReinviteReusesRecord() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)

	first := s.invite(s.bob, groupID, s.carol.Email)
	_, err := s.service.Decline(s.ctx, s.carol.ID, first.ID)
	s.Require().NoError(err)

	second := s.invite(s.alice, groupID, s.carol.Email)
	s.Equal(first.ID, second.ID)
	s.Equal(models.StatusPending, second.Status)
	s.True(second.WasInvitedBy(s.alice.ID))
}

func (s *GroupServiceSuite) TestAcceptNotifiesInviter() {
	groupID := s.createGroup(s.alice, "Flat")
	m := s.invite(s.alice, groupID, s.bob.Email)

	_, err := s.service.Accept(s.ctx, s.carol.ID, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	accepted, err := s.service.Accept(s.ctx, s.bob.ID, m.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, accepted.Status)
	s.Require().NotNil(accepted.AcceptedAt)
	s.Equal([]notificationmodels.Type{notificationmodels.TypeGroupInviteAccepted}, s.unread(s.alice.ID))

	_, err = s.service.Accept(s.ctx, s.bob.ID, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Accept(s.ctx, s.bob.ID, id.MembershipID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *GroupServiceSuite) TestCancelByInviterOrOwner() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)
	m := s.invite(s.bob, groupID, s.carol.Email)

	_, err := s.service.Cancel(s.ctx, s.carol.ID, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	canceled, err := s.service.Cancel(s.ctx, s.alice.ID, m.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, canceled.Status)

	members, err := s.service.ListMembers(s.ctx, s.alice.ID, groupID)
	s.Require().NoError(err)
	s.Len(members.Members, 2, "canceled invitations drop out of the member list")
}

func (s *GroupServiceSuite) TestKickNotifiesRemovedMember() {
	groupID := s.createGroup(s.alice, "Flat")
	bob := s.join(s.alice, s.bob, groupID)
	carol := s.join(s.alice, s.carol, groupID)

	_, err := s.service.Kick(s.ctx, s.bob.ID, carol.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Kick(s.ctx, s.alice.ID, s.ownerMembership(groupID, s.alice).ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	removed, err := s.service.Kick(s.ctx, s.alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRemoved, removed.Status)
	s.Contains(s.unread(s.bob.ID), notificationmodels.TypeGroupMemberRemoved)

	groups, err := s.service.ListGroups(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(groups.Groups)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.MembershipTransitions.WithLabelValues(string(models.StatusRemoved))))
}

func (s *GroupServiceSuite) TestLeave() {
	groupID := s.createGroup(s.alice, "Flat")
	bob := s.join(s.alice, s.bob, groupID)

	_, err := s.service.Leave(s.ctx, s.alice.ID, s.ownerMembership(groupID, s.alice).ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "owner must transfer first")

	_, err = s.service.Leave(s.ctx, s.alice.ID, bob.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	left, err := s.service.Leave(s.ctx, s.bob.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusLeft, left.Status)

	_, err = s.service.GetGroup(s.ctx, s.bob.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *GroupServiceSuite) TestListMembersPopulatesProfiles() {
	groupID := s.createGroup(s.alice, "Flat")
	s.join(s.alice, s.bob, groupID)
	s.invite(s.bob, groupID, s.carol.Email)

	resp, err := s.service.ListMembers(s.ctx, s.bob.ID, groupID)
	s.Require().NoError(err)
	s.Require().Len(resp.Members, 3)
	byName := map[string]*models.MembershipResponse{}
	for _, m := range resp.Members {
		s.Require().NotNil(m.User)
		byName[m.User.Name] = m
	}
	s.Equal(models.RoleOwner, byName["Alice"].Role)
	s.Equal(models.StatusPending, byName["Carol"].Status)
	s.Require().NotNil(byName["Carol"].InvitedBy)
	s.Equal("Bob", byName["Carol"].InvitedBy.Name)

	_, err = s.service.ListMembers(s.ctx, s.carol.ID, groupID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *GroupServiceSuite) TestTransferOwnership() {
	groupID := s.createGroup(s.alice, "Flat")
	bob := s.join(s.alice, s.bob, groupID)
	from := s.ownerMembership(groupID, s.alice)

	resp, err := s.service.TransferOwnership(s.ctx, s.alice.ID, from.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(s.bob.ID.String(), resp.Group.OwnerID)
	s.Equal(models.RoleMember, resp.From.Role)
	s.Equal(models.RoleOwner, resp.To.Role)
	s.Equal(s.bob.ID, s.assertSingleOwner(groupID))
	s.Contains(s.unread(s.bob.ID), notificationmodels.TypeGroupOwnershipTransferred)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.OwnershipTransfers))

	_, err = s.service.Leave(s.ctx, s.alice.ID, from.ID)
	s.Require().NoError(err, "the former owner can leave once ownership moved")
	s.Equal(s.bob.ID, s.assertSingleOwner(groupID))
}

func (s *GroupServiceSuite) TestTransferOwnershipRejections() {
	flat := s.createGroup(s.alice, "Flat")
	trip := s.createGroup(s.carol, "Trip")
	bob := s.join(s.alice, s.bob, flat)
	pending := s.invite(s.alice, flat, s.carol.Email)
	from := s.ownerMembership(flat, s.alice)
	otherGroup := s.ownerMembership(trip, s.carol)

	tests := []struct {
		name     string
		actor    *authmodels.User
		from, to id.MembershipID
		code     dErrors.Code
	}{
		{"missing source", s.alice, id.MembershipID(uuid.New()), bob.ID, dErrors.CodeNotFound},
		{"missing target", s.alice, from.ID, id.MembershipID(uuid.New()), dErrors.CodeNotFound},
		{"different groups", s.alice, from.ID, otherGroup.ID, dErrors.CodeBadRequest},
		{"caller is not the owner", s.bob, from.ID, bob.ID, dErrors.CodeForbidden},
		{"source is not the owner", s.bob, bob.ID, from.ID, dErrors.CodeForbidden},
		{"target not accepted", s.alice, from.ID, pending.ID, dErrors.CodeConflict},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.TransferOwnership(s.ctx, tt.actor.ID, tt.from, tt.to)
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
			s.Equal(s.alice.ID, s.assertSingleOwner(flat))
		})
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notificationmodels.Draft) (*notificationmodels.Notification, error) {
	return nil, errors.New("notification store unavailable")
}

func (s *GroupServiceSuite) TestTransferOwnershipIsAllOrNothing() {
	groupID := s.createGroup(s.alice, "Flat")
	bob := s.join(s.alice, s.bob, groupID)
	from := s.ownerMembership(groupID, s.alice)

	svc := New(s.groups, s.memberships, directory.New(s.users), failingNotifier{}, WithTxRunner(s.runner))
	_, err := svc.TransferOwnership(s.ctx, s.alice.ID, from.ID, bob.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Equal(s.alice.ID, s.assertSingleOwner(groupID))
	reloaded, err := s.memberships.FindByID(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleMember, reloaded.Role)
}

func (s *GroupServiceSuite) TestInviteRollsBackWhenNotificationFails() {
	groupID := s.createGroup(s.alice, "Flat")

	svc := New(s.groups, s.memberships, directory.New(s.users), failingNotifier{}, WithTxRunner(s.runner))
	_, err := svc.Invite(s.ctx, s.alice.ID, groupID, &models.InviteMemberRequest{Email: s.bob.Email})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.memberships.FindByGroupAndUser(s.ctx, groupID, s.bob.ID)
	s.Error(err, "membership must not survive the failed transaction")
}
