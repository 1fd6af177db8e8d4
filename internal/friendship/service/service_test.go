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
	friendshipmetrics "spendwise/internal/friendship/metrics"
	"spendwise/internal/friendship/models"
	"spendwise/internal/friendship/store"
	notificationmodels "spendwise/internal/notification/models"
	"spendwise/internal/notification/outbox"
	notificationservice "spendwise/internal/notification/service"
	notificationstore "spendwise/internal/notification/store"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/requestcontext"
)

type FriendshipServiceSuite struct {
	suite.Suite
	service       *Service
	store         *store.InMemoryStore
	notifications *notificationservice.Service
	outbox        *outbox.InMemoryStore
	runner        *tx.MemoryRunner
	metrics       *friendshipmetrics.Metrics
	users         *userstore.InMemoryUserStore
	ctx           context.Context
	now           time.Time
	alice         *authmodels.User
	bob           *authmodels.User
	carol         *authmodels.User
}

func TestFriendshipServiceSuite(t *testing.T) {
	suite.Run(t, new(FriendshipServiceSuite))
}

func (s *FriendshipServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.users = userstore.NewInMemoryUserStore()
	s.alice = s.addUser("Alice", "alice@example.com")
	s.bob = s.addUser("Bob", "bob@example.com")
	s.carol = s.addUser("Carol", "carol@example.com")

	s.store = store.NewInMemory()
	notifications := notificationstore.NewInMemory()
	s.outbox = outbox.NewInMemory()
	s.runner = tx.NewMemoryRunner()
	dir := directory.New(s.users)
	s.notifications = notificationservice.New(notifications, s.outbox, dir,
		notificationservice.WithLogger(logger),
		notificationservice.WithTxRunner(s.runner),
	)
	s.metrics = friendshipmetrics.New(prometheus.NewRegistry())
	s.service = New(s.store, dir, s.notifications,
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithTxRunner(s.runner),
	)
}

func (s *FriendshipServiceSuite) addUser(name, email string) *authmodels.User {
	u, err := authmodels.NewUser(id.UserID(uuid.New()), name, email, "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *FriendshipServiceSuite) invite(from *authmodels.User, to string) *models.Friendship {
	f, err := s.service.Invite(s.ctx, from.ID, &models.InviteRequest{Email: to})
	s.Require().NoError(err)
	return f
}

func (s *FriendshipServiceSuite) unread(userID id.UserID) []notificationmodels.Type {
	resp, err := s.notifications.List(s.ctx, userID, true, 0)
	s.Require().NoError(err)
	types := make([]notificationmodels.Type, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		types = append(types, n.Type)
	}
	return types
}

func (s *FriendshipServiceSuite) TestInviteCreatesPendingRequestAndNotification() {
	f := s.invite(s.alice, " BOB@example.com ")

	s.Equal(models.StatusPending, f.Status)
	s.Equal(s.alice.ID, f.RequesterID)
	s.Equal(s.bob.ID, f.RecipientID)
	s.Equal([]notificationmodels.Type{notificationmodels.TypeFriendRequest}, s.unread(s.bob.ID))
	s.Len(s.outbox.All(), 1)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.RequestsSent))
}

func (s *FriendshipServiceSuite) TestInviteRejections() {
	s.invite(s.alice, "bob@example.com")

	tests := []struct {
		name  string
		from  *authmodels.User
		email string
		code  dErrors.Code
	}{
		{"self", s.alice, "alice@example.com", dErrors.CodeBadRequest},
		{"unknown email", s.alice, "nobody@example.com", dErrors.CodeNotFound},
		{"malformed email", s.alice, "bob", dErrors.CodeValidation},
		{"duplicate request", s.alice, "bob@example.com", dErrors.CodeConflict},
		{"reverse pending request", s.bob, "alice@example.com", dErrors.CodeConflict},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Invite(s.ctx, tt.from.ID, &models.InviteRequest{Email: tt.email})
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
	s.Len(s.outbox.All(), 1)
}

func (s *FriendshipServiceSuite) TestInviteAfterDeclineReopensRecord() {
	f := s.invite(s.alice, "bob@example.com")
	_, err := s.service.Decline(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)

	reopened := s.invite(s.bob, "alice@example.com")
	s.Equal(f.ID, reopened.ID)
	s.Equal(models.StatusPending, reopened.Status)
	s.Equal(s.bob.ID, reopened.RequesterID)
	s.Equal(s.alice.ID, reopened.RecipientID)
}

func (s *FriendshipServiceSuite) TestAcceptNotifiesRequester() {
	f := s.invite(s.alice, "bob@example.com")

	_, err := s.service.Accept(s.ctx, s.alice.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	accepted, err := s.service.Accept(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, accepted.Status)
	s.Equal([]notificationmodels.Type{notificationmodels.TypeFriendRequestAccepted}, s.unread(s.alice.ID))

	_, err = s.service.Accept(s.ctx, s.bob.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.Invite(s.ctx, s.bob.ID, &models.InviteRequest{Email: "alice@example.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *FriendshipServiceSuite) TestCancelAndDecline() {
	f := s.invite(s.alice, "bob@example.com")

	_, err := s.service.Cancel(s.ctx, s.bob.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	canceled, err := s.service.Cancel(s.ctx, s.alice.ID, f.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCanceled, canceled.Status)

	_, err = s.service.Decline(s.ctx, s.bob.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	pending, err := s.service.ListPending(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(pending.Incoming)
}

func (s *FriendshipServiceSuite) TestRemoveEndsFriendship() {
	f := s.invite(s.alice, "bob@example.com")
	_, err := s.service.Accept(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)

	_, err = s.service.Remove(s.ctx, s.carol.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	removed, err := s.service.Remove(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRemoved, removed.Status)

	friends, err := s.service.ListFriends(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Empty(friends.Friends)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Transitions.WithLabelValues(string(models.StatusRemoved))))
}

func (s *FriendshipServiceSuite) TestListFriendsAndPending() {
	f := s.invite(s.alice, "bob@example.com")
	_, err := s.service.Accept(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)
	s.invite(s.carol, "alice@example.com")
	s.invite(s.bob, "carol@example.com")

	friends, err := s.service.ListFriends(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(friends.Friends, 1)
	s.Equal("Bob", friends.Friends[0].User.Name)
	s.Equal(f.ID.String(), friends.Friends[0].FriendshipID)

	pending, err := s.service.ListPending(s.ctx, s.carol.ID)
	s.Require().NoError(err)
	s.Require().Len(pending.Incoming, 1)
	s.Require().Len(pending.Outgoing, 1)
	s.Equal("Bob", pending.Incoming[0].Requester.Name)
	s.Equal("Alice", pending.Outgoing[0].Recipient.Name)
}

func (s *FriendshipServiceSuite) TestGetIsParticipantsOnly() {
	f := s.invite(s.alice, "bob@example.com")

	resp, err := s.service.Get(s.ctx, s.bob.ID, f.ID)
	s.Require().NoError(err)
	s.Equal("Alice", resp.Requester.Name)

	_, err = s.service.Get(s.ctx, s.carol.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Get(s.ctx, s.bob.ID, id.FriendshipID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notificationmodels.Draft) (*notificationmodels.Notification, error) {
	return nil, errors.New("notification store unavailable")
}

func (s *FriendshipServiceSuite) TestInviteRollsBackWhenNotificationFails() {
	svc := New(s.store, directory.New(s.users), failingNotifier{}, WithTxRunner(s.runner))

	_, err := svc.Invite(s.ctx, s.alice.ID, &models.InviteRequest{Email: "bob@example.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = s.store.FindBetween(s.ctx, s.alice.ID, s.bob.ID)
	s.Error(err, "friendship must not survive the failed transaction")
}
