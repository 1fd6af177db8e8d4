package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"spendwise/internal/auth/directory"
	authmodels "spendwise/internal/auth/models"
	userstore "spendwise/internal/auth/store/user"
	"spendwise/internal/notification/models"
	"spendwise/internal/notification/outbox"
	"spendwise/internal/notification/store"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/requestcontext"
)

type NotificationServiceSuite struct {
	suite.Suite
	service *Service
	store   *store.InMemoryStore
	outbox  *outbox.InMemoryStore
	runner  *tx.MemoryRunner
	ctx     context.Context
	now     time.Time
	alice   *authmodels.User
	bob     *authmodels.User
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	users := userstore.NewInMemoryUserStore()
	s.alice = s.addUser(users, "Alice", "alice@example.com")
	s.bob = s.addUser(users, "Bob", "bob@example.com")

	s.store = store.NewInMemory()
	s.outbox = outbox.NewInMemory()
	s.runner = tx.NewMemoryRunner()
	s.service = New(s.store, s.outbox, directory.New(users),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTxRunner(s.runner),
	)
}

func (s *NotificationServiceSuite) addUser(users *userstore.InMemoryUserStore, name, email string) *authmodels.User {
	u, err := authmodels.NewUser(id.UserID(uuid.New()), name, email, "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(context.Background(), u))
	return u
}

func (s *NotificationServiceSuite) notify(to, from id.UserID, typ models.Type) *models.Notification {
	n, err := s.service.Notify(s.ctx, models.Draft{UserID: to, FromUserID: from, Type: typ, ReferenceID: uuid.New()})
	s.Require().NoError(err)
	return n
}

func (s *NotificationServiceSuite) TestNotifyWritesOutboxEntry() {
	n := s.notify(s.bob.ID, s.alice.ID, models.TypeFriendRequest)

	entries := s.outbox.All()
	s.Require().Len(entries, 1)
	s.Equal(s.bob.ID.String(), entries[0].AggregateID)
	s.Equal(models.EventNotificationCreated, entries[0].EventType)

	var event models.NotificationEvent
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &event))
	s.Equal(n.ID.String(), event.NotificationID)
	s.Equal(s.alice.ID.String(), event.FromUserID)
	s.Equal(models.TypeFriendRequest, event.Type)
}

func (s *NotificationServiceSuite) TestNotifyRollsBackWithCallerTransaction() {
	callerErr := errors.New("membership write failed")
	err := s.runner.RunInTx(s.ctx, func(txCtx context.Context) error {
		if _, err := s.service.Notify(txCtx, models.Draft{UserID: s.bob.ID, FromUserID: s.alice.ID, Type: models.TypeGroupInvite}); err != nil {
			return err
		}
		return callerErr
	})
	s.ErrorIs(err, callerErr)

	count, err := s.service.UnreadCount(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Zero(count)
	s.Empty(s.outbox.All())
}

func (s *NotificationServiceSuite) TestNotifyRejectsUnknownType() {
	_, err := s.service.Notify(s.ctx, models.Draft{UserID: s.bob.ID, Type: models.Type("poke")})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *NotificationServiceSuite) TestListNewestFirstWithSender() {
	first := s.notify(s.bob.ID, s.alice.ID, models.TypeFriendRequest)
	s.ctx = requestcontext.WithTime(context.Background(), s.now.Add(time.Minute))
	second := s.notify(s.bob.ID, s.alice.ID, models.TypeGroupInvite)
	s.notify(s.alice.ID, s.bob.ID, models.TypeFriendRequestAccepted)

	resp, err := s.service.List(s.ctx, s.bob.ID, false, 0)
	s.Require().NoError(err)
	s.Require().Len(resp.Notifications, 2)
	s.Equal(second.ID.String(), resp.Notifications[0].ID)
	s.Equal(first.ID.String(), resp.Notifications[1].ID)
	s.Require().NotNil(resp.Notifications[0].FromUser)
	s.Equal("Alice", resp.Notifications[0].FromUser.Name)
	s.Equal(2, resp.UnreadCount)
}

func (s *NotificationServiceSuite) TestMarkRead() {
	n := s.notify(s.bob.ID, s.alice.ID, models.TypeFriendRequest)

	_, err := s.service.MarkRead(s.ctx, s.alice.ID, n.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "only the recipient can mark it read")

	read, err := s.service.MarkRead(s.ctx, s.bob.ID, n.ID)
	s.Require().NoError(err)
	s.True(read.IsRead)

	unread, err := s.service.List(s.ctx, s.bob.ID, true, 0)
	s.Require().NoError(err)
	s.Empty(unread.Notifications)

	_, err = s.service.MarkRead(s.ctx, s.bob.ID, id.NotificationID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *NotificationServiceSuite) TestMarkAllRead() {
	s.notify(s.bob.ID, s.alice.ID, models.TypeFriendRequest)
	s.notify(s.bob.ID, s.alice.ID, models.TypeGroupInvite)
	s.notify(s.alice.ID, s.bob.ID, models.TypeGroupInvite)

	updated, err := s.service.MarkAllRead(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(2, updated)

	count, err := s.service.UnreadCount(s.ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Zero(count)

	count, err = s.service.UnreadCount(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
