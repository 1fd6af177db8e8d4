//go:build integration

package outbox_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	authmodels "spendwise/internal/auth/models"
	userstore "spendwise/internal/auth/store/user"
	"spendwise/internal/notification/models"
	"spendwise/internal/notification/outbox"
	"spendwise/internal/platform/kafka"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/testutil/containers"
)

type RelayIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	broker   string
	store    *outbox.PostgresStore
	producer *kafka.Producer
	topic    string
}

func TestRelayIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RelayIntegrationSuite))
}

func (s *RelayIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.broker = mgr.GetRedpanda(s.T()).Broker
	s.store = outbox.NewPostgres(s.postgres.DB)

	producer, err := kafka.NewProducer([]string{s.broker}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.producer = producer
	s.topic = "notifications-" + uuid.NewString()[:8]
	s.Require().NoError(producer.EnsureTopic(context.Background(), s.topic, 1, 1))
}

func (s *RelayIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelayIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"outbox", "notifications", "expenses", "friendships", "group_memberships", "groups", "users"))
}

func (s *RelayIntegrationSuite) TestPublishesPendingEntriesToKafka() {
	ctx := context.Background()
	recipient := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)
	user, err := authmodels.NewUser(recipient, "Recipient", "r@example.com", "hash", now)
	s.Require().NoError(err)
	s.Require().NoError(userstore.NewPostgres(s.postgres.DB).Create(ctx, user))

	n, err := models.NewNotification(id.NotificationID(uuid.New()),
		models.Draft{UserID: recipient, Type: models.TypeFriendRequest}, now)
	s.Require().NoError(err)
	entry, err := models.NewNotificationOutboxEntry(n)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(ctx, entry))

	relay := outbox.NewRelay(s.store, tx.NewPostgresRunner(s.postgres.DB), s.producer, outbox.WithTopic(s.topic))
	published, err := relay.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, published)

	backlog, err := s.store.CountUnpublished(ctx)
	s.Require().NoError(err)
	s.Zero(backlog)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	var record *kgo.Record
	for record == nil && pollCtx.Err() == nil {
		fetches := consumer.PollFetches(pollCtx)
		fetches.EachRecord(func(r *kgo.Record) {
			if record == nil {
				record = r
			}
		})
	}
	s.Require().NotNil(record, "expected a record on %s", s.topic)
	s.Equal(recipient.String(), string(record.Key))
	s.JSONEq(string(entry.Payload), string(record.Value))
}
