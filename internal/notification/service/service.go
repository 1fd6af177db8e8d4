package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	authmodels "spendwise/internal/auth/models"
	notificationmetrics "spendwise/internal/notification/metrics"
	"spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/requestcontext"
)

var tracer = otel.Tracer("spendwise/internal/notification")

const DefaultListLimit = 50

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error)
	Execute(ctx context.Context, notificationID id.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID) (int, error)
	CountUnread(ctx context.Context, userID id.UserID) (int, error)
}

type OutboxStore interface {
	Append(ctx context.Context, e *models.OutboxEntry) error
}

// UserDirectory resolves sender profiles.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]authmodels.PublicUser, error)
}

// Service writes notifications for other contexts and serves the recipient's inbox.
type Service struct {
	store   Store
	outbox  OutboxStore
	users   UserDirectory
	tx      tx.Runner
	logger  *slog.Logger
	metrics *notificationmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *notificationmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, outbox OutboxStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		store:  store,
		outbox: outbox,
		users:  users,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	return s
}

// Notify inserts the notification and its outbox entry. Called with a transactional
// context it joins that transaction, so both commit or roll back with the caller's write.
func (s *Service) Notify(ctx context.Context, d models.Draft) (_ *models.Notification, err error) {
	ctx, span := tracer.Start(ctx, "notification.Notify")
	defer func() { tracing.Finish(span, err) }()

	n, err := models.NewNotification(id.NotificationID(uuid.New()), d, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	entry, err := models.NewNotificationOutboxEntry(n)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build notification event")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, n); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
		}
		if err := s.outbox.Append(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue notification event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementNotificationsCreated(string(n.Type))
	}
	return n, nil
}

// List returns the user's notifications newest first with senders populated.
func (s *Service) List(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) (*models.ListResponse, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	notifications, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}

	senders := make([]id.UserID, 0, len(notifications))
	for _, n := range notifications {
		if n.FromUserID != nil {
			senders = append(senders, *n.FromUserID)
		}
	}
	users, err := s.users.FindByIDs(ctx, senders)
	if err != nil {
		return nil, err
	}

	resp := &models.ListResponse{
		Notifications: make([]*models.NotificationResponse, 0, len(notifications)),
		UnreadCount:   unread,
	}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, models.NewNotificationResponse(n, users))
	}
	return resp, nil
}

// MarkRead marks one of the caller's notifications read. Notifications addressed to
// someone else are reported as missing.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error) {
	n, err := s.store.Execute(ctx, notificationID,
		func(n *models.Notification) error {
			if !n.IsAddressedTo(userID) {
				return errNotificationNotFound
			}
			return nil
		},
		func(n *models.Notification) { n.MarkRead() },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotificationNotFound
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	updated, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return updated, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return count, nil
}

var errNotificationNotFound = dErrors.New(dErrors.CodeNotFound, "notification not found")
