package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	authmodels "spendwise/internal/auth/models"
	friendshipmetrics "spendwise/internal/friendship/metrics"
	"spendwise/internal/friendship/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

var tracer = otel.Tracer("spendwise/internal/friendship")

type Store interface {
	Create(ctx context.Context, f *models.Friendship) error
	FindByID(ctx context.Context, friendshipID id.FriendshipID) (*models.Friendship, error)
	FindBetween(ctx context.Context, a, b id.UserID) (*models.Friendship, error)
	ListByUser(ctx context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Friendship, error)
	Execute(ctx context.Context, friendshipID id.FriendshipID, validate func(*models.Friendship) error, mutate func(*models.Friendship)) (*models.Friendship, error)
}

type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*authmodels.PublicUser, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]authmodels.PublicUser, error)
}

// Notifier records a notification in the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, d notificationmodels.Draft) (*notificationmodels.Notification, error)
}

// Service runs the friendship lifecycle: request, accept, decline, cancel and remove.
type Service struct {
	store    Store
	users    UserDirectory
	notifier Notifier
	tx       tx.Runner
	logger   *slog.Logger
	audit    *audit.Logger
	metrics  *friendshipmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.audit = audit.NewLogger(logger)
	}
}

func WithMetrics(m *friendshipmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, users UserDirectory, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		users:    users,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = audit.NewLogger(s.logger)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	return s
}

func (s *Service) loadFriendship(ctx context.Context, friendshipID id.FriendshipID) (*models.Friendship, error) {
	f, err := s.store.FindByID(ctx, friendshipID)
	if err != nil {
		return nil, wrapFriendshipErr(err, "load friendship")
	}
	return f, nil
}

func (s *Service) incrementTransition(status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(status))
	}
}

var errFriendshipNotFound = dErrors.New(dErrors.CodeNotFound, "friendship not found")

// wrapFriendshipErr maps store facts and model invariant failures onto client codes.
// Illegal transitions surface as conflicts.
func wrapFriendshipErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errFriendshipNotFound
	}
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.New(dErrors.CodeConflict, "a friendship between these users already exists")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		if de.Code == dErrors.CodeInvariantViolation {
			return dErrors.New(dErrors.CodeConflict, de.Message)
		}
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}
