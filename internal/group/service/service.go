package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	authmodels "spendwise/internal/auth/models"
	groupmetrics "spendwise/internal/group/metrics"
	"spendwise/internal/group/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

var tracer = otel.Tracer("spendwise/internal/group")

type GroupStore interface {
	Create(ctx context.Context, g *models.Group) error
	FindByID(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	ListByIDs(ctx context.Context, groupIDs []id.GroupID) ([]*models.Group, error)
	Execute(ctx context.Context, groupID id.GroupID, validate func(*models.Group) error, mutate func(*models.Group) error) (*models.Group, error)
}

type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	FindByID(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error)
	FindByGroupAndUser(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.Membership, error)
	ListByGroup(ctx context.Context, groupID id.GroupID, statuses ...models.Status) ([]*models.Membership, error)
	ListByUser(ctx context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Membership, error)
	CountAccepted(ctx context.Context, groupIDs []id.GroupID) (map[id.GroupID]int, error)
	Execute(ctx context.Context, membershipID id.MembershipID, validate func(*models.Membership) error, mutate func(*models.Membership)) (*models.Membership, error)
}

type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*authmodels.PublicUser, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]authmodels.PublicUser, error)
}

// Notifier records a notification in the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, d notificationmodels.Draft) (*notificationmodels.Notification, error)
}

// Service manages groups and the membership state machine. Every write that touches
// more than one record, or emits a notification, runs in a single transaction.
type Service struct {
	groups      GroupStore
	memberships MembershipStore
	users       UserDirectory
	notifier    Notifier
	tx          tx.Runner
	logger      *slog.Logger
	audit       *audit.Logger
	metrics     *groupmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.audit = audit.NewLogger(logger)
	}
}

func WithMetrics(m *groupmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(groups GroupStore, memberships MembershipStore, users UserDirectory, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		groups:      groups,
		memberships: memberships,
		users:       users,
		notifier:    notifier,
		logger:      slog.Default(),
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

// requireMember loads an active group and the actor's accepted membership in it.
func (s *Service) requireMember(ctx context.Context, actor id.UserID, groupID id.GroupID) (*models.Group, *models.Membership, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, nil, wrapGroupErr(err, "load group")
	}
	m, err := s.memberships.FindByGroupAndUser(ctx, groupID, actor)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, wrapGroupErr(err, "load membership")
	}
	if m == nil || !m.IsAcceptedMember() {
		return nil, nil, errNotMember
	}
	return g, m, nil
}

func (s *Service) incrementTransition(status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(status))
	}
}

var (
	errGroupNotFound      = dErrors.New(dErrors.CodeNotFound, "group not found")
	errMembershipNotFound = dErrors.New(dErrors.CodeNotFound, "membership not found")
	errNotMember          = dErrors.New(dErrors.CodeForbidden, "you are not a member of this group")
)

// wrapGroupErr maps store facts and model invariant failures onto client codes.
// Illegal transitions surface as conflicts.
func wrapGroupErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errGroupNotFound
	}
	return wrapErr(err, action)
}

func wrapMembershipErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errMembershipNotFound
	}
	return wrapErr(err, action)
}

func wrapErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.New(dErrors.CodeConflict, "this user already has a membership in the group")
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
