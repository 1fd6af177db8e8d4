// Package authlockout refuses credential checks for an account and client address
// after repeated failures.
package authlockout

import (
	"context"
	"log/slog"
	"time"

	"spendwise/internal/ratelimit/models"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/requestcontext"
)

type Store interface {
	Get(ctx context.Context, identifier string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, identifier string, now time.Time, window time.Duration) (*models.AuthLockout, error)
	Update(ctx context.Context, record *models.AuthLockout) error
	Clear(ctx context.Context, identifier string) error
}

// Config holds the lockout thresholds.
type Config struct {
	AttemptsPerWindow int
	WindowDuration    time.Duration
	HardLockThreshold int
	HardLockDuration  time.Duration
}

func DefaultConfig() Config {
	return Config{
		AttemptsPerWindow: 5,
		WindowDuration:    15 * time.Minute,
		HardLockThreshold: 20,
		HardLockDuration:  time.Hour,
	}
}

type Service struct {
	store  Store
	logger *slog.Logger
	audit  *audit.Logger
	config Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.audit = audit.NewLogger(logger)
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = audit.NewLogger(s.logger)
	}
	return s
}

// Check reports whether identifier may attempt a credential check from ip.
func (s *Service) Check(ctx context.Context, identifier, ip string) (*models.LockoutResult, error) {
	key := models.NewAuthLockoutKey(identifier, ip).String()
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get auth lockout record")
	}
	if record == nil {
		record = &models.AuthLockout{}
	}
	now := requestcontext.Now(ctx)

	if record.IsLockedAt(now) {
		return &models.LockoutResult{RetryAfter: record.LockedUntil.Sub(now)}, nil
	}

	failures := record.FailuresInWindow(now, s.config.WindowDuration)
	if failures >= s.config.AttemptsPerWindow {
		return &models.LockoutResult{
			RetryAfter: record.WindowResetAt(s.config.WindowDuration).Sub(now),
		}, nil
	}
	return &models.LockoutResult{
		Allowed:   true,
		Remaining: s.config.AttemptsPerWindow - failures,
	}, nil
}

// RecordFailure counts a failed check and applies the hard lock once the daily
// threshold is reached.
func (s *Service) RecordFailure(ctx context.Context, identifier, ip string) (*models.AuthLockout, error) {
	key := models.NewAuthLockoutKey(identifier, ip).String()
	now := requestcontext.Now(ctx)
	current, err := s.store.RecordFailure(ctx, key, now, s.config.WindowDuration)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record auth failure")
	}

	if current.ShouldHardLock(s.config.HardLockThreshold, now) {
		current.ApplyHardLock(s.config.HardLockDuration, now)
		if err := s.store.Update(ctx, current); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update auth lockout record")
		}
		s.audit.Log(ctx, audit.EventAuthLockoutTriggered,
			"identifier", identifier,
			"client_ip", ip,
			"locked_until", current.LockedUntil,
		)
	}
	return current, nil
}

// Clear forgets the failures of identifier from ip after a successful check.
func (s *Service) Clear(ctx context.Context, identifier, ip string) error {
	key := models.NewAuthLockoutKey(identifier, ip).String()
	if err := s.store.Clear(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth failures")
	}
	return nil
}
