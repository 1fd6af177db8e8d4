package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/auth/mailer"
	authmetrics "spendwise/internal/auth/metrics"
	"spendwise/internal/auth/models"
	"spendwise/internal/auth/secrets"
	"spendwise/internal/auth/store/throttle"
	jwttoken "spendwise/internal/jwt_token"
	ratelimitmodels "spendwise/internal/ratelimit/models"
	"spendwise/internal/ratelimit/service/authlockout"
	lockoutstore "spendwise/internal/ratelimit/store/authlockout"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
	"spendwise/pkg/requestcontext"
)

var tracer = otel.Tracer("spendwise/internal/auth")

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
}

// TokenRevocationList remembers revoked access token IDs until they expire.
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// CodeThrottle grants at most one claim per key per window.
type CodeThrottle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Lockout refuses credential checks after repeated failures from one client.
type Lockout interface {
	Check(ctx context.Context, identifier, ip string) (*ratelimitmodels.LockoutResult, error)
	RecordFailure(ctx context.Context, identifier, ip string) (*ratelimitmodels.AuthLockout, error)
	Clear(ctx context.Context, identifier, ip string) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, now time.Time, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
}

// Config holds the auth lifetimes.
type Config struct {
	TokenTTL     time.Duration
	CodeTTL      time.Duration
	CodeCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		TokenTTL:     24 * time.Hour,
		CodeTTL:      15 * time.Minute,
		CodeCooldown: 60 * time.Second,
	}
}

// Service implements signup, login, email verification, password reset and profile management.
type Service struct {
	users    UserStore
	trl      TokenRevocationList
	tokens   TokenIssuer
	throttle CodeThrottle
	lockout  Lockout
	mailer   Mailer
	hasher   *secrets.Hasher
	tx       tx.Runner
	cfg      Config
	logger   *slog.Logger
	audit    *audit.Logger
	metrics  *authmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.audit = audit.NewLogger(logger)
	}
}

func WithMetrics(m *authmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithThrottle(t CodeThrottle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

func WithLockout(l Lockout) Option {
	return func(s *Service) {
		s.lockout = l
	}
}

func WithHasher(h *secrets.Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(users UserStore, trl TokenRevocationList, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		trl:    trl,
		tokens: tokens,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
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
	if s.throttle == nil {
		s.throttle = throttle.NewInMemory()
	}
	if s.lockout == nil {
		s.lockout = authlockout.New(lockoutstore.NewInMemory(), authlockout.WithLogger(s.logger))
	}
	if s.mailer == nil {
		s.mailer = mailer.NewLogMailer(s.logger)
	}
	if s.hasher == nil {
		s.hasher = secrets.NewHasher(bcrypt.DefaultCost)
	}
	return s
}

// IsTokenRevoked satisfies the auth middleware revocation port.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.trl.IsRevoked(ctx, jti)
}

// checkLockout rejects the attempt when email has failed too often from the caller's address.
func (s *Service) checkLockout(ctx context.Context, email string) error {
	res, err := s.lockout.Check(ctx, email, requestcontext.ClientIP(ctx))
	if err != nil {
		return err
	}
	if !res.Allowed {
		return dErrors.New(dErrors.CodeRateLimited,
			fmt.Sprintf("too many failed attempts, retry in %s", res.RetryAfter.Round(time.Second)))
	}
	return nil
}

// recordFailure counts a failed credential check. Errors are logged so they never
// mask the original failure.
func (s *Service) recordFailure(ctx context.Context, email string) {
	if _, err := s.lockout.RecordFailure(ctx, email, requestcontext.ClientIP(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to record auth failure", "error", err)
	}
}

func (s *Service) clearFailures(ctx context.Context, email string) {
	if err := s.lockout.Clear(ctx, email, requestcontext.ClientIP(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear auth failures", "error", err)
	}
}

// issueCode generates a code and returns it with its bcrypt hash.
func (s *Service) issueCode() (string, string, error) {
	code, err := secrets.GenerateCode()
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}
	return code, hash, nil
}

// sendMail delivers msg after the write committed. Failures are logged, not
// returned: the user can always ask for a fresh code.
func (s *Service) sendMail(ctx context.Context, msg mailer.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send email", "subject", msg.Subject, "error", err)
	}
}

func wrapUserErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
}

func (s *Service) incrementUsersCreated() {
	if s.metrics != nil {
		s.metrics.IncrementUsersCreated()
	}
}

func (s *Service) incrementLogin(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(result)
	}
}
