package service

import (
	"context"
	"errors"
	"time"

	"github.com/mssola/useragent"

	"spendwise/internal/auth/models"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// dummyHash keeps unknown-email logins as slow as wrong-password logins.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6Hc2Ow/3Ny6yJ0uQ9k9Yx1G"

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (_ *models.TokenResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { tracing.Finish(span, err) }()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveLogin(start)
		}
	}()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLockout(ctx, req.Email); err != nil {
		s.loginFailed(ctx, "locked_out")
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		_, _ = s.hasher.Verify(req.Password, dummyHash)
		s.recordFailure(ctx, req.Email)
		s.loginFailed(ctx, "unknown_email")
		return nil, errInvalidCredentials
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		s.recordFailure(ctx, req.Email)
		s.loginFailed(ctx, "bad_password", "user_id", user.ID.String())
		return nil, errInvalidCredentials
	}

	now := requestcontext.Now(ctx)
	issued, err := s.tokens.GenerateAccessToken(user.ID, now, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	s.clearFailures(ctx, req.Email)
	s.audit.Log(ctx, audit.EventUserLoggedIn, append([]any{"user_id", user.ID.String()}, clientAttrs(ctx)...)...)
	s.incrementLogin("success")

	return &models.TokenResult{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(issued.ExpiresAt.Sub(now).Seconds()),
		ExpiresAt:   issued.ExpiresAt,
		User:        models.NewUserResponse(user),
	}, nil
}

// Logout revokes the token that authenticated the request for its remaining lifetime.
func (s *Service) Logout(ctx context.Context) error {
	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "no active token")
	}
	ttl := requestcontext.TokenExpiry(ctx).Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.audit.Log(ctx, audit.EventUserLoggedOut, "user_id", requestcontext.UserID(ctx).String(), "jti", jti)
	if s.metrics != nil {
		s.metrics.IncrementTokensRevoked()
	}
	return nil
}

func (s *Service) loginFailed(ctx context.Context, reason string, attrs ...any) {
	attrs = append(attrs, "reason", reason)
	s.audit.Log(ctx, audit.EventLoginFailed, append(attrs, clientAttrs(ctx)...)...)
	s.incrementLogin("failure")
}

// clientAttrs summarises the caller's IP and user agent for audit lines.
func clientAttrs(ctx context.Context) []any {
	attrs := []any{"client_ip", requestcontext.ClientIP(ctx)}
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return attrs
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	return append(attrs,
		"browser", browser,
		"browser_version", version,
		"os", ua.OS(),
		"mobile", ua.Mobile(),
		"bot", ua.Bot(),
	)
}
