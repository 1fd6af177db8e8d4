package service

import (
	"context"
	"errors"

	"spendwise/internal/auth/mailer"
	"spendwise/internal/auth/models"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

var errInvalidResetCode = dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset code")

// RequestPasswordReset mails a reset code. It reports success for unknown and
// throttled addresses alike so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, req *models.EmailRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.RequestPasswordReset")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	allowed, err := s.throttle.Allow(ctx, resetThrottleKey(req.Email), s.cfg.CodeCooldown)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check code cooldown")
	}
	if !allowed {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	code, codeHash, err := s.issueCode()
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := s.users.Execute(txCtx, user.ID,
			func(*models.User) error { return nil },
			func(u *models.User) { u.ApplyResetCode(codeHash, now.Add(s.cfg.CodeTTL), now) },
		)
		return err
	})
	if err != nil {
		return wrapUserErr(err, "issue reset code")
	}

	s.sendMail(ctx, mailer.PasswordReset(user.Email, user.Name, code, s.cfg.CodeTTL))
	s.audit.Log(ctx, audit.EventPasswordResetRequested, "user_id", user.ID.String())
	return nil
}

// ResetPassword replaces the password when code matches the outstanding reset code.
func (s *Service) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.ResetPassword")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.checkLockout(ctx, req.Email); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, req.Email)
			return errInvalidResetCode
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return wrapUserErr(err, "hash password")
	}
	now := requestcontext.Now(ctx)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := s.users.Execute(txCtx, user.ID,
			func(u *models.User) error {
				if err := u.CanResetPassword(now); err != nil {
					return errInvalidResetCode
				}
				match, err := s.hasher.Verify(req.Code, u.ResetCodeHash)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
				}
				if !match {
					return errInvalidResetCode
				}
				return nil
			},
			func(u *models.User) { u.ApplyPasswordReset(newHash, now) },
		)
		return err
	})
	if err != nil {
		if errors.Is(err, errInvalidResetCode) {
			s.recordFailure(ctx, req.Email)
		}
		return wrapUserErr(err, "reset password")
	}

	s.clearFailures(ctx, req.Email)
	s.audit.Log(ctx, audit.EventPasswordReset, "user_id", user.ID.String())
	return nil
}
