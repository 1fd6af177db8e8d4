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

var errInvalidVerificationCode = dErrors.New(dErrors.CodeBadRequest, "invalid or expired verification code")

func verifyThrottleKey(email string) string { return "verify:" + email }
func resetThrottleKey(email string) string  { return "reset:" + email }

// RequestVerificationCode mails a fresh code. Unknown addresses succeed silently;
// verified addresses conflict; repeat requests inside the cooldown are rate limited.
func (s *Service) RequestVerificationCode(ctx context.Context, req *models.EmailRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.RequestVerificationCode")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	allowed, err := s.throttle.Allow(ctx, verifyThrottleKey(req.Email), s.cfg.CodeCooldown)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check code cooldown")
	}
	if !allowed {
		return dErrors.New(dErrors.CodeRateLimited, "please wait before requesting another code")
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
			func(u *models.User) error {
				if err := u.CanIssueVerificationCode(); err != nil {
					return dErrors.New(dErrors.CodeConflict, "email is already verified")
				}
				return nil
			},
			func(u *models.User) { u.ApplyVerificationCode(codeHash, now.Add(s.cfg.CodeTTL), now) },
		)
		return err
	})
	if err != nil {
		return wrapUserErr(err, "issue verification code")
	}

	s.sendMail(ctx, mailer.VerificationCode(user.Email, user.Name, code, s.cfg.CodeTTL))
	s.audit.Log(ctx, audit.EventVerificationCodeIssued, "user_id", user.ID.String())
	return nil
}

// VerifyEmail marks the address verified when code matches the outstanding one.
func (s *Service) VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) (_ *models.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyEmail")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLockout(ctx, req.Email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, req.Email)
			return nil, errInvalidVerificationCode
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := requestcontext.Now(ctx)
	var verified *models.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.Execute(txCtx, user.ID,
			func(u *models.User) error {
				if err := u.CanVerifyEmail(now); err != nil {
					if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
						return dErrors.New(dErrors.CodeConflict, "email is already verified")
					}
					return errInvalidVerificationCode
				}
				match, err := s.hasher.Verify(req.Code, u.VerificationCodeHash)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
				}
				if !match {
					return errInvalidVerificationCode
				}
				return nil
			},
			func(u *models.User) { u.ApplyEmailVerified(now) },
		)
		if err != nil {
			return err
		}
		verified = u
		return nil
	})
	if err != nil {
		if errors.Is(err, errInvalidVerificationCode) {
			s.recordFailure(ctx, req.Email)
		}
		return nil, wrapUserErr(err, "verify email")
	}

	s.clearFailures(ctx, req.Email)
	s.audit.Log(ctx, audit.EventEmailVerified, "user_id", verified.ID.String())
	return verified, nil
}
