package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"spendwise/internal/auth/mailer"
	"spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// Signup registers an account and mails a verification code.
func (s *Service) Signup(ctx context.Context, req *models.SignupRequest) (_ *models.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.Signup")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, wrapUserErr(err, "hash password")
	}
	code, codeHash, err := s.issueCode()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var user *models.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := models.NewUser(id.UserID(uuid.New()), req.Name, req.Email, passwordHash, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		u.ApplyVerificationCode(codeHash, now.Add(s.cfg.CodeTTL), now)

		if err := s.users.Create(txCtx, u); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "email is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The signup mail counts against the resend cooldown.
	if _, err := s.throttle.Allow(ctx, verifyThrottleKey(user.Email), s.cfg.CodeCooldown); err != nil {
		s.logger.WarnContext(ctx, "failed to record code cooldown", "error", err)
	}
	s.sendMail(ctx, mailer.VerificationCode(user.Email, user.Name, code, s.cfg.CodeTTL))
	s.audit.Log(ctx, audit.EventUserSignedUp, "user_id", user.ID.String())
	s.incrementUsersCreated()
	return user, nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err, "load user")
	}
	return u, nil
}

// UpdateProfile edits name, image and bio.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, req *models.UpdateProfileRequest) (_ *models.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.UpdateProfile")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *models.User
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var applyErr error
		u, err := s.users.Execute(txCtx, userID,
			func(*models.User) error { return nil },
			func(u *models.User) { applyErr = u.ApplyProfile(req.Name, req.Image, req.Bio, now) },
		)
		if err != nil {
			return wrapUserErr(err, "update profile")
		}
		if applyErr != nil {
			return dErrors.New(dErrors.CodeValidation, applyErr.Error())
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.EventProfileUpdated, "user_id", userID.String())
	return updated, nil
}
