package models

import (
	"time"
	"unicode/utf8"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

const (
	MaxNameLength  = 64
	MaxBioLength   = 280
	MaxImageLength = 2048
)

// User is the account aggregate.
//
// Invariants:
//   - Email is normalised (trimmed, lowercase) and unique case-insensitively
//   - Name is 1..64 characters
//   - Code hashes are only meaningful while their expiry is in the future
//   - EmailVerifiedAt is set once and never cleared
type User struct {
	ID                    id.UserID
	Name                  string
	Email                 string
	Image                 string
	Bio                   string
	PasswordHash          string
	EmailVerifiedAt       *time.Time
	VerificationCodeHash  string
	VerificationExpiresAt *time.Time
	ResetCodeHash         string
	ResetExpiresAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PublicUser is the profile other users may see.
type PublicUser struct {
	ID    id.UserID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Image string    `json:"image,omitempty"`
}

func NewUser(userID id.UserID, name, email, passwordHash string, now time.Time) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user password hash cannot be empty")
	}
	return &User{
		ID:           userID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "user name cannot be empty")
	}
	if n > MaxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "user name must be 64 characters or less")
	}
	return nil
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

// CanIssueVerificationCode fails once the email is verified.
func (u *User) CanIssueVerificationCode() error {
	if u.IsVerified() {
		return dErrors.New(dErrors.CodeInvariantViolation, "email is already verified")
	}
	return nil
}

func (u *User) ApplyVerificationCode(codeHash string, expiresAt, now time.Time) {
	u.VerificationCodeHash = codeHash
	u.VerificationExpiresAt = &expiresAt
	u.UpdatedAt = now
}

// CanVerifyEmail checks that a verification code is outstanding and unexpired.
// The code itself is compared by the caller since hashing lives outside the model.
func (u *User) CanVerifyEmail(now time.Time) error {
	if u.IsVerified() {
		return dErrors.New(dErrors.CodeInvariantViolation, "email is already verified")
	}
	if u.VerificationCodeHash == "" || u.VerificationExpiresAt == nil {
		return dErrors.New(dErrors.CodeBadRequest, "no verification code has been issued")
	}
	if !now.Before(*u.VerificationExpiresAt) {
		return dErrors.New(dErrors.CodeBadRequest, "verification code has expired")
	}
	return nil
}

func (u *User) ApplyEmailVerified(now time.Time) {
	u.EmailVerifiedAt = &now
	u.VerificationCodeHash = ""
	u.VerificationExpiresAt = nil
	u.UpdatedAt = now
}

func (u *User) ApplyResetCode(codeHash string, expiresAt, now time.Time) {
	u.ResetCodeHash = codeHash
	u.ResetExpiresAt = &expiresAt
	u.UpdatedAt = now
}

// CanResetPassword checks that a reset code is outstanding and unexpired.
func (u *User) CanResetPassword(now time.Time) error {
	if u.ResetCodeHash == "" || u.ResetExpiresAt == nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset code")
	}
	if !now.Before(*u.ResetExpiresAt) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset code")
	}
	return nil
}

// ApplyPasswordReset sets the new hash and burns the reset code. Completing a
// reset proves mailbox ownership, so an unverified email becomes verified.
func (u *User) ApplyPasswordReset(passwordHash string, now time.Time) {
	u.PasswordHash = passwordHash
	u.ResetCodeHash = ""
	u.ResetExpiresAt = nil
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &now
	}
	u.UpdatedAt = now
}

// ApplyProfile updates the editable profile fields. Nil leaves a field unchanged.
func (u *User) ApplyProfile(name, image, bio *string, now time.Time) error {
	if name != nil {
		if err := validateName(*name); err != nil {
			return err
		}
		u.Name = *name
	}
	if image != nil {
		u.Image = *image
	}
	if bio != nil {
		u.Bio = *bio
	}
	u.UpdatedAt = now
	return nil
}
