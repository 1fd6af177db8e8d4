package models

import (
	"strings"
	"time"
	"unicode/utf8"

	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/email"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = email.Normalize(r.Email)
	if r.Name == "" && r.Email != "" {
		r.Name = email.DeriveNameFromEmail(r.Email)
	}
}

func (r *SignupRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return dErrors.NewField("name", "name must be 64 characters or less")
	}
	return validatePassword("password", r.Password)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return dErrors.NewField("email", "email is required")
	}
	if r.Password == "" {
		return dErrors.NewField("password", "password is required")
	}
	return nil
}

// EmailRequest carries only an address: code requests and reset requests.
type EmailRequest struct {
	Email string `json:"email"`
}

func (r *EmailRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *EmailRequest) Validate() error {
	return validateEmail(r.Email)
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerifyEmailRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyEmailRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Code == "" {
		return dErrors.NewField("code", "code is required")
	}
	return nil
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ResetPasswordRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Code == "" {
		return dErrors.NewField("code", "code is required")
	}
	return validatePassword("new_password", r.NewPassword)
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
	Bio   *string `json:"bio"`
}

func (r *UpdateProfileRequest) Normalize() {
	for _, f := range []*string{r.Name, r.Image, r.Bio} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name == nil && r.Image == nil && r.Bio == nil {
		return dErrors.New(dErrors.CodeBadRequest, "at least one field is required")
	}
	if r.Name != nil {
		n := utf8.RuneCountInString(*r.Name)
		if n == 0 || n > MaxNameLength {
			return dErrors.NewField("name", "name must be between 1 and 64 characters")
		}
	}
	if r.Image != nil && len(*r.Image) > MaxImageLength {
		return dErrors.NewField("image", "image URL is too long")
	}
	if r.Bio != nil && utf8.RuneCountInString(*r.Bio) > MaxBioLength {
		return dErrors.NewField("bio", "bio must be 280 characters or less")
	}
	return nil
}

func validateEmail(address string) error {
	if address == "" {
		return dErrors.NewField("email", "email is required")
	}
	if !email.IsValid(address) {
		return dErrors.NewField("email", "email is invalid")
	}
	return nil
}

func validatePassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return dErrors.NewField(field, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return dErrors.NewField(field, "password must be 72 bytes or less")
	}
	return nil
}

// UserResponse is the caller's own profile.
type UserResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Image         string     `json:"image"`
	Bio           string     `json:"bio"`
	EmailVerified bool       `json:"email_verified"`
	VerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewUserResponse(u *User) *UserResponse {
	return &UserResponse{
		ID:            u.ID.String(),
		Name:          u.Name,
		Email:         u.Email,
		Image:         u.Image,
		Bio:           u.Bio,
		EmailVerified: u.IsVerified(),
		VerifiedAt:    u.EmailVerifiedAt,
		CreatedAt:     u.CreatedAt,
	}
}

// TokenResult is returned by Login.
type TokenResult struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *UserResponse `json:"user"`
}
