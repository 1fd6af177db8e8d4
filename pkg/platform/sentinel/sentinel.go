package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrAlreadyUsed: a unique key (email, group+user pair) is taken
//   - ErrExpired: a verification or reset code has expired
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
