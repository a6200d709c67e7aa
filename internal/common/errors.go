// Package common defines shared constants, helpers and sentinel errors used
// across the gatekeeper server. Callers should use errors.Is to match these
// values; services wrap them with context via fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")

	// Login and account status errors. ErrInvalidCredentials is returned both
	// for unknown accounts and for wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrAccountDisabled    = errors.New("account is disabled, verify your email to activate it")
	ErrEmailNotVerified   = errors.New("email not verified, check your email for the verification code")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountExpired     = errors.New("account or credentials expired")

	// Token errors.
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenOwnershipMismatch = errors.New("token does not belong to the account")

	// One-time code errors. At the AuthService boundary they collapse into
	// ErrVerificationFailed.
	ErrCodeNotFound       = errors.New("verification code not found")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrAttemptsExceeded   = errors.New("verification attempts exceeded")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrVerificationFailed = errors.New("verification failed, check your code and try again")
	ErrAlreadyVerified    = errors.New("email already verified")

	// Federation errors.
	ErrUnsupportedProvider = errors.New("unsupported identity provider")
)
