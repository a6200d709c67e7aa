// Package services holds the identity core: account resolution, one-time
// code handling, sign-up/login/refresh orchestration, the authorization
// gate and admin operations.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// TokenCodec mints and verifies session tokens.
type TokenCodec interface {
	Mint(account *models.Account, kind auth.TokenKind) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// PasswordHasher hashes and checks local passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, digest string) bool
}

// TokenPair bundles a short-lived access token and a longer-lived refresh
// token together with the account they were minted for.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Account      *models.Account
}

// SignUpRequest carries local registration input.
type SignUpRequest struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Validate reports the first missing required field.
func (r SignUpRequest) Validate() error {
	return requireFields(
		"username", r.Username,
		"email", r.Email,
		"password", r.Password,
		"first name", r.FirstName,
		"last name", r.LastName,
	)
}

// AdminSeed describes the administrator created by BootstrapAdmin.
type AdminSeed struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// requireFields takes name/value pairs and fails on the first blank value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", common.ErrInvalidArgument, pairs[i])
		}
	}
	return nil
}

func internal(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}

// isCodeFailure reports whether err is a one-time code outcome rather than
// an infrastructure failure.
func isCodeFailure(err error) bool {
	return errors.Is(err, common.ErrCodeNotFound) ||
		errors.Is(err, common.ErrCodeMismatch) ||
		errors.Is(err, common.ErrCodeExpired) ||
		errors.Is(err, common.ErrAttemptsExceeded)
}
