package grpc

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
)

type SignUpRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type LoginRequest struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type FederatedLoginRequest struct {
	Provider   string         `json:"provider"`
	Attributes map[string]any `json:"attributes"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AccountRequest struct {
	AccountID int64 `json:"accountId"`
}

type ChangeRoleRequest struct {
	AccountID int64  `json:"accountId"`
	Role      string `json:"role"`
}

type Empty struct{}

// Account is the public view of models.Account. Secrets never leave the
// server.
type Account struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Provider      string    `json:"provider"`
	Role          string    `json:"role"`
	Enabled       bool      `json:"enabled"`
	EmailVerified bool      `json:"emailVerified"`
	Locked        bool      `json:"locked"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AccountResponse struct {
	Account *Account `json:"account"`
}

type TokenResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	Account      *Account `json:"account,omitempty"`
}

func toAccount(a *models.Account) *Account {
	if a == nil {
		return nil
	}
	return &Account{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		PhoneNumber:   a.PhoneNumber,
		ImageURL:      a.ImageURL,
		Provider:      string(a.Provider),
		Role:          string(a.Role),
		Enabled:       a.Enabled,
		EmailVerified: a.EmailVerified,
		Locked:        !a.AccountNonLocked,
		CreatedAt:     a.CreatedAt,
	}
}

func (s *Server) toTokenResponse(p *services.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
		Account:      toAccount(p.Account),
	}
}
