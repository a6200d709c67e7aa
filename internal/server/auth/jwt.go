// Package auth mints and verifies the signed session tokens handed to
// clients. Tokens are HS256 JWTs and carry everything needed to authorize a
// request; nothing about issued tokens is stored server-side.
package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind int

const (
	KindAccess TokenKind = iota
	KindRefresh
)

func (k TokenKind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

const refreshTypeClaim = "refresh"

// AccountID is the userId claim. It decodes from JSON numbers (including
// integral floats such as 7.0) and from quoted decimal strings, since
// issuers differ in how they encode numeric claims.
type AccountID int64

func (id *AccountID) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(b, `"`))
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*id = AccountID(n)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("userId: not an integer: %s", b)
	}
	*id = AccountID(f)
	return nil
}

// Claims is the token payload. Subject holds the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID AccountID   `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	// Type is "refresh" on refresh tokens and absent on access tokens.
	Type string `json:"type,omitempty"`
}

// Kind reports whether the claims belong to an access or a refresh token.
func (c *Claims) Kind() TokenKind {
	if c.Type == refreshTypeClaim {
		return KindRefresh
	}
	return KindAccess
}

// AccountID returns the userId claim as int64.
func (c *Claims) AccountID() int64 {
	return int64(c.UserID)
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec signs and verifies tokens with a single symmetric key. It is
// immutable after construction and safe for concurrent use.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewCodec decodes the base64 secret once and returns a ready Codec.
func NewCodec(secretB64 string, accessTTL, refreshTTL time.Duration, opts ...Option) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("empty secret key")
	}

	c := &Codec{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	return c, nil
}

// Mint signs a token of the given kind for account.
func (c *Codec) Mint(account *models.Account, kind TokenKind) (string, error) {
	now := c.now()
	ttl := c.accessTTL
	claims := Claims{
		UserID: AccountID(account.ID),
		Email:  account.Email,
		Role:   account.Role,
	}
	if kind == KindRefresh {
		ttl = c.refreshTTL
		claims.Type = refreshTypeClaim
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   account.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, structure and expiry and returns the claims.
// Tokens are accepted only while now < exp. Every failure wraps
// common.ErrInvalidToken.
func (c *Codec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// AccessTTL is the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }
