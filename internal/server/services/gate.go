package services

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Gate answers per-request authorization questions from an access token.
// Accessors fail with ErrorUnauthorized; predicates return false instead of
// failing.
type Gate struct {
	codec TokenCodec
}

func NewGate(codec TokenCodec) *Gate {
	return &Gate{codec: codec}
}

// ExtractBearer returns the token from an "authorization" header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", common.ErrorUnauthorized)
	}
	return token, nil
}

// Claims verifies an access token. Refresh tokens are rejected.
func (g *Gate) Claims(token string) (*auth.Claims, error) {
	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	if claims.Kind() != auth.KindAccess {
		return nil, fmt.Errorf("%w: refresh token used for access", common.ErrorUnauthorized)
	}
	return claims, nil
}

func (g *Gate) CurrentAccountID(token string) (int64, error) {
	claims, err := g.Claims(token)
	if err != nil {
		return 0, err
	}
	return claims.AccountID(), nil
}

func (g *Gate) CurrentRole(token string) (models.Role, error) {
	claims, err := g.Claims(token)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

func (g *Gate) HasRole(token string, role models.Role) bool {
	current, err := g.CurrentRole(token)
	return err == nil && current == role
}

func (g *Gate) IsAdmin(token string) bool {
	return g.HasRole(token, models.RoleAdmin)
}

// CanAccessResource allows admins and the resource owner.
func (g *Gate) CanAccessResource(token string, ownerID int64) bool {
	claims, err := g.Claims(token)
	if err != nil {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.AccountID() == ownerID
}
