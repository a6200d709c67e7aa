package federation

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Google reads OpenID Connect user-info attributes as returned by Google.
type Google struct{}

func (Google) Name() string { return "google" }

func (Google) Extract(attrs map[string]any) (*Profile, error) {
	p := &Profile{
		Provider:      models.ProviderGoogle,
		Subject:       stringAttr(attrs, "sub"),
		Email:         models.NormalizeIdentifier(stringAttr(attrs, "email")),
		Name:          stringAttr(attrs, "name"),
		FirstName:     stringAttr(attrs, "given_name"),
		LastName:      stringAttr(attrs, "family_name"),
		Picture:       stringAttr(attrs, "picture"),
		EmailVerified: boolAttr(attrs, "email_verified"),
	}
	if p.Subject == "" {
		return nil, fmt.Errorf("%w: google profile without sub", common.ErrInvalidArgument)
	}
	if p.Email == "" {
		return nil, fmt.Errorf("%w: google profile without email", common.ErrInvalidArgument)
	}
	if p.FirstName == "" && p.LastName == "" && p.Name != "" {
		p.FirstName, p.LastName, _ = strings.Cut(p.Name, " ")
	}
	return p, nil
}
