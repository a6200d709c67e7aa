// Package federation maps identity-provider attribute payloads onto a
// provider-neutral Profile. The redirect and token exchange with the
// provider happen elsewhere; this package only interprets the resulting
// user-info attributes.
package federation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Profile is the canonical view of a federated identity.
type Profile struct {
	Provider      models.Provider
	Subject       string
	Email         string
	Name          string
	FirstName     string
	LastName      string
	Picture       string
	// EmailVerified is the provider's own claim. Accounts are created
	// verified regardless since the provider is trusted; an unverified
	// claim is only logged.
	EmailVerified bool
}

// Provider extracts a Profile from one provider's attribute shape.
type Provider interface {
	// Name is the lower-case provider name used for lookup.
	Name() string
	Extract(attrs map[string]any) (*Profile, error)
}

// Registry dispatches on provider name, case-insensitively.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// DefaultRegistry holds every provider supported out of the box.
func DefaultRegistry() *Registry {
	return NewRegistry(Google{})
}

// Resolve extracts a profile using the named provider. Unknown names yield
// common.ErrUnsupportedProvider.
func (r *Registry) Resolve(provider string, attrs map[string]any) (*Profile, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedProvider, provider)
	}
	return p.Extract(attrs)
}

func stringAttr(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func boolAttr(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
