package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/federation"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// IdentityResolver maps sign-up requests and federated assertions onto
// accounts.
type IdentityResolver struct {
	repos     repomanager.RepositoryManager
	hasher    PasswordHasher
	providers *federation.Registry
	log       logging.Logger
	now       func() time.Time
}

func NewIdentityResolver(m repomanager.RepositoryManager, h PasswordHasher, providers *federation.Registry, log logging.Logger) *IdentityResolver {
	return &IdentityResolver{
		repos:     m,
		hasher:    h,
		providers: providers,
		log:       log.With("module", "identity"),
		now:       time.Now,
	}
}

// ResolveLocal normalizes the request, rejects taken usernames and emails,
// and returns a new, unsaved, disabled and unverified local account.
//
// The existence checks are an early exit only; the store's unique
// constraints decide concurrent sign-ups.
func (r *IdentityResolver) ResolveLocal(ctx context.Context, req SignUpRequest) (*models.Account, error) {
	username := models.NormalizeIdentifier(req.Username)
	email := models.NormalizeIdentifier(req.Email)

	accounts := r.repos.Repos().Accounts
	taken, err := accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, internal(err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username %q is already taken", common.ErrAlreadyExists, username)
	}
	taken, err = accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, internal(err)
	}
	if taken {
		return nil, fmt.Errorf("%w: email %q is already registered", common.ErrAlreadyExists, email)
	}

	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	now := r.now().UTC()
	return &models.Account{
		Username:              username,
		Email:                 email,
		PasswordHash:          hash,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		PhoneNumber:           req.PhoneNumber,
		Provider:              models.ProviderLocal,
		Role:                  models.RoleUser,
		Enabled:               false,
		EmailVerified:         false,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		AccountNonExpired:     true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// ResolveFederated returns the account for the provider's email, creating
// an enabled and verified one if none exists. Existing accounts are
// returned unchanged. created reports whether a new account was stored.
//
// A new account takes the email as its username when that is free and
// falls back to "<provider>_<subject>" names otherwise.
func (r *IdentityResolver) ResolveFederated(ctx context.Context, provider string, attrs map[string]any) (account *models.Account, created bool, err error) {
	profile, err := r.providers.Resolve(provider, attrs)
	if err != nil {
		return nil, false, err
	}

	accounts := r.repos.Repos().Accounts
	existing, err := accounts.FindByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, internal(err)
	}

	if !profile.EmailVerified {
		r.log.Warn(ctx, "provider did not assert a verified email, trusting it", "provider", profile.Provider, "subject", profile.Subject)
	}

	now := r.now().UTC()
	account = &models.Account{
		Email:                 profile.Email,
		FirstName:             profile.FirstName,
		LastName:              profile.LastName,
		ImageURL:              profile.Picture,
		Provider:              profile.Provider,
		ProviderID:            profile.Subject,
		Role:                  models.RoleUser,
		Enabled:               true,
		EmailVerified:         true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		AccountNonExpired:     true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	for _, username := range federatedUsernames(profile) {
		taken, err := accounts.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, false, internal(err)
		}
		if taken {
			continue
		}

		account.Username = username
		stored, err := accounts.Create(ctx, account)
		if err == nil {
			r.log.Info(ctx, "federated account created", "account_id", stored.ID, "provider", profile.Provider)
			return stored, true, nil
		}
		if !errors.Is(err, common.ErrAlreadyExists) {
			return nil, false, internal(err)
		}

		// Either a concurrent first login stored the email or someone took
		// the username in between.
		existing, findErr := accounts.FindByEmail(ctx, profile.Email)
		if findErr == nil {
			return existing, false, nil
		}
		if !errors.Is(findErr, common.ErrorNotFound) {
			return nil, false, internal(findErr)
		}
	}
	return nil, false, internal(fmt.Errorf("no free username for %s account %q", profile.Provider, profile.Email))
}

// maxFederatedUsernames bounds the usernames tried for one new federated
// account.
const maxFederatedUsernames = 5

func federatedUsernames(p *federation.Profile) []string {
	base := models.NormalizeIdentifier(string(p.Provider) + "_" + p.Subject)
	names := []string{p.Email, base}
	for i := 2; len(names) < maxFederatedUsernames; i++ {
		names = append(names, fmt.Sprintf("%s_%d", base, i))
	}
	return names
}
