package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// AdminService performs account management on behalf of an administrator
// identified by an access token.
type AdminService struct {
	repos    repomanager.RepositoryManager
	gate     *Gate
	hasher   PasswordHasher
	notifier notify.Notifier
	log      logging.Logger
	now      func() time.Time
}

func NewAdminService(m repomanager.RepositoryManager, gate *Gate, hasher PasswordHasher, n notify.Notifier, log logging.Logger) *AdminService {
	return &AdminService{
		repos:    m,
		gate:     gate,
		hasher:   hasher,
		notifier: n,
		log:      log.With("module", "admin"),
		now:      time.Now,
	}
}

// GetAccount returns the account to its owner or to an admin.
func (s *AdminService) GetAccount(ctx context.Context, token string, id int64) (*models.Account, error) {
	if _, err := s.gate.Claims(token); err != nil {
		return nil, err
	}
	if !s.gate.CanAccessResource(token, id) {
		return nil, common.ErrForbidden
	}
	account, err := s.repos.Repos().Accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internal(err)
	}
	return account, nil
}

func (s *AdminService) LockAccount(ctx context.Context, token string, id int64) (*models.Account, error) {
	account, err := s.modify(ctx, token, id, func(a *models.Account) error {
		if !a.AccountNonLocked {
			return fmt.Errorf("%w: account is already locked", common.ErrInvalidArgument)
		}
		a.AccountNonLocked = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.AccountLocked(ctx, account.Email, account.DisplayName())
	return account, nil
}

func (s *AdminService) UnlockAccount(ctx context.Context, token string, id int64) (*models.Account, error) {
	account, err := s.modify(ctx, token, id, func(a *models.Account) error {
		if a.AccountNonLocked {
			return fmt.Errorf("%w: account is not locked", common.ErrInvalidArgument)
		}
		a.AccountNonLocked = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.AccountUnlocked(ctx, account.Email, account.DisplayName())
	return account, nil
}

// ChangeRole assigns role. Tokens already issued keep the old role until
// they expire.
func (s *AdminService) ChangeRole(ctx context.Context, token string, id int64, role models.Role) (*models.Account, error) {
	role, err := models.ParseRole(string(role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	var previous models.Role
	account, err := s.modify(ctx, token, id, func(a *models.Account) error {
		if a.Role == role {
			return fmt.Errorf("%w: account already has role %s", common.ErrInvalidArgument, role)
		}
		previous = a.Role
		a.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.RoleChanged(ctx, account.Email, account.DisplayName(), previous, role)
	return account, nil
}

func (s *AdminService) DeleteAccount(ctx context.Context, token string, id int64) error {
	actor, err := s.requireAdmin(token, id)
	if err != nil {
		return err
	}
	if err := s.repos.Repos().Accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internal(err)
	}
	s.log.Info(ctx, "account deleted", "account_id", id, "actor_id", actor)
	return nil
}

// BootstrapAdmin creates the first administrator. It does nothing and
// returns created=false when an ADMIN account already exists.
func (s *AdminService) BootstrapAdmin(ctx context.Context, seed AdminSeed) (account *models.Account, created bool, err error) {
	if err := requireFields(
		"admin username", seed.Username,
		"admin email", seed.Email,
		"admin password", seed.Password,
	); err != nil {
		return nil, false, err
	}

	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		exists, err := r.Accounts.ExistsByRole(ctx, models.RoleAdmin)
		if err != nil || exists {
			return err
		}

		now := s.now().UTC()
		account, err = r.Accounts.Create(ctx, &models.Account{
			Username:              models.NormalizeIdentifier(seed.Username),
			Email:                 models.NormalizeIdentifier(seed.Email),
			PasswordHash:          hash,
			FirstName:             seed.FirstName,
			LastName:              seed.LastName,
			Provider:              models.ProviderLocal,
			Role:                  models.RoleAdmin,
			Enabled:               true,
			EmailVerified:         true,
			AccountNonLocked:      true,
			CredentialsNonExpired: true,
			AccountNonExpired:     true,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("%w: admin username or email is taken", common.ErrAlreadyExists)
		}
		return nil, false, internal(err)
	}
	if account == nil {
		s.log.Info(ctx, "admin bootstrap skipped, an administrator already exists")
		return nil, false, nil
	}
	s.log.Info(ctx, "administrator created", "account_id", account.ID)
	return account, true, nil
}

// modify loads the target account, applies change and stores it, all in
// one transaction. Only admins may call it and never on themselves.
func (s *AdminService) modify(ctx context.Context, token string, id int64, change func(*models.Account) error) (*models.Account, error) {
	actor, err := s.requireAdmin(token, id)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		a, err := r.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := change(a); err != nil {
			return err
		}
		a.UpdatedAt = s.now().UTC()
		if err := r.Accounts.Update(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidArgument):
		return nil, err
	default:
		return nil, internal(err)
	}

	s.log.Info(ctx, "account updated by admin", "account_id", id, "actor_id", actor)
	return account, nil
}

// requireAdmin returns the acting admin's id. Targeting oneself is
// rejected.
func (s *AdminService) requireAdmin(token string, target int64) (int64, error) {
	claims, err := s.gate.Claims(token)
	if err != nil {
		return 0, err
	}
	if claims.Role != models.RoleAdmin {
		return 0, common.ErrForbidden
	}
	if claims.AccountID() == target {
		return 0, fmt.Errorf("%w: administrators cannot modify their own account", common.ErrInvalidArgument)
	}
	return claims.AccountID(), nil
}
