package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// AuthService orchestrates sign-up, login, refresh and the code-gated
// verification and password reset flows.
type AuthService struct {
	repos    repomanager.RepositoryManager
	resolver *IdentityResolver
	otp      *OtpService
	codec    TokenCodec
	gate     *Gate
	hasher   PasswordHasher
	notifier notify.Notifier
	log      logging.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	m repomanager.RepositoryManager,
	resolver *IdentityResolver,
	otp *OtpService,
	codec TokenCodec,
	hasher PasswordHasher,
	n notify.Notifier,
	log logging.Logger,
) *AuthService {
	return &AuthService{
		repos:    m,
		resolver: resolver,
		otp:      otp,
		codec:    codec,
		gate:     NewGate(codec),
		hasher:   hasher,
		notifier: n,
		log:      log.With("module", "auth"),
		now:      time.Now,
	}
}

// SignUp registers a disabled, unverified local account, then sends a
// welcome message and an EMAIL_VERIFY code. Notification and code issuance
// failures are logged and never fail the sign-up.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.resolver.ResolveLocal(ctx, req)
	if err != nil {
		return nil, err
	}

	account, err = s.repos.Repos().Accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username or email is already registered", common.ErrAlreadyExists)
		}
		return nil, internal(err)
	}
	s.log.Info(ctx, "account registered", "account_id", account.ID)

	s.notifier.Welcome(ctx, account.Email, account.DisplayName())
	if _, err := s.otp.Issue(ctx, account, models.PurposeEmailVerify); err != nil {
		s.log.Error(ctx, "failed to issue verification code", "account_id", account.ID, "error", err)
	}
	return account, nil
}

// Login authenticates by username or email. Unknown accounts and wrong
// passwords both yield ErrInvalidCredentials. Account status is checked
// before the password.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	if err := requireFields("username or email", identifier, "password", password); err != nil {
		return nil, err
	}

	account, err := s.repos.Repos().Accounts.FindByUsernameOrEmail(ctx, models.NormalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Matches(password, s.dummyPasswordHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, internal(err)
	}

	if err := checkStatus(account); err != nil {
		return nil, err
	}
	if !s.hasher.Matches(password, account.PasswordHash) {
		s.log.Info(ctx, "login rejected", "account_id", account.ID)
		return nil, common.ErrInvalidCredentials
	}

	return s.issuePair(account)
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if claims.Kind() != auth.KindRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", common.ErrInvalidToken)
	}

	account, err := s.repos.Repos().Accounts.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", common.ErrInvalidToken)
		}
		return nil, internal(err)
	}
	if account.ID != claims.AccountID() {
		return nil, common.ErrTokenOwnershipMismatch
	}
	if err := checkStatus(account); err != nil {
		return nil, err
	}

	return s.issuePair(account)
}

// VerifyEmail activates the account owning email with an EMAIL_VERIFY code.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if err := requireFields("email", email, "code", code); err != nil {
		return err
	}
	if err := s.otp.Activate(ctx, email, code); err != nil {
		return verificationFailed(err)
	}
	s.log.Info(ctx, "email verified")
	return nil
}

// ResendVerification issues a fresh EMAIL_VERIFY code.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if err := requireFields("email", email); err != nil {
		return err
	}
	if err := s.otp.Resend(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrAlreadyVerified) {
			return fmt.Errorf("%w: %w", common.ErrVerificationFailed, err)
		}
		return err
	}
	return nil
}

// RequestPasswordReset sends a PASSWORD_RESET code to local accounts.
// Unknown emails and federated accounts succeed without doing anything.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := requireFields("email", email); err != nil {
		return err
	}

	account, err := s.repos.Repos().Accounts.FindByEmail(ctx, models.NormalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return internal(err)
	}
	if !account.IsLocal() {
		s.log.Info(ctx, "password reset ignored for federated account", "account_id", account.ID)
		return nil
	}

	_, err = s.otp.Issue(ctx, account, models.PurposePasswordReset)
	return err
}

// ResetPassword replaces the password after checking a PASSWORD_RESET code.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := requireFields("email", email, "code", code, "new password", newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	err = s.otp.Redeem(ctx, email, code, models.PurposePasswordReset,
		func(ctx context.Context, r repomanager.Repositories, account *models.Account) error {
			account.PasswordHash = hash
			account.CredentialsNonExpired = true
			account.UpdatedAt = s.now().UTC()
			return r.Accounts.Update(ctx, account)
		})
	if err != nil {
		return verificationFailed(err)
	}
	s.log.Info(ctx, "password reset")
	return nil
}

// LoginFederated resolves (or creates) the account for a provider assertion
// and mints a pair, subject to the same status checks as Login.
func (s *AuthService) LoginFederated(ctx context.Context, provider string, attrs map[string]any) (*TokenPair, error) {
	account, created, err := s.resolver.ResolveFederated(ctx, provider, attrs)
	if err != nil {
		return nil, err
	}
	if created {
		s.notifier.Welcome(ctx, account.Email, account.DisplayName())
	}
	if err := checkStatus(account); err != nil {
		return nil, err
	}
	return s.issuePair(account)
}

// ChangePassword replaces the password of the token's account after
// checking the current one. Federated accounts have no password to change.
func (s *AuthService) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	id, err := s.gate.CurrentAccountID(token)
	if err != nil {
		return err
	}
	if err := requireFields("current password", currentPassword, "new password", newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must differ from the current one", common.ErrInvalidArgument)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		account, err := r.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !account.IsLocal() || account.PasswordHash == "" {
			return fmt.Errorf("%w: %s accounts have no password", common.ErrInvalidArgument, account.Provider)
		}
		if err := checkStatus(account); err != nil {
			return err
		}
		if !s.hasher.Matches(currentPassword, account.PasswordHash) {
			return common.ErrInvalidCredentials
		}
		account.PasswordHash = hash
		account.CredentialsNonExpired = true
		account.UpdatedAt = s.now().UTC()
		return r.Accounts.Update(ctx, account)
	})
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
	case errors.Is(err, common.ErrInvalidArgument), errors.Is(err, common.ErrInvalidCredentials), isStatusError(err):
		return err
	default:
		return internal(err)
	}

	s.log.Info(ctx, "password changed", "account_id", id)
	return nil
}

// DeleteOwnAccount removes the token's account. Tokens already issued stay
// valid until they expire but no longer resolve to an account.
func (s *AuthService) DeleteOwnAccount(ctx context.Context, token string) error {
	id, err := s.gate.CurrentAccountID(token)
	if err != nil {
		return err
	}
	if err := s.repos.Repos().Accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: account no longer exists", common.ErrorUnauthorized)
		}
		return internal(err)
	}
	s.log.Info(ctx, "account deleted by owner", "account_id", id)
	return nil
}

// dummyPasswordHash is compared against on unknown logins so that they
// cost as much as a wrong password.
func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("gatekeeper-unknown-account")
		if err != nil {
			s.log.Warn(context.Background(), "dummy password hash failed", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) issuePair(account *models.Account) (*TokenPair, error) {
	access, err := s.codec.Mint(account, auth.KindAccess)
	if err != nil {
		return nil, internal(err)
	}
	refresh, err := s.codec.Mint(account, auth.KindRefresh)
	if err != nil {
		return nil, internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, Account: account}, nil
}

// checkStatus rejects accounts that may not receive tokens. An unverified
// account reports ErrEmailNotVerified even though it is also disabled.
func checkStatus(a *models.Account) error {
	switch {
	case !a.EmailVerified:
		return common.ErrEmailNotVerified
	case !a.Enabled:
		return common.ErrAccountDisabled
	case !a.AccountNonLocked:
		return common.ErrAccountLocked
	case !a.AccountNonExpired, !a.CredentialsNonExpired:
		return common.ErrAccountExpired
	}
	return nil
}

func isStatusError(err error) bool {
	return errors.Is(err, common.ErrEmailNotVerified) ||
		errors.Is(err, common.ErrAccountDisabled) ||
		errors.Is(err, common.ErrAccountLocked) ||
		errors.Is(err, common.ErrAccountExpired)
}

// verificationFailed collapses code failures into ErrVerificationFailed and
// keeps the specific cause in the chain.
func verificationFailed(err error) error {
	if isCodeFailure(err) {
		return fmt.Errorf("%w: %w", common.ErrVerificationFailed, err)
	}
	return err
}
