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
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/onetimecodes"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// maxCASRetries bounds re-reads after a lost compare-and-swap on a code.
const maxCASRetries = 8

// OtpSettings configures OtpService.
type OtpSettings struct {
	Validity    time.Duration
	MaxAttempts int
	Length      int
}

// OtpService issues and checks one-time codes. All state transitions of a
// code go through models.OneTimeCode.Attempt and are persisted with
// compare-and-swap, so concurrent verifications never lose an attempt.
type OtpService struct {
	repos    repomanager.RepositoryManager
	notifier notify.Notifier
	settings OtpSettings
	log      logging.Logger
	now      func() time.Time
	generate func(length int) (string, error)
}

func NewOtpService(m repomanager.RepositoryManager, n notify.Notifier, settings OtpSettings, log logging.Logger) *OtpService {
	return &OtpService{
		repos:    m,
		notifier: n,
		settings: settings,
		log:      log.With("module", "otp"),
		now:      time.Now,
		generate: common.GenerateNumericCode,
	}
}

// Issue supersedes every active code of (account, purpose), stores a fresh
// one and hands it to the notifier. Delivery is not awaited.
func (s *OtpService) Issue(ctx context.Context, account *models.Account, purpose models.Purpose) (string, error) {
	value, err := s.generate(s.settings.Length)
	if err != nil {
		return "", internal(err)
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Codes.SupersedeActive(ctx, account.ID, purpose); err != nil {
			return err
		}
		code := models.NewOneTimeCode(account.ID, value, purpose, s.now().UTC(), s.settings.Validity)
		_, err := r.Codes.Create(ctx, code)
		return err
	})
	if err != nil {
		return "", internal(err)
	}

	s.log.Info(ctx, "one-time code issued", "account_id", account.ID, "purpose", purpose)
	s.notifier.OneTimeCode(ctx, account.Email, value, purpose)
	return value, nil
}

// Verify consumes the code for email and purpose. It fails with
// ErrCodeNotFound, ErrCodeMismatch, ErrCodeExpired or ErrAttemptsExceeded.
func (s *OtpService) Verify(ctx context.Context, email, value string, purpose models.Purpose) error {
	return s.Redeem(ctx, email, value, purpose, nil)
}

// Activate verifies an EMAIL_VERIFY code and marks the account verified and
// enabled in the same transaction.
func (s *OtpService) Activate(ctx context.Context, email, value string) error {
	return s.Redeem(ctx, email, value, models.PurposeEmailVerify,
		func(ctx context.Context, r repomanager.Repositories, account *models.Account) error {
			account.EmailVerified = true
			account.Enabled = true
			account.UpdatedAt = s.now().UTC()
			return r.Accounts.Update(ctx, account)
		})
}

// Resend issues a new EMAIL_VERIFY code. Verified accounts get
// ErrAlreadyVerified; account flags are never changed here.
func (s *OtpService) Resend(ctx context.Context, email string) error {
	account, err := s.repos.Repos().Accounts.FindByEmail(ctx, models.NormalizeIdentifier(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internal(err)
	}
	if account.EmailVerified {
		return common.ErrAlreadyVerified
	}
	_, err = s.Issue(ctx, account, models.PurposeEmailVerify)
	return err
}

// Redeem consumes a code and, on success, runs apply in the same
// transaction. Failed attempts are committed even though Redeem returns an
// error, so the attempt ceiling holds.
func (s *OtpService) Redeem(ctx context.Context, email, value string, purpose models.Purpose,
	apply func(ctx context.Context, r repomanager.Repositories, account *models.Account) error) error {

	email = models.NormalizeIdentifier(email)

	var codeErr error
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		account, err := r.Accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				codeErr = common.ErrCodeNotFound
				return nil
			}
			return err
		}

		if err := s.consume(ctx, r.Codes, account.ID, value, purpose); err != nil {
			if isCodeFailure(err) {
				codeErr = err
				return nil
			}
			return err
		}

		if apply != nil {
			return apply(ctx, r, account)
		}
		return nil
	})
	if err != nil {
		return internal(err)
	}
	if codeErr != nil {
		s.log.Info(ctx, "one-time code rejected", "purpose", purpose, "reason", codeErr)
	}
	return codeErr
}

func (s *OtpService) consume(ctx context.Context, codes onetimecodes.Repository, accountID int64, value string, purpose models.Purpose) error {
	for range maxCASRetries {
		code, err := codes.FindLatest(ctx, accountID, purpose)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrCodeNotFound
			}
			return err
		}

		outcome, changed := code.Attempt(s.now(), value, s.settings.MaxAttempts)
		if changed {
			if err := codes.Update(ctx, code); err != nil {
				if errors.Is(err, common.ErrVersionConflict) {
					continue
				}
				return err
			}
		}

		switch outcome {
		case models.OutcomeAccepted:
			return nil
		case models.OutcomeMismatch:
			if s.supersededValue(ctx, codes, code, value) {
				return common.ErrCodeExpired
			}
			return common.ErrCodeMismatch
		case models.OutcomeExpired:
			return common.ErrCodeExpired
		case models.OutcomeAttemptsExceeded:
			return common.ErrAttemptsExceeded
		default:
			return common.ErrCodeNotFound
		}
	}
	return fmt.Errorf("one-time code %d: %w", accountID, common.ErrVersionConflict)
}

// supersededValue reports whether value belongs to an older code replaced
// by latest.
func (s *OtpService) supersededValue(ctx context.Context, codes onetimecodes.Repository, latest *models.OneTimeCode, value string) bool {
	old, err := codes.FindByValue(ctx, latest.AccountID, latest.Purpose, value)
	if err != nil {
		return false
	}
	return old.ID != latest.ID && old.State == models.CodeSuperseded
}
