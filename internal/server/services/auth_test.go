package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_SignUpActivateLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acc, err := env.auth.SignUp(ctx, aliceRequest())
	require.NoError(t, err)
	assert.False(t, acc.Enabled)
	assert.False(t, acc.EmailVerified)
	assert.Equal(t, models.RoleUser, acc.Role)
	assert.Equal(t, models.ProviderLocal, acc.Provider)
	assert.Equal(t, []string{"a@x.com"}, env.notifier.welcomes)

	_, err = env.auth.Login(ctx, "alice", "p1")
	require.ErrorIs(t, err, common.ErrEmailNotVerified)

	code := env.notifier.lastCode(t, "a@x.com", models.PurposeEmailVerify)
	require.NoError(t, env.auth.VerifyEmail(ctx, "a@x.com", code))

	pair, err := env.auth.Login(ctx, "alice", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, acc.ID, pair.Account.ID)

	id, err := env.gate.CurrentAccountID(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)
}

func TestSignUp_RequiredFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *SignUpRequest)
		field  string
	}{
		{"username", func(r *SignUpRequest) { r.Username = " " }, "username"},
		{"email", func(r *SignUpRequest) { r.Email = "" }, "email"},
		{"password", func(r *SignUpRequest) { r.Password = "" }, "password"},
		{"first name", func(r *SignUpRequest) { r.FirstName = "" }, "first name"},
		{"last name", func(r *SignUpRequest) { r.LastName = "" }, "last name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := aliceRequest()
			tt.mutate(&req)
			_, err := env.auth.SignUp(context.Background(), req)
			require.ErrorIs(t, err, common.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSignUp_NormalizesAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := aliceRequest()
	req.Username, req.Email = "  Alice ", "A@X.COM"
	acc, err := env.auth.SignUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.Equal(t, "a@x.com", acc.Email)
	assert.NotEqual(t, "p1", acc.PasswordHash)

	dupName := aliceRequest()
	dupName.Email = "other@x.com"
	_, err = env.auth.SignUp(ctx, dupName)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	dupEmail := aliceRequest()
	dupEmail.Username = "ALICE2"
	dupEmail.Email = " a@x.com"
	_, err = env.auth.SignUp(ctx, dupEmail)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestSignUp_ConcurrentSameUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := aliceRequest()
			req.Email = []string{"one@x.com", "two@x.com"}[i]
			_, errs[i] = env.auth.SignUp(ctx, req)
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, common.ErrAlreadyExists):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.activeUser(t, aliceRequest())

	_, err := env.auth.Login(ctx, "nobody", "p1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, errWrong := env.auth.Login(ctx, "alice", "nope")
	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.Equal(t, err.Error(), errWrong.Error(), "unknown account and wrong password must look the same")

	_, err = env.auth.Login(ctx, "", "p1")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	pair, err := env.auth.Login(ctx, " A@X.COM ", "p1")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, pair.Account.ID)
}

func TestLogin_StatusCheckedBeforePassword(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *models.Account)
		want   error
	}{
		{"disabled", func(a *models.Account) { a.Enabled = false }, common.ErrAccountDisabled},
		{"unverified", func(a *models.Account) { a.EmailVerified = false }, common.ErrEmailNotVerified},
		{"locked", func(a *models.Account) { a.AccountNonLocked = false }, common.ErrAccountLocked},
		{"account expired", func(a *models.Account) { a.AccountNonExpired = false }, common.ErrAccountExpired},
		{"credentials expired", func(a *models.Account) { a.CredentialsNonExpired = false }, common.ErrAccountExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			acc := env.activeUser(t, aliceRequest())
			tt.mutate(acc)
			require.NoError(t, env.repos.Repos().Accounts.Update(ctx, acc))

			_, err := env.auth.Login(ctx, "alice", "wrong-password")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.activeUser(t, aliceRequest())

	pair, err := env.auth.Login(ctx, "alice", "p1")
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	next, err := env.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	claims, err := env.codec.Verify(next.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, auth.KindRefresh, claims.Kind())
	assert.Equal(t, acc.ID, claims.AccountID())

	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err, "old refresh tokens are not revoked")
}

func TestRefresh_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.activeUser(t, aliceRequest())
	pair, err := env.auth.Login(ctx, "alice", "p1")
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "access token cannot refresh")

	_, err = env.auth.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	forged, err := env.codec.Mint(&models.Account{ID: acc.ID + 100, Username: "alice", Email: "a@x.com", Role: models.RoleUser}, auth.KindRefresh)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, forged)
	assert.ErrorIs(t, err, common.ErrTokenOwnershipMismatch)

	ghost, err := env.codec.Mint(&models.Account{ID: 999, Username: "ghost"}, auth.KindRefresh)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	acc.AccountNonLocked = false
	require.NoError(t, env.repos.Repos().Accounts.Update(ctx, acc))
	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrAccountLocked)

	env.clock.Advance(25 * time.Hour)
	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "expired refresh token")
}

func TestVerifyEmail_CollapsesCodeErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.SignUp(ctx, aliceRequest())
	require.NoError(t, err)
	code := env.notifier.lastCode(t, "a@x.com", models.PurposeEmailVerify)

	err = env.auth.VerifyEmail(ctx, "a@x.com", wrongCode(code))
	assert.ErrorIs(t, err, common.ErrVerificationFailed)
	assert.ErrorIs(t, err, common.ErrCodeMismatch)

	err = env.auth.VerifyEmail(ctx, "ghost@x.com", code)
	assert.ErrorIs(t, err, common.ErrVerificationFailed)

	assert.ErrorIs(t, env.auth.VerifyEmail(ctx, "a@x.com", ""), common.ErrInvalidArgument)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.SignUp(ctx, aliceRequest())
	require.NoError(t, err)

	require.NoError(t, env.auth.ResendVerification(ctx, "a@x.com"))
	code := env.notifier.lastCode(t, "a@x.com", models.PurposeEmailVerify)
	require.NoError(t, env.auth.VerifyEmail(ctx, "a@x.com", code))

	assert.ErrorIs(t, env.auth.ResendVerification(ctx, "a@x.com"), common.ErrVerificationFailed)
	assert.ErrorIs(t, env.auth.ResendVerification(ctx, "ghost@x.com"), common.ErrVerificationFailed)
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, aliceRequest())

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "ghost@x.com"), "unknown emails succeed silently")
	require.NoError(t, env.auth.RequestPasswordReset(ctx, "a@x.com"))
	code := env.notifier.lastCode(t, "a@x.com", models.PurposePasswordReset)

	err := env.auth.ResetPassword(ctx, "a@x.com", wrongCode(code), "p2")
	assert.ErrorIs(t, err, common.ErrVerificationFailed)

	require.NoError(t, env.auth.ResetPassword(ctx, "a@x.com", code, "p2"))

	_, err = env.auth.Login(ctx, "alice", "p1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, "alice", "p2")
	assert.NoError(t, err)

	err = env.auth.ResetPassword(ctx, "a@x.com", code, "p3")
	assert.ErrorIs(t, err, common.ErrVerificationFailed, "codes are single use")
}

func TestLoginFederated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	attrs := map[string]any{"sub": "g-1", "email": "Carol@x.com", "name": "Carol D", "email_verified": true}

	pair, err := env.auth.LoginFederated(ctx, "google", attrs)
	require.NoError(t, err)
	acc := pair.Account
	assert.Equal(t, "carol@x.com", acc.Email)
	assert.Equal(t, "carol@x.com", acc.Username)
	assert.Equal(t, models.ProviderGoogle, acc.Provider)
	assert.Equal(t, "g-1", acc.ProviderID)
	assert.True(t, acc.Enabled)
	assert.True(t, acc.EmailVerified)
	assert.Empty(t, acc.PasswordHash)
	assert.Equal(t, []string{"carol@x.com"}, env.notifier.welcomes)

	again, err := env.auth.LoginFederated(ctx, "GOOGLE", map[string]any{"sub": "g-1", "email": "carol@x.com", "name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.Account.ID)
	assert.Equal(t, "Carol", again.Account.FirstName, "existing accounts are returned unchanged")
	assert.Len(t, env.notifier.welcomes, 1)

	_, err = env.auth.LoginFederated(ctx, "facebook", attrs)
	assert.ErrorIs(t, err, common.ErrUnsupportedProvider)

	_, err = env.auth.Login(ctx, "carol@x.com", "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "carol@x.com"))
	for _, c := range env.notifier.codes {
		assert.NotEqual(t, "carol@x.com", c.email, "federated accounts get no reset codes")
	}
}

func TestLoginFederated_ExistingLocalAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.SignUp(ctx, aliceRequest())
	require.NoError(t, err)

	_, err = env.auth.LoginFederated(ctx, "google", map[string]any{"sub": "g-2", "email": "a@x.com"})
	assert.ErrorIs(t, err, common.ErrEmailNotVerified, "local account status still applies")
}
