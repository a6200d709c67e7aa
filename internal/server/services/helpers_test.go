package services

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/federation"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/password"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentCode struct {
	email   string
	code    string
	purpose models.Purpose
}

type recordingNotifier struct {
	mu       sync.Mutex
	welcomes []string
	codes    []sentCode
	locked   []string
	unlocked []string
	roles    []string
}

func (n *recordingNotifier) Welcome(_ context.Context, email, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
}

func (n *recordingNotifier) OneTimeCode(_ context.Context, email, code string, purpose models.Purpose) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, sentCode{email: email, code: code, purpose: purpose})
}

func (n *recordingNotifier) AccountLocked(_ context.Context, email, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.locked = append(n.locked, email)
}

func (n *recordingNotifier) AccountUnlocked(_ context.Context, email, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked = append(n.unlocked, email)
}

func (n *recordingNotifier) RoleChanged(_ context.Context, email, _ string, _, newRole models.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roles = append(n.roles, email+":"+string(newRole))
}

// lastCode returns the most recent code sent to email for purpose.
func (n *recordingNotifier) lastCode(t *testing.T, email string, purpose models.Purpose) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.codes) - 1; i >= 0; i-- {
		if n.codes[i].email == email && n.codes[i].purpose == purpose {
			return n.codes[i].code
		}
	}
	t.Fatalf("no %s code sent to %s", purpose, email)
	return ""
}

type testEnv struct {
	repos    *repomanager.InMemoryRepositoryManager
	clock    *testClock
	codec    *auth.Codec
	hasher   *password.Hasher
	notifier *recordingNotifier
	resolver *IdentityResolver
	otp      *OtpService
	auth     *AuthService
	gate     *Gate
	admin    *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := &testClock{t: epoch}
	secret := base64.StdEncoding.EncodeToString([]byte("services-test-secret-0123456789ab"))
	codec, err := auth.NewCodec(secret, 15*time.Minute, 24*time.Hour, auth.WithClock(clk.Now))
	require.NoError(t, err)

	env := &testEnv{
		repos:    repomanager.NewInMemoryRepositoryManager(),
		clock:    clk,
		codec:    codec,
		hasher:   password.NewHasher(bcrypt.MinCost),
		notifier: &recordingNotifier{},
	}
	log := logging.Nop{}

	env.resolver = NewIdentityResolver(env.repos, env.hasher, federation.DefaultRegistry(), log)
	env.resolver.now = clk.Now

	env.otp = NewOtpService(env.repos, env.notifier, OtpSettings{Validity: 15 * time.Minute, MaxAttempts: 5, Length: 6}, log)
	env.otp.now = clk.Now

	env.auth = NewAuthService(env.repos, env.resolver, env.otp, codec, env.hasher, env.notifier, log)
	env.auth.now = clk.Now

	env.gate = NewGate(codec)

	env.admin = NewAdminService(env.repos, env.gate, env.hasher, env.notifier, log)
	env.admin.now = clk.Now

	return env
}

func aliceRequest() SignUpRequest {
	return SignUpRequest{Username: "alice", Email: "a@x.com", Password: "p1", FirstName: "A", LastName: "B"}
}

// activeUser signs up and activates an account, returning it.
func (e *testEnv) activeUser(t *testing.T, req SignUpRequest) *models.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := e.auth.SignUp(ctx, req)
	require.NoError(t, err)
	code := e.notifier.lastCode(t, acc.Email, models.PurposeEmailVerify)
	require.NoError(t, e.auth.VerifyEmail(ctx, acc.Email, code))
	acc, err = e.repos.Repos().Accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	return acc
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '0'
	} else {
		b[0]++
	}
	return string(b)
}
