package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
)

// createAdmin prompts for the administrator's details, defaulting to the
// configured seed, and creates it unless an administrator already exists.
func (a *App) createAdmin(ctx context.Context, _ []string) error {
	cfg := a.serverConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	seed := server.AdminSeed(cfg)
	var err error
	if seed.Username, err = GetTextOrDefault(a.reader, "Admin username", seed.Username, a.out); err != nil {
		return err
	}
	if seed.Email, err = GetTextOrDefault(a.reader, "Admin email", seed.Email, a.out); err != nil {
		return err
	}
	if seed.FirstName, err = GetTextOrDefault(a.reader, "First name", seed.FirstName, a.out); err != nil {
		return err
	}
	if seed.LastName, err = GetTextOrDefault(a.reader, "Last name", seed.LastName, a.out); err != nil {
		return err
	}

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	seed.Password = string(pw)
	common.WipeByteArray(pw)

	logger := logging.New(os.Stderr, "text", "warn")
	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dispatcher := notify.NewDispatcher(notify.NewLogPublisher(logger), time.Second, logger)
	defer dispatcher.Wait()

	svc, err := server.NewServices(cfg, store, dispatcher, logger)
	if err != nil {
		return err
	}

	account, created, err := svc.Admin.BootstrapAdmin(ctx, seed)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintln(a.out, "An administrator already exists, nothing to do.")
		return nil
	}
	fmt.Fprintf(a.out, "Administrator %s created (id=%d)\n", account.Username, account.ID)
	return nil
}

type tokenView struct {
	ID        string    `json:"jti"`
	Subject   string    `json:"sub"`
	AccountID int64     `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Kind      string    `json:"type"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// inspectToken verifies a token with the configured secret and prints its
// claims as JSON.
func (a *App) inspectToken(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: inspect-token <token>")
	}

	cfg := a.serverConfig()
	codec, err := auth.NewCodec(cfg.SecretKey, cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	if err != nil {
		return err
	}
	claims, err := codec.Verify(args[0])
	if err != nil {
		return err
	}

	view := tokenView{
		ID:        claims.ID,
		Subject:   claims.Subject,
		AccountID: claims.AccountID(),
		Email:     claims.Email,
		Role:      string(claims.Role),
		Kind:      claims.Kind().String(),
	}
	if claims.IssuedAt != nil {
		view.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		view.ExpiresAt = claims.ExpiresAt.Time
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
