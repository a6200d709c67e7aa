package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
	"google.golang.org/grpc/status"
)

// withClient dials the configured server and runs fn with a request
// timeout applied.
func (a *App) withClient(ctx context.Context, fn func(ctx context.Context, c *gs.Client) error) error {
	conn, err := a.dial(a.config.ServerEndpointAddr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", a.config.ServerEndpointAddr, err)
	}
	defer conn.Close()

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	if err := fn(ctx, gs.NewClient(conn)); err != nil {
		if st, ok := status.FromError(err); ok {
			return fmt.Errorf("%s: %s", st.Code(), st.Message())
		}
		return err
	}
	return nil
}

func (a *App) signUp(ctx context.Context, _ []string) error {
	req := &gs.SignUpRequest{}
	prompts := []struct {
		prompt string
		dst    *string
	}{
		{"Username", &req.Username},
		{"Email", &req.Email},
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
		{"Phone number (optional)", &req.PhoneNumber},
	}
	for _, p := range prompts {
		v, err := GetSimpleText(a.reader, p.prompt, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	req.Password = string(pw)
	common.WipeByteArray(pw)

	return a.withClient(ctx, func(ctx context.Context, c *gs.Client) error {
		resp, err := c.SignUp(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account %s registered (id=%d). Check %s for the verification code.\n",
			resp.Account.Username, resp.Account.ID, resp.Account.Email)
		return nil
	})
}

func (a *App) verify(ctx context.Context, _ []string) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	code, err := GetSimpleText(a.reader, "Code (leave empty to resend)", a.out)
	if err != nil {
		return err
	}

	return a.withClient(ctx, func(ctx context.Context, c *gs.Client) error {
		if code == "" {
			if err := c.ResendVerification(ctx, email); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "A new code has been sent.")
			return nil
		}
		if err := c.VerifyEmail(ctx, email, code); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Email verified, you can log in now.")
		return nil
	})
}

func (a *App) login(ctx context.Context, _ []string) error {
	identifier, err := GetSimpleText(a.reader, "Username or email", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword(a.out, "Password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	return a.withClient(ctx, func(ctx context.Context, c *gs.Client) error {
		resp, err := c.Login(ctx, identifier, string(pw))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Logged in as %s (%s)\n", resp.Account.Username, resp.Account.Role)
		fmt.Fprintf(a.out, "access token (expires in %ds):\n%s\n", resp.ExpiresIn, resp.AccessToken)
		fmt.Fprintf(a.out, "refresh token:\n%s\n", resp.RefreshToken)
		return nil
	})
}

func (a *App) passwd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: passwd <access-token>")
	}
	current, err := GetPassword(a.out, "Current password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	next, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	return a.withClient(ctx, func(ctx context.Context, c *gs.Client) error {
		if err := c.WithToken(args[0]).ChangePassword(ctx, string(current), string(next)); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password changed.")
		return nil
	})
}

func (a *App) me(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: me <access-token>")
	}
	return a.withClient(ctx, func(ctx context.Context, c *gs.Client) error {
		resp, err := c.WithToken(args[0]).Me(ctx)
		if err != nil {
			return err
		}
		acc := resp.Account
		fmt.Fprintf(a.out, "id:       %d\nusername: %s\nemail:    %s\nrole:     %s\nprovider: %s\nenabled:  %t\nlocked:   %t\n",
			acc.ID, acc.Username, acc.Email, acc.Role, acc.Provider, acc.Enabled, acc.Locked)
		return nil
	})
}
