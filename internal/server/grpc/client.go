package grpc

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls AuthService over an existing connection using the JSON
// codec.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// WithToken returns a copy that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	return &Client{conn: c.conn, token: token}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any) (*Resp, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}
	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SignUp(ctx context.Context, req *SignUpRequest) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, methodSignUp, req)
}

func (c *Client) Login(ctx context.Context, identifier, password string) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, methodLogin, &LoginRequest{Identifier: identifier, Password: password})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, methodRefresh, &RefreshRequest{RefreshToken: refreshToken})
}

func (c *Client) VerifyEmail(ctx context.Context, email, code string) error {
	_, err := invoke[Empty](ctx, c, methodVerifyEmail, &VerifyEmailRequest{Email: email, Code: code})
	return err
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	_, err := invoke[Empty](ctx, c, methodResendVerification, &EmailRequest{Email: email})
	return err
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := invoke[Empty](ctx, c, methodRequestPasswordReset, &EmailRequest{Email: email})
	return err
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	_, err := invoke[Empty](ctx, c, methodResetPassword, &ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword})
	return err
}

func (c *Client) FederatedLogin(ctx context.Context, provider string, attrs map[string]any) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, methodFederatedLogin, &FederatedLoginRequest{Provider: provider, Attributes: attrs})
}

func (c *Client) Me(ctx context.Context) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, methodMe, &Empty{})
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	_, err := invoke[Empty](ctx, c, methodChangePassword, &ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword})
	return err
}

func (c *Client) DeleteMe(ctx context.Context) error {
	_, err := invoke[Empty](ctx, c, methodDeleteMe, &Empty{})
	return err
}

func (c *Client) LockAccount(ctx context.Context, id int64) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, methodLockAccount, &AccountRequest{AccountID: id})
}

func (c *Client) UnlockAccount(ctx context.Context, id int64) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, methodUnlockAccount, &AccountRequest{AccountID: id})
}

func (c *Client) ChangeRole(ctx context.Context, id int64, role string) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, methodChangeRole, &ChangeRoleRequest{AccountID: id, Role: role})
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	_, err := invoke[Empty](ctx, c, methodDeleteAccount, &AccountRequest{AccountID: id})
	return err
}
