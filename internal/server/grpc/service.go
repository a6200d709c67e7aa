package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gatekeeper.v1.AuthService"

const (
	methodSignUp               = "SignUp"
	methodLogin                = "Login"
	methodRefresh              = "Refresh"
	methodVerifyEmail          = "VerifyEmail"
	methodResendVerification   = "ResendVerification"
	methodRequestPasswordReset = "RequestPasswordReset"
	methodResetPassword        = "ResetPassword"
	methodFederatedLogin       = "FederatedLogin"
	methodMe                   = "Me"
	methodChangePassword       = "ChangePassword"
	methodDeleteMe             = "DeleteMe"
	methodLockAccount          = "LockAccount"
	methodUnlockAccount        = "UnlockAccount"
	methodChangeRole           = "ChangeRole"
	methodDeleteAccount        = "DeleteAccount"
)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// authServer is the handler set registered under ServiceName.
type authServer interface {
	SignUp(context.Context, *SignUpRequest) (*AccountResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
	VerifyEmail(context.Context, *VerifyEmailRequest) (*Empty, error)
	ResendVerification(context.Context, *EmailRequest) (*Empty, error)
	RequestPasswordReset(context.Context, *EmailRequest) (*Empty, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*Empty, error)
	FederatedLogin(context.Context, *FederatedLoginRequest) (*TokenResponse, error)
	Me(context.Context, *Empty) (*AccountResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	DeleteMe(context.Context, *Empty) (*Empty, error)
	LockAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	UnlockAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	ChangeRole(context.Context, *ChangeRoleRequest) (*AccountResponse, error)
	DeleteAccount(context.Context, *AccountRequest) (*Empty, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*authServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodSignUp, authServer.SignUp),
		unary(methodLogin, authServer.Login),
		unary(methodRefresh, authServer.Refresh),
		unary(methodVerifyEmail, authServer.VerifyEmail),
		unary(methodResendVerification, authServer.ResendVerification),
		unary(methodRequestPasswordReset, authServer.RequestPasswordReset),
		unary(methodResetPassword, authServer.ResetPassword),
		unary(methodFederatedLogin, authServer.FederatedLogin),
		unary(methodMe, authServer.Me),
		unary(methodChangePassword, authServer.ChangePassword),
		unary(methodDeleteMe, authServer.DeleteMe),
		unary(methodLockAccount, authServer.LockAccount),
		unary(methodUnlockAccount, authServer.UnlockAccount),
		unary(methodChangeRole, authServer.ChangeRole),
		unary(methodDeleteAccount, authServer.DeleteAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/v1/auth.json",
}

// unary builds the method descriptor that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[Req, Resp any](method string, call func(authServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(authServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(authServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
