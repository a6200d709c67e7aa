package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *Server) SignUp(ctx context.Context, req *SignUpRequest) (*AccountResponse, error) {
	account, err := s.auth.SignUp(ctx, services.SignUpRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AccountResponse{Account: toAccount(account)}, nil
}

func (s *Server) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	pair, err := s.auth.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.toTokenResponse(pair), nil
}

func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	pair, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.toTokenResponse(pair), nil
}

func (s *Server) VerifyEmail(ctx context.Context, req *VerifyEmailRequest) (*Empty, error) {
	if err := s.auth.VerifyEmail(ctx, req.Email, req.Code); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) ResendVerification(ctx context.Context, req *EmailRequest) (*Empty, error) {
	if err := s.auth.ResendVerification(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) RequestPasswordReset(ctx context.Context, req *EmailRequest) (*Empty, error) {
	if err := s.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Empty, error) {
	if err := s.auth.ResetPassword(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) FederatedLogin(ctx context.Context, req *FederatedLoginRequest) (*TokenResponse, error) {
	pair, err := s.auth.LoginFederated(ctx, req.Provider, req.Attributes)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.toTokenResponse(pair), nil
}

func (s *Server) Me(ctx context.Context, _ *Empty) (*AccountResponse, error) {
	token, claims, ok := callerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	account, err := s.admin.GetAccount(ctx, token, claims.AccountID())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AccountResponse{Account: toAccount(account)}, nil
}

func (s *Server) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*Empty, error) {
	if err := s.auth.ChangePassword(ctx, tokenFromContext(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) DeleteMe(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.auth.DeleteOwnAccount(ctx, tokenFromContext(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) LockAccount(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	account, err := s.admin.LockAccount(ctx, tokenFromContext(ctx), req.AccountID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AccountResponse{Account: toAccount(account)}, nil
}

func (s *Server) UnlockAccount(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	account, err := s.admin.UnlockAccount(ctx, tokenFromContext(ctx), req.AccountID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AccountResponse{Account: toAccount(account)}, nil
}

func (s *Server) ChangeRole(ctx context.Context, req *ChangeRoleRequest) (*AccountResponse, error) {
	account, err := s.admin.ChangeRole(ctx, tokenFromContext(ctx), req.AccountID, models.Role(req.Role))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AccountResponse{Account: toAccount(account)}, nil
}

func (s *Server) DeleteAccount(ctx context.Context, req *AccountRequest) (*Empty, error) {
	if err := s.admin.DeleteAccount(ctx, tokenFromContext(ctx), req.AccountID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

type statusRule struct {
	target error
	code   codes.Code
	// detailed rules pass the full error text to the client. The others
	// answer with the sentinel text only.
	detailed bool
}

var statusRules = []statusRule{
	{common.ErrInvalidArgument, codes.InvalidArgument, true},
	{common.ErrUnsupportedProvider, codes.InvalidArgument, true},
	{common.ErrAlreadyExists, codes.AlreadyExists, true},
	{common.ErrInvalidCredentials, codes.Unauthenticated, false},
	{common.ErrTokenOwnershipMismatch, codes.Unauthenticated, false},
	{common.ErrInvalidToken, codes.Unauthenticated, false},
	{common.ErrorUnauthorized, codes.Unauthenticated, false},
	{common.ErrEmailNotVerified, codes.FailedPrecondition, false},
	{common.ErrAccountDisabled, codes.FailedPrecondition, false},
	{common.ErrAccountLocked, codes.FailedPrecondition, false},
	{common.ErrAccountExpired, codes.FailedPrecondition, false},
	{common.ErrVerificationFailed, codes.FailedPrecondition, false},
	{common.ErrForbidden, codes.PermissionDenied, false},
	{common.ErrorNotFound, codes.NotFound, false},
}

// toStatus maps the error taxonomy onto gRPC status codes. Anything
// unrecognised is logged and reported as Internal.
func (s *Server) toStatus(ctx context.Context, err error) error {
	for _, r := range statusRules {
		if errors.Is(err, r.target) {
			msg := r.target.Error()
			if r.detailed {
				msg = err.Error()
			}
			return status.Error(r.code, msg)
		}
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
