package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	tokenKey  ctxKey = "accessToken"
	claimsKey ctxKey = "claims"
)

// protectedMethods need a valid access token. The bool marks methods that
// also need the ADMIN role.
var protectedMethods = map[string]bool{
	fullMethod(methodMe):             false,
	fullMethod(methodChangePassword): false,
	fullMethod(methodDeleteMe):       false,
	fullMethod(methodLockAccount):    true,
	fullMethod(methodUnlockAccount):  true,
	fullMethod(methodChangeRole):     true,
	fullMethod(methodDeleteAccount):  true,
}

func (s *Server) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	adminOnly, protected := protectedMethods[info.FullMethod]
	if !protected {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	if header == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	token, err := services.ExtractBearer(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "malformed authorization header")
	}
	claims, err := s.gate.Claims(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	if adminOnly && claims.Role != models.RoleAdmin {
		return nil, status.Error(codes.PermissionDenied, common.ErrForbidden.Error())
	}

	ctx = context.WithValue(ctx, tokenKey, token)
	ctx = context.WithValue(ctx, claimsKey, claims)
	return handler(ctx, req)
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func callerFromContext(ctx context.Context) (string, *auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return "", nil, false
	}
	return tokenFromContext(ctx), claims, true
}
