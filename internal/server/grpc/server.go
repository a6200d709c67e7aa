// Package grpc exposes the identity services over gRPC. Messages are plain
// Go structs carried by a JSON codec registered under the "json" content
// subtype.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Authenticator covers sign-up, login and the caller's own credentials.
type Authenticator interface {
	SignUp(ctx context.Context, req services.SignUpRequest) (*models.Account, error)
	Login(ctx context.Context, identifier, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	LoginFederated(ctx context.Context, provider string, attrs map[string]any) (*services.TokenPair, error)
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
	DeleteOwnAccount(ctx context.Context, token string) error
}

// Administrator is the token-protected half of the API.
type Administrator interface {
	GetAccount(ctx context.Context, token string, id int64) (*models.Account, error)
	LockAccount(ctx context.Context, token string, id int64) (*models.Account, error)
	UnlockAccount(ctx context.Context, token string, id int64) (*models.Account, error)
	ChangeRole(ctx context.Context, token string, id int64, role models.Role) (*models.Account, error)
	DeleteAccount(ctx context.Context, token string, id int64) error
}

// ClaimsVerifier checks access tokens for the interceptor.
type ClaimsVerifier interface {
	Claims(token string) (*auth.Claims, error)
}

type Server struct {
	address   string
	auth      Authenticator
	admin     Administrator
	gate      ClaimsVerifier
	accessTTL time.Duration
	logger    logging.Logger
	health    *health.Server
}

func NewServer(address string, l logging.Logger, a Authenticator, adm Administrator, gate ClaimsVerifier, accessTTL time.Duration) *Server {
	return &Server{
		address:   address,
		auth:      a,
		admin:     adm,
		gate:      gate,
		accessTTL: accessTTL,
		logger:    l.With("module", "grpc_server"),
		health:    health.NewServer(),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	)
	srv.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
