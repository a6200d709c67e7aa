// Package server wires configuration, storage, notifications, the identity
// services and the gRPC transport into a runnable application.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/federation"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/password"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
)

// Services is the assembled identity core.
type Services struct {
	Codec *auth.Codec
	Auth  *services.AuthService
	Admin *services.AdminService
	Gate  *services.Gate
}

// OpenStore returns the in-process store for config.MemoryDSN and a
// migrated PostgreSQL store otherwise.
func OpenStore(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, error) {
	if cfg.DatabaseDSN == config.MemoryDSN {
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	m, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return m, nil
}

// NewServices builds the identity services over store m.
func NewServices(cfg *config.Config, m repomanager.RepositoryManager, n notify.Notifier, logger logging.Logger) (*Services, error) {
	codec, err := auth.NewCodec(cfg.SecretKey, cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	hasher := password.NewHasher(bcrypt.DefaultCost)
	resolver := services.NewIdentityResolver(m, hasher, federation.DefaultRegistry(), logger)
	otp := services.NewOtpService(m, n, services.OtpSettings{
		Validity:    cfg.OtpValidityDuration,
		MaxAttempts: cfg.OtpMaxAttempts,
		Length:      cfg.OtpLength,
	}, logger)
	gate := services.NewGate(codec)

	return &Services{
		Codec: codec,
		Auth:  services.NewAuthService(m, resolver, otp, codec, hasher, n, logger),
		Admin: services.NewAdminService(m, gate, hasher, n, logger),
		Gate:  gate,
	}, nil
}

// AdminSeed extracts the bootstrap administrator from cfg.
func AdminSeed(cfg *config.Config) services.AdminSeed {
	return services.AdminSeed{
		Username:  cfg.AdminUsername,
		Email:     cfg.AdminEmail,
		Password:  cfg.AdminPassword,
		FirstName: cfg.AdminFirstName,
		LastName:  cfg.AdminLastName,
	}
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      repomanager.RepositoryManager
	redis      *redis.Client
	dispatcher *notify.Dispatcher
	services   *Services
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repos, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, repos: repos}

	var publisher notify.Publisher = notify.NewLogPublisher(logger.With("module", "notifications"))
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis is not reachable, notifications may be lost", "addr", c.RedisAddr, "error", err)
		}
		publisher = notify.NewRedisQueue(app.redis, c.NotificationQueue)
	}
	app.dispatcher = notify.NewDispatcher(publisher, c.NotificationTimeout, logger)

	app.services, err = NewServices(c, repos, app.dispatcher, logger)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) bootstrapAdmin(ctx context.Context) error {
	if !app.config.AdminBootstrap {
		return nil
	}
	account, created, err := app.services.Admin.BootstrapAdmin(ctx, AdminSeed(app.config))
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}
	if created {
		app.logger.Info(ctx, "bootstrap administrator created", "username", account.Username)
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains pending notifications and closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close(ctx)

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.bootstrapAdmin(ctx); err != nil {
		return err
	}

	s := gs.NewServer(app.config.EndpointAddrGRPC, app.logger, app.services.Auth, app.services.Admin,
		app.services.Gate, app.services.Codec.AccessTTL())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		return err
	}
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.dispatcher != nil {
		app.dispatcher.Wait()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Warn(ctx, "store close failed", "error", err)
	}
}
