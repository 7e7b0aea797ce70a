package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/bem-health/admin-api/internal/api/http"
	"github.com/bem-health/admin-api/internal/api/http/handlers"
	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/config"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/observability"
	"github.com/bem-health/admin-api/internal/persistence"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/internal/service"
	"github.com/bem-health/admin-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	roles, err := config.LoadRoleTable(cfg.Roles.TablePath)
	if err != nil {
		logger.Fatal("failed to load role table", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("bem_admin")

	verifier, err := auth.NewBcryptVerifier(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to init password verifier", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store query.Datastore
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = query.NewPostgresDatastore(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory datastore; data is lost on restart")
		store = persistence.NewMemoryDatastore()
	}

	adminRepo := repository.NewAdminUserRepository(store)
	resourceRepo := repository.NewResourceRepository(store)

	if !pg.Enabled() {
		if err := persistence.SeedAdmin(ctx, adminRepo, verifier, cfg.Seed, logger); err != nil {
			logger.Fatal("failed to seed admin", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var limiter auth.LoginLimiter = auth.NoopLimiter{}
	if redis.Enabled() {
		limiter = auth.NewRedisLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow())
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	})
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Users:    adminRepo,
		Tokens:   tokens,
		Verifier: verifier,
		Limiter:  limiter,
		Events:   dispatcher,
		Logger:   logger,
	})
	adminService := service.NewAdminUserService(adminRepo, verifier, dispatcher, logger, cfg.Auth.MinPasswordLength)
	resourceService := service.NewResourceService(resourceRepo, dispatcher, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), logger)
	gate := auth.NewRoleGate(roles.SuperRole, roles.Gates)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, map[string]handlers.Backend{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		AdminUsers:     handlers.NewAdminUsersHandler(adminService),
		Resources:      handlers.NewResourcesHandler(resourceService, catalog.Default(), gate),
		AuthMiddleware: authMiddleware,
		Gate:           gate,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
