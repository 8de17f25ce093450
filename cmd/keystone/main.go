package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keystone-id/keystone/internal/app"
	"github.com/keystone-id/keystone/internal/auth"
	"github.com/keystone-id/keystone/internal/bootstrap"
	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/platform/cache"
	"github.com/keystone-id/keystone/internal/platform/db"
	"github.com/keystone-id/keystone/internal/rbac"
	"github.com/keystone-id/keystone/internal/roles"
	"github.com/keystone-id/keystone/internal/token"
	"github.com/keystone-id/keystone/internal/users"
	"github.com/keystone-id/keystone/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool, migrations.FS); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The login throttle fails open, so a missing redis is not fatal.
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm)
	if err != nil {
		logger.Error("build token codec", slog.Any("error", err))
		os.Exit(1)
	}
	issuer := token.NewIssuer(codec, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo, users.BcryptHasher{})

	roleRepo := roles.NewRepository(dbpool)
	roleService := roles.NewService(roleRepo)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	resolver := identity.NewResolver(codec, rbacService)
	identityMiddleware := identity.Middleware{Resolver: resolver, Logger: logger}

	throttle := auth.NewThrottle(redisClient, logger, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)
	authService := auth.NewService(userService, issuer, resolver, throttle)
	authHandler := auth.NewHandler(logger, authService)

	usersHandler := users.NewHandler(logger, userService, roleService, rbacService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roleService, rbacMiddleware)

	if err := bootstrap.Seed(ctx, logger, roleService, userService, rbacService, bootstrap.AdminAccount{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		logger.Error("seed defaults", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		RolesHandler: rolesHandler,
		Identity:     identityMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
