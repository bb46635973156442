// Command server runs the storefront identity API.
//
//	@title						Storefront Identity API
//	@version					1.0
//	@description				Accounts, bearer-token authentication and owner-scoped product management.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/identity-api/internal/api"
	"github.com/storefront/identity-api/internal/api/handler"
	"github.com/storefront/identity-api/internal/core/security"
	"github.com/storefront/identity-api/internal/core/service"
	mongodb "github.com/storefront/identity-api/internal/infrastructure/db/mongo"
	redisdb "github.com/storefront/identity-api/internal/infrastructure/db/redis"
	"github.com/storefront/identity-api/internal/infrastructure/queue"
	"github.com/storefront/identity-api/internal/pkg/config"
	"github.com/storefront/identity-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity-api",
		Env:     cfg.Env,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Security primitives ---
	codec, err := security.NewTokenCodec(security.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.JWTTTL,
		Issuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}
	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	policy, err := security.NewPolicy(api.AccessRules())
	if err != nil {
		return err
	}

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Timeout:     cfg.Mongo.Timeout,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	userRepo := mongodb.NewUserRepository(db)
	productRepo := mongodb.NewProductRepository(db)
	activityRepo := mongodb.NewActivityRepository(db)
	if err := mongodb.EnsureIndexes(ctx, userRepo, productRepo, activityRepo); err != nil {
		return err
	}

	// --- Activity trail ---
	dispatcher := queue.NewDispatcher(cfg.ActivityWorkers, activityRepo, logger.Component("activity"))
	dispatcher.Start(ctx)

	// --- Services ---
	authService := service.NewAuthService(
		userRepo, hasher, codec,
		redisdb.NewRegistrationGuard(rdb),
		dispatcher,
		logger.Component("auth"),
	)
	userService := service.NewUserService(userRepo, productRepo, hasher, policy, logger.Component("users"))
	productService := service.NewProductService(productRepo, userRepo, policy, logger.Component("products"))

	if cfg.Admin.Enabled() {
		created, err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("bootstrap admin account created")
		}
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:     authService,
		Users:    userService,
		Products: productService,
		Tokens:   codec,
		Accounts: userRepo,
		Activity: dispatcher,
		Policy:   policy,
		HealthChecks: map[string]handler.Check{
			"mongodb": mongodb.Probe(client),
			"redis":   redisdb.Probe(rdb),
		},
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger.Component("http"),
	})

	srv := &http.Server{
		Addr:    net.JoinHostPort("", cfg.Port),
		Handler: e,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serverErr := srv.Shutdown(shutdownCtx)
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("activity backlog not fully written")
		}
		return serverErr
	})

	return g.Wait()
}
