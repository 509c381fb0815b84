package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/virtualmandi/mandi-backend/api/routes"
	"github.com/virtualmandi/mandi-backend/internal/credentials"
	"github.com/virtualmandi/mandi-backend/internal/identity"
	"github.com/virtualmandi/mandi-backend/internal/marketplace"
	"github.com/virtualmandi/mandi-backend/internal/prefs"
	"github.com/virtualmandi/mandi-backend/internal/products"
	"github.com/virtualmandi/mandi-backend/internal/profiles"
	"github.com/virtualmandi/mandi-backend/internal/requests"
	"github.com/virtualmandi/mandi-backend/internal/roles"
	"github.com/virtualmandi/mandi-backend/pkg/auth/session"
	"github.com/virtualmandi/mandi-backend/pkg/config"
	"github.com/virtualmandi/mandi-backend/pkg/db"
	"github.com/virtualmandi/mandi-backend/pkg/logger"
	"github.com/virtualmandi/mandi-backend/pkg/metrics"
	"github.com/virtualmandi/mandi-backend/pkg/migrate"
	"github.com/virtualmandi/mandi-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, dbErr := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if dbErr != nil {
		return dbErr
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if migrateErr := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); migrateErr != nil {
		return migrateErr
	}

	redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
	if redisErr != nil {
		return redisErr
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	sessionManager, smErr := session.NewManager(redisClient, cfg.JWT)
	if smErr != nil {
		return smErr
	}

	credentialRepo := credentials.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())
	roleRepo := roles.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())

	productService, svcErr := products.NewService(productRepo, profileRepo)
	if svcErr != nil {
		return svcErr
	}
	requestService, svcErr := requests.NewService(requestRepo, productRepo, profileRepo)
	if svcErr != nil {
		return svcErr
	}

	identityManager, idErr := identity.NewManager(identity.ManagerParams{
		Credentials: credentialRepo,
		Profiles:    profileRepo,
		Roles:       roleRepo,
		Sessions:    sessionManager,
		JWTConfig:   cfg.JWT,
		Password:    cfg.Password,
		Logger:      logg,
		IsDuplicate: func(createErr error) bool {
			return db.IsUniqueViolation(createErr, "")
		},
	})
	if idErr != nil {
		return idErr
	}

	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)
	marketMetrics := metrics.NewMarketplaceMetrics(promRegistry)

	registry, regErr := marketplace.NewRegistry(marketplace.RegistryParams{
		Products:   productService,
		Requests:   requestService,
		Identities: identityManager,
		Metrics:    marketMetrics,
		Logger:     logg,
	})
	if regErr != nil {
		return regErr
	}

	prefsService, prefsErr := prefs.NewService(redisClient)
	if prefsErr != nil {
		return prefsErr
	}

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		SessionManager: sessionManager,
		Identity:       identityManager,
		Registry:       registry,
		Prefs:          prefsService,
		HTTPMetrics:    httpMetrics,
		PromRegistry:   promRegistry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	subToken, events := identityManager.Subscribe()
	defer identityManager.Unsubscribe(subToken)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		listenErr := registry.Listen(groupCtx, events)
		if errors.Is(listenErr, context.Canceled) {
			return nil
		}
		return listenErr
	})
	group.Go(func() error {
		logCtx := logg.WithFields(groupCtx, map[string]any{
			"env":  cfg.App.Env,
			"addr": addr,
		})
		logg.Info(logCtx, "starting api server")
		serveErr := server.ListenAndServe()
		if serveErr != nil && serveErr != http.ErrServerClosed {
			return serveErr
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return multierr.Append(err, group.Wait())
}
