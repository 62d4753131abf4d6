package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixiedvc/pixiedvc-backend/api/routes"
	"github.com/pixiedvc/pixiedvc-backend/internal/bootstrap"
	stripewebhook "github.com/pixiedvc/pixiedvc-backend/internal/webhooks/stripe"
	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/migrate"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/idempotency"
	"github.com/pixiedvc/pixiedvc-backend/pkg/redis"
	"github.com/pixiedvc/pixiedvc-backend/pkg/stripe"
)

const (
	stripeWebhookConsumer = "stripe-webhook"
	shutdownTimeout       = 15 * time.Second
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
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	engine, err := bootstrap.NewEngine(bootstrap.EngineParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build matching engine", err)
		os.Exit(1)
	}

	var (
		stripeClient       *stripe.Client
		stripeWebhookSvc   *stripewebhook.Service
		stripeWebhookGuard *stripewebhook.IdempotencyGuard
	)
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to configure stripe", err)
			os.Exit(1)
		}
		stripeWebhookSvc, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			Repo:              stripewebhook.NewRepository(dbClient.DB()),
			TransactionRunner: dbClient,
			Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
			Logger:            logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook service", err)
			os.Exit(1)
		}
		manager, err := idempotency.NewManager(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create idempotency manager", err)
			os.Exit(1)
		}
		stripeWebhookGuard, err = stripewebhook.NewIdempotencyGuard(manager, stripeWebhookConsumer)
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe idempotency guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe api key not set, deposit webhook disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			prometheus.DefaultGatherer,
			engine,
			stripeClient,
			stripeWebhookSvc,
			stripeWebhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server shut down gracefully")
}
