package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixiedvc/pixiedvc-backend/internal/bootstrap"
	"github.com/pixiedvc/pixiedvc-backend/internal/cron"
	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/metrics"
	"github.com/pixiedvc/pixiedvc-backend/pkg/migrate"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registry, err := buildRegistry(cfg, logg, dbClient, engine)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := redis.NewLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")
	metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, engine *bootstrap.Engine) (*cron.Registry, error) {
	matchJob, err := cron.NewMatchBookingsJob(cron.MatchBookingsJobParams{
		Logger:     logg,
		Runner:     engine.Matching,
		Limit:      cfg.Matching.DefaultLimit,
		SendEmails: cfg.Matching.SendEmails,
	})
	if err != nil {
		return nil, err
	}
	expiryJob, err := cron.NewMatchExpiryJob(cron.MatchExpiryJobParams{
		Logger:    logg,
		Expirer:   engine.Decisions,
		BatchSize: cfg.Matching.ExpiryBatchSize,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	// expiry runs ahead of matching within a cycle
	registry.RegisterEvery(expiryJob, cfg.Cron.MatchExpiryInterval)
	registry.RegisterEvery(matchJob, cfg.Cron.MatchBookingsInterval)
	registry.RegisterEvery(retentionJob, cfg.Cron.OutboxRetentionInterval)
	return registry, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
