// Package bootstrap assembles the matching engine shared by cmd/api and
// cmd/cron-worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	"github.com/pixiedvc/pixiedvc-backend/internal/notifications"
	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
	"github.com/pixiedvc/pixiedvc-backend/internal/rentals"
	"github.com/pixiedvc/pixiedvc-backend/internal/rewards"
	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/metrics"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/redis"
)

const matchRunLockName = "matching-run"

type dbClient interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Engine holds the services behind matching, owner decisions and rentals.
type Engine struct {
	Matching  matching.Service
	Decisions *matching.DecisionService
	Rentals   *rentals.Service
	Metrics   *metrics.MatchingMetrics
}

// EngineParams wires the engine. Redis and Registerer are optional; without
// Redis matching runs are not single-flighted across instances.
type EngineParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	cfg := params.Config
	logg := params.Logger
	conn := params.DB.DB()

	calc := payout.NewCalculator(payout.Rates{
		BasePerPointCents:    cfg.Matching.OwnerBaseRateCents,
		PremiumPerPointCents: cfg.Matching.OwnerPremiumCents,
	})
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	matchingMetrics := metrics.NewMatchingMetrics(params.Registerer)
	store := rewards.NewStore(conn)
	repo := matching.NewRepository(conn)

	rentalService, err := rentals.NewService(rentals.ServiceParams{
		Repo:                  rentals.NewRepository(conn),
		Tx:                    params.DB,
		Outbox:                events,
		Calculator:            calc,
		Rewards:               store,
		Promotions:            store,
		Metrics:               matchingMetrics,
		Logger:                logg,
		DefaultGuestRateCents: cfg.Matching.DefaultGuestRateCents,
	})
	if err != nil {
		return nil, fmt.Errorf("rentals service: %w", err)
	}

	evaluator, err := matching.NewEvaluator(repo, calc, logg, matching.EvaluatorConfig{
		DefaultLimit:  cfg.Matching.DefaultLimit,
		MaxLimit:      cfg.Matching.MaxLimit,
		MaxCandidates: cfg.Matching.MaxCandidates,
		MatchTTL:      cfg.Matching.MatchTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("matching evaluator: %w", err)
	}

	var mailer matching.OwnerMailer
	if cfg.Sendgrid.Enabled() {
		m, err := notifications.NewMailer(cfg.Sendgrid)
		if err != nil {
			return nil, fmt.Errorf("sendgrid mailer: %w", err)
		}
		mailer = m
	}

	var runLock matching.RunLock
	if params.Redis != nil {
		lock, err := redis.NewLock(params.Redis, params.Redis.LockKey(matchRunLockName), cfg.Matching.RunLockTTL)
		if err != nil {
			return nil, fmt.Errorf("matching run lock: %w", err)
		}
		runLock = lock
	}

	matchingService, err := matching.NewService(matching.ServiceParams{
		Evaluator:     evaluator,
		Repo:          repo,
		Tx:            params.DB,
		Outbox:        events,
		Mailer:        mailer,
		Metrics:       matchingMetrics,
		Lock:          runLock,
		Logger:        logg,
		PublicBaseURL: cfg.Matching.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("matching service: %w", err)
	}

	decisions, err := matching.NewDecisionService(repo, params.DB, events, rentalService, logg)
	if err != nil {
		return nil, fmt.Errorf("decision service: %w", err)
	}

	return &Engine{
		Matching:  matchingService,
		Decisions: decisions,
		Rentals:   rentalService,
		Metrics:   matchingMetrics,
	}, nil
}
