package cron

import (
	"context"
	"fmt"

	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

const defaultExpiryBatch = 100

type matchExpirer interface {
	ExpireDue(ctx context.Context, limit int) (matching.ExpiryResult, error)
}

type MatchExpiryJobParams struct {
	Logger    *logger.Logger
	Expirer   matchExpirer
	BatchSize int
}

// NewMatchExpiryJob releases the points held by unanswered matches past expires_at.
func NewMatchExpiryJob(params MatchExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("match expirer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &matchExpiryJob{logg: params.Logger, expirer: params.Expirer, batch: batch}, nil
}

type matchExpiryJob struct {
	logg    *logger.Logger
	expirer matchExpirer
	batch   int
}

func (j *matchExpiryJob) Name() string { return "match-expiry" }

func (j *matchExpiryJob) Run(ctx context.Context) error {
	result, err := j.expirer.ExpireDue(ctx, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": result.Scanned,
		"expired": result.Expired,
	})
	if err != nil {
		return fmt.Errorf("expire matches: %w", err)
	}
	if result.Scanned > 0 {
		j.logg.Info(logCtx, "pending matches expired")
	}
	return nil
}
