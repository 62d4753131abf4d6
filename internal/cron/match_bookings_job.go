package cron

import (
	"context"
	"fmt"

	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

type matchRunner interface {
	Run(ctx context.Context, opts matching.RunOptions) (*matching.RunResult, error)
}

type MatchBookingsJobParams struct {
	Logger     *logger.Logger
	Runner     matchRunner
	Limit      int
	SendEmails bool
}

// NewMatchBookingsJob runs a live matching batch over submitted bookings.
func NewMatchBookingsJob(params MatchBookingsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("matching runner required")
	}
	return &matchBookingsJob{
		logg:       params.Logger,
		runner:     params.Runner,
		limit:      params.Limit,
		sendEmails: params.SendEmails,
	}, nil
}

type matchBookingsJob struct {
	logg       *logger.Logger
	runner     matchRunner
	limit      int
	sendEmails bool
}

func (j *matchBookingsJob) Name() string { return "match-bookings" }

func (j *matchBookingsJob) Run(ctx context.Context) error {
	result, err := j.runner.Run(ctx, matching.RunOptions{
		EvaluateOptions: matching.EvaluateOptions{Limit: j.limit},
		SendEmails:      j.sendEmails,
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		j.logg.Info(ctx, "matching run already in progress; skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("match bookings: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"matches_created":   result.MatchesCreated,
		"eligible_bookings": len(result.EligibleBookings),
		"evaluated":         len(result.EvaluatedBookings),
		"errors":            len(result.Errors),
	})
	if len(result.Errors) > 0 {
		j.logg.Warn(logCtx, "matching run finished with booking errors")
		return nil
	}
	j.logg.Info(logCtx, "matching run complete")
	return nil
}
