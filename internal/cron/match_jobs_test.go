package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
)

type fakeRunner struct {
	opts   []matching.RunOptions
	result *matching.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, opts matching.RunOptions) (*matching.RunResult, error) {
	f.opts = append(f.opts, opts)
	return f.result, f.err
}

func TestMatchBookingsJobRunsLiveBatch(t *testing.T) {
	runner := &fakeRunner{result: &matching.RunResult{OK: true, MatchesCreated: 2, MatchIDs: []uuid.UUID{uuid.New(), uuid.New()}}}
	job, err := NewMatchBookingsJob(MatchBookingsJobParams{Logger: quietLogger(), Runner: runner, Limit: 25, SendEmails: true})
	if err != nil {
		t.Fatalf("NewMatchBookingsJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.opts) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.opts))
	}
	opts := runner.opts[0]
	if opts.DryRun || !opts.SendEmails || opts.Limit != 25 || opts.BookingID != nil {
		t.Fatalf("unexpected run options %+v", opts)
	}
}

func TestMatchBookingsJobToleratesConcurrentRun(t *testing.T) {
	runner := &fakeRunner{err: pkgerrors.New(pkgerrors.CodeConflict, "matching run already in progress")}
	job, _ := NewMatchBookingsJob(MatchBookingsJobParams{Logger: quietLogger(), Runner: runner})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected conflict to be swallowed, got %v", err)
	}

	runner.err = pkgerrors.New(pkgerrors.CodeDependency, "list bookings")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected dependency error")
	}
}

type fakeExpirer struct {
	limit  int
	result matching.ExpiryResult
	err    error
}

func (f *fakeExpirer) ExpireDue(_ context.Context, limit int) (matching.ExpiryResult, error) {
	f.limit = limit
	return f.result, f.err
}

func TestMatchExpiryJob(t *testing.T) {
	expirer := &fakeExpirer{result: matching.ExpiryResult{Scanned: 3, Expired: 3}}
	job, err := NewMatchExpiryJob(MatchExpiryJobParams{Logger: quietLogger(), Expirer: expirer})
	if err != nil {
		t.Fatalf("NewMatchExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.limit != defaultExpiryBatch {
		t.Fatalf("expected default batch %d, got %d", defaultExpiryBatch, expirer.limit)
	}

	expirer.err = errors.New("release points")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestMatchJobsRequireDependencies(t *testing.T) {
	if _, err := NewMatchBookingsJob(MatchBookingsJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected runner requirement")
	}
	if _, err := NewMatchExpiryJob(MatchExpiryJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected expirer requirement")
	}
}
