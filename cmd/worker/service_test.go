package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubConsumer struct {
	err   error
	block bool
}

func (s stubConsumer) Run(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: &bytes.Buffer{}})
}

func newTestService(t *testing.T, db pinger, consumers map[string]consumerRunner) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:    &config.Config{},
		Logger:    testLogger(),
		DB:        db,
		Redis:     stubPinger{},
		PubSub:    stubPinger{},
		Consumers: consumers,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresConsumers(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: testLogger(),
		DB:     stubPinger{},
		Redis:  stubPinger{},
		PubSub: stubPinger{},
	})
	if err == nil {
		t.Fatal("expected error without consumers")
	}
}

func TestRunFailsWhenDependencyUnready(t *testing.T) {
	svc := newTestService(t, stubPinger{err: errors.New("refused")}, map[string]consumerRunner{"c": stubConsumer{block: true}})
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness failure")
	}
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc := newTestService(t, stubPinger{}, map[string]consumerRunner{
		"broken":  stubConsumer{err: boom},
		"healthy": stubConsumer{block: true},
	})
	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t, stubPinger{}, map[string]consumerRunner{"c": stubConsumer{block: true}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
