package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumerRunner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	PubSub    pinger
	Consumers map[string]consumerRunner
}

// Service runs the Pub/Sub consumers that react to domain events.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	deps      []dependency
	consumers map[string]consumerRunner
}

type dependency struct {
	name string
	ping func(context.Context) error
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}

	return &Service{
		cfg:  params.Config,
		logg: params.Logger,
		deps: []dependency{
			{name: "database", ping: params.DB.Ping},
			{name: "redis", ping: params.Redis.Ping},
			{name: "pubsub", ping: params.PubSub.Ping},
		},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or any consumer exits.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, len(s.consumers))
	for name, c := range s.consumers {
		consumerCtx := s.logg.WithField(ctx, "consumer", name)
		go func(c consumerRunner) {
			errCh <- c.Run(consumerCtx)
		}(c)
	}

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		}
		return err
	}
}
