package stripewebhook

import (
	"context"
	"errors"
)

type externalProcessed interface {
	CheckAndMarkExternal(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// IdempotencyGuard remembers which Stripe event ids were handled.
type IdempotencyGuard struct {
	manager  externalProcessed
	consumer string
}

func NewIdempotencyGuard(manager externalProcessed, consumer string) (*IdempotencyGuard, error) {
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if consumer == "" {
		return nil, errors.New("consumer is required")
	}
	return &IdempotencyGuard{manager: manager, consumer: consumer}, nil
}

func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return g.manager.CheckAndMarkExternal(ctx, g.consumer, eventID)
}

func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.manager.Delete(ctx, g.consumer, eventID)
}
