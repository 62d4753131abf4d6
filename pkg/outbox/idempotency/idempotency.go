package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/redis"
)

const processedScope = "evt:processed:"

// Manager records which events each consumer has handled. The notifications
// and analytics workers key by outbox event id, the Stripe webhook by the
// provider's evt_ id.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports whether the outbox event was already handled
// by consumer, marking it handled when it was not.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return m.CheckAndMarkExternal(ctx, consumer, eventID.String())
}

// CheckAndMarkExternal is CheckAndMarkProcessed for ids minted outside the outbox.
func (m *Manager) CheckAndMarkExternal(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	fresh, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// Delete forgets the marker so a nacked message is handled again on redelivery.
func (m *Manager) Delete(ctx context.Context, consumer, eventID string) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// processedKey yields pdvc:idempotency:evt:processed:<consumer>:<event_id>.
func (m *Manager) processedKey(consumer, eventID string) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == "":
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(processedScope+consumer, eventID), nil
}
