package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

const rentalNotificationConsumer = "rental-notifications"

type rentalEmailSource interface {
	RentalEmail(ctx context.Context, rentalID uuid.UUID) (*RentalEmail, error)
}

type rentalMailer interface {
	SendOwnerRentalEmail(ctx context.Context, msg RentalEmail) error
}

type processedStore interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID string) error
}

// Consumer emails owners when a rental is created for a match they accepted.
type Consumer struct {
	repo         rentalEmailSource
	mailer       rentalMailer
	subscription *pubsub.Subscriber
	idempotency  processedStore
	logg         *logger.Logger
}

func NewConsumer(repo rentalEmailSource, mailer rentalMailer, subscription *pubsub.Subscriber, manager processedStore, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("rentals subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventRentalCreated) {
		return processResult{ack: true}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	var payload payloads.RentalCreatedEvent
	if err := envelope.DecodeData(&payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"rental_id": payload.RentalID.String(),
		"match_id":  payload.MatchID.String(),
	})

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, rentalNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.notifyOwner(ctx, payload.RentalID, logCtx); err != nil {
		c.logg.Error(logCtx, "rental notification failed", err)
		_ = c.idempotency.Delete(ctx, rentalNotificationConsumer, eventID.String())
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) notifyOwner(ctx context.Context, rentalID uuid.UUID, logCtx context.Context) error {
	msg, err := c.repo.RentalEmail(ctx, rentalID)
	if err != nil {
		return err
	}
	if msg.To == "" {
		c.logg.Warn(logCtx, "owner has no email; rental notification skipped")
		return nil
	}
	if err := c.mailer.SendOwnerRentalEmail(ctx, *msg); err != nil {
		return err
	}
	c.logg.Info(logCtx, "owner notified of rental")
	return nil
}
