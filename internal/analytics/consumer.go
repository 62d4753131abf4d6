package analytics

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
)

const analyticsConsumerName = "matching-analytics"

type rowWriter interface {
	Insert(ctx context.Context, row MatchingEventRow) error
	Flush(ctx context.Context) error
}

type processedStore interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID string) error
}

// Consumer streams matching lifecycle events from the domain subscription into BigQuery.
type Consumer struct {
	writer       rowWriter
	subscription *pubsub.Subscriber
	idempotency  processedStore
	logg         *logger.Logger
}

func NewConsumer(writer rowWriter, subscription *pubsub.Subscriber, manager processedStore, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, fmt.Errorf("analytics writer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		writer:       writer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run receives messages until ctx is canceled, then flushes buffered rows.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg.ID, msg.Data, msg.Attributes) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	flushCtx := context.WithoutCancel(ctx)
	if flushErr := c.writer.Flush(flushCtx); flushErr != nil {
		c.logg.Error(flushCtx, "failed to flush analytics rows", flushErr)
	}
	return err
}

// handle reports whether the message should be acked.
func (c *Consumer) handle(ctx context.Context, messageID string, data []byte, attrs map[string]string) bool {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return true
	}

	envelope, eventID, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}

	row, err := buildRow(messageMeta{
		EventType:     eventType,
		AggregateType: attrs["aggregate_type"],
		AggregateID:   attrs["aggregate_id"],
	}, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build matching row", err)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	if err := c.writer.Insert(ctx, *row); err != nil {
		c.logg.Error(logCtx, "failed to insert matching row", err)
		_ = c.idempotency.Delete(ctx, analyticsConsumerName, eventID.String())
		return false
	}

	c.logg.Info(logCtx, "matching event ingested")
	return true
}
