package registry

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.MatchesTopic == "" {
		return nil, fmt.Errorf("matches topic is required")
	}
	if cfg.RentalsTopic == "" {
		return nil, fmt.Errorf("rentals topic is required")
	}
	if cfg.PaymentsTopic == "" {
		return nil, fmt.Errorf("payments topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	matchesTopic := cfg.MatchesTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventMatchCreated,
			AggregateType:  enums.AggregateBookingMatch,
			Topic:          matchesTopic,
			PayloadFactory: func() interface{} { return &payloads.MatchCreatedEvent{} },
		},
		{
			EventType:      enums.EventMatchAccepted,
			AggregateType:  enums.AggregateBookingMatch,
			Topic:          matchesTopic,
			PayloadFactory: func() interface{} { return &payloads.MatchDecisionEvent{} },
		},
		{
			EventType:      enums.EventMatchDeclined,
			AggregateType:  enums.AggregateBookingMatch,
			Topic:          matchesTopic,
			PayloadFactory: func() interface{} { return &payloads.MatchDecisionEvent{} },
		},
		{
			EventType:      enums.EventMatchExpired,
			AggregateType:  enums.AggregateBookingMatch,
			Topic:          matchesTopic,
			PayloadFactory: func() interface{} { return &payloads.MatchExpiredEvent{} },
		},
	} {
		reg.register(desc)
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventRentalCreated,
		AggregateType:  enums.AggregateRental,
		Topic:          cfg.RentalsTopic,
		PayloadFactory: func() interface{} { return &payloads.RentalCreatedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventDepositPaid,
		AggregateType:  enums.AggregateBookingRequest,
		Topic:          cfg.PaymentsTopic,
		PayloadFactory: func() interface{} { return &payloads.DepositPaidEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, _, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := envelope.DecodeData(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
