package enums

import "fmt"

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateBookingRequest OutboxAggregateType = "booking_request"
	AggregateBookingMatch   OutboxAggregateType = "booking_match"
	AggregateRental         OutboxAggregateType = "rental"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBookingRequest,
	AggregateBookingMatch,
	AggregateRental,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to outbox_events.event_type.
type OutboxEventType string

const (
	EventMatchCreated  OutboxEventType = "match_created"
	EventMatchAccepted OutboxEventType = "match_accepted"
	EventMatchDeclined OutboxEventType = "match_declined"
	EventMatchExpired  OutboxEventType = "match_expired"
	EventRentalCreated OutboxEventType = "rental_created"
	EventDepositPaid   OutboxEventType = "deposit_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMatchCreated,
	EventMatchAccepted,
	EventMatchDeclined,
	EventMatchExpired,
	EventRentalCreated,
	EventDepositPaid,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why an event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
