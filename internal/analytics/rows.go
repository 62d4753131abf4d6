package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

// MatchingEventRow mirrors the matching_events BigQuery schema.
type MatchingEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	AggregateType string             `bigquery:"aggregate_type"`
	AggregateID   string             `bigquery:"aggregate_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	BookingID     *string            `bigquery:"booking_id"`
	MatchID       *string            `bigquery:"match_id"`
	OwnerID       *string            `bigquery:"owner_id"`
	RentalID      *string            `bigquery:"rental_id"`
	Status        *string            `bigquery:"status"`
	Points        *int64             `bigquery:"points"`
	AmountCents   *int64             `bigquery:"amount_cents"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// messageMeta carries the Pub/Sub attributes set by the outbox publisher.
type messageMeta struct {
	EventType     enums.OutboxEventType
	AggregateType string
	AggregateID   string
}

func buildRow(meta messageMeta, envelope outbox.PayloadEnvelope) (*MatchingEventRow, error) {
	row := &MatchingEventRow{
		EventID:       envelope.EventID,
		EventType:     string(meta.EventType),
		AggregateType: meta.AggregateType,
		AggregateID:   meta.AggregateID,
		OccurredAt:    envelope.OccurredAt.UTC(),
	}
	if len(envelope.Data) > 0 {
		row.Payload = cbigquery.NullJSON{Valid: true, JSONVal: string(envelope.Data)}
	}

	switch meta.EventType {
	case enums.EventMatchCreated:
		var p payloads.MatchCreatedEvent
		if err := decode(envelope.Data, &p); err != nil {
			return nil, err
		}
		row.MatchID = uuidPtr(p.MatchID)
		row.BookingID = uuidPtr(p.BookingID)
		row.OwnerID = uuidPtr(p.OwnerID)
		row.Points = int64Ptr(int64(p.PointsReserved))
		row.AmountCents = int64Ptr(p.OwnerTotalCents)
		row.Status = stringPtr(string(enums.MatchStatusPendingOwner))
	case enums.EventMatchAccepted, enums.EventMatchDeclined:
		var p payloads.MatchDecisionEvent
		if err := decode(envelope.Data, &p); err != nil {
			return nil, err
		}
		row.MatchID = uuidPtr(p.MatchID)
		row.BookingID = uuidPtr(p.BookingID)
		row.OwnerID = uuidPtr(p.OwnerID)
		row.Status = stringPtr(string(p.Status))
	case enums.EventMatchExpired:
		var p payloads.MatchExpiredEvent
		if err := decode(envelope.Data, &p); err != nil {
			return nil, err
		}
		row.MatchID = uuidPtr(p.MatchID)
		row.BookingID = uuidPtr(p.BookingID)
		row.OwnerID = uuidPtr(p.OwnerID)
		row.Points = int64Ptr(int64(p.PointsReleased))
		row.Status = stringPtr(string(enums.MatchStatusExpired))
	case enums.EventRentalCreated:
		var p payloads.RentalCreatedEvent
		if err := decode(envelope.Data, &p); err != nil {
			return nil, err
		}
		row.RentalID = uuidPtr(p.RentalID)
		row.MatchID = uuidPtr(p.MatchID)
		row.BookingID = uuidPtr(p.BookingID)
		row.AmountCents = int64Ptr(p.RentalAmountCents)
	case enums.EventDepositPaid:
		var p payloads.DepositPaidEvent
		if err := decode(envelope.Data, &p); err != nil {
			return nil, err
		}
		row.BookingID = uuidPtr(p.BookingID)
		row.AmountCents = int64Ptr(p.DepositPaidCents)
	default:
		return nil, fmt.Errorf("unsupported event type %q", meta.EventType)
	}
	return row, nil
}

func decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("payload missing")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}
