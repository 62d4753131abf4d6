package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is written on every new outbox row.
const EnvelopeVersion = 1

// ActorRef is set for owner and admin decisions; cron and matching runs leave it nil.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every event payload stored in outbox_events and
// published to Pub/Sub.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored or published envelope and its event id.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Version > EnvelopeVersion {
		return envelope, uuid.Nil, fmt.Errorf("unsupported envelope version %d", envelope.Version)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return envelope, uuid.Nil, fmt.Errorf("invalid event id: %w", err)
	}
	return envelope, eventID, nil
}

// DecodeData unmarshals the event payload into dst. A missing or null
// payload is an error.
func (e PayloadEnvelope) DecodeData(dst any) error {
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("payload missing")
	}
	return json.Unmarshal(trimmed, dst)
}
