package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/dbtest"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

func TestEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	matchID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventMatchCreated,
			AggregateType: enums.AggregateBookingMatch,
			AggregateID:   matchID,
			Data:          payloads.MatchCreatedEvent{MatchID: matchID, PointsReserved: 90},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventMatchCreated, rows[0].EventType)
	require.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)

	var data payloads.MatchCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, 90, data.PointsReserved)
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.OutboxEventType("bogus"),
		AggregateType: enums.AggregateRental,
		AggregateID:   uuid.New(),
	}))
	require.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:     enums.EventRentalCreated,
		AggregateType: enums.AggregateRental,
	}))
}

func TestRepositoryLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{EventType: enums.EventMatchExpired, AggregateType: enums.AggregateBookingMatch, AggregateID: uuid.New(), Payload: []byte(`{}`)}
	second := models.OutboxEvent{EventType: enums.EventDepositPaid, AggregateType: enums.AggregateBookingRequest, AggregateID: uuid.New(), Payload: []byte(`{}`)}
	require.NoError(t, repo.Insert(conn, &first))
	require.NoError(t, repo.Insert(conn, &second))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, first.ID))
	require.NoError(t, repo.MarkTerminalTx(conn, second.ID, errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	row := models.OutboxEvent{EventType: enums.EventRentalCreated, AggregateType: enums.AggregateRental, AggregateID: uuid.New(), Payload: []byte(`{}`)}
	require.NoError(t, repo.Insert(conn, &row))
	require.NoError(t, repo.MarkFailedTx(conn, row.ID, errors.New("pubsub unavailable")))

	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	require.Equal(t, "pubsub unavailable", *stored.LastError)
}
