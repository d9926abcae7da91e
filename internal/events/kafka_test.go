package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservation-engine/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() domain.ReservationEvent {
	at := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	r := &domain.Reservation{
		ID:        uuid.New(),
		AssetID:   100,
		RenterID:  1,
		OwnerID:   10,
		StartTime: at,
		EndTime:   at.Add(72 * time.Hour),
		Status:    domain.ReservationStatusActive,
		CreatedAt: at.Add(-24 * time.Hour),
	}
	return domain.NewReservationEvent(domain.EventReservationActivated, r, at)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "reservation-events"}
	ev := testEvent()

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, ev.ReservationID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "reservation.activated", string(msg.Headers[0].Value))

	var decoded domain.ReservationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ReservationID, decoded.ReservationID)
	assert.Equal(t, int32(1), decoded.RenterID)
	assert.Equal(t, int32(100), decoded.AssetID)
	assert.True(t, ev.StartTime.Equal(decoded.StartTime))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaPublisher{writer: w, topic: "reservation-events"}

	err := p.Publish(context.Background(), testEvent())
	assert.EqualError(t, err, "leader not available")
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), testEvent()))
}
