package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes lifecycle events to a single topic, keyed by
// reservation id so one reservation's events stay ordered on a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.ReservationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ReservationID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	}

	logger.ExternalServiceCall("kafka", "WriteMessages", "topic", p.topic, "event_type", event.Type)
	err = p.writer.WriteMessages(ctx, msg)
	logger.ExternalServiceResult("kafka", "WriteMessages", err, "topic", p.topic, "reservation_id", event.ReservationID)
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs events. It is used when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event domain.ReservationEvent) error {
	logger.Info("Lifecycle event",
		"event_type", event.Type,
		"event_id", event.ID,
		"reservation_id", event.ReservationID,
		"renter_id", event.RenterID,
		"asset_id", event.AssetID,
		"status", event.Status,
	)
	return nil
}
