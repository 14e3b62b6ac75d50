package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"clinic-backend/models"
)

type KafkaProducer interface {
	SendMessage(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(broker string) (KafkaProducer, error) {
	if broker == "" {
		broker = "localhost:9092"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}

	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	return &kafkaProducer{writer: writer}, nil
}

func (k *kafkaProducer) SendMessage(ctx context.Context, topic string, key, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (k *kafkaProducer) Close() error {
	return k.writer.Close()
}

// NewEvent builds an event envelope with a fresh id. data may be nil.
func NewEvent(eventType string, entityID uint, data interface{}) (models.Event, error) {
	event := models.Event{
		ID:         uuid.NewString(),
		Event:      eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return event, fmt.Errorf("failed to marshal event data: %w", err)
		}
		event.Data = raw
	}
	return event, nil
}

// PublishEvent sends event keyed by its entity so that all events for one
// record land on the same partition in order.
func PublishEvent(ctx context.Context, producer KafkaProducer, topic string, event models.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	kind, _, _ := strings.Cut(event.Event, ".")
	key := []byte(fmt.Sprintf("%s:%d", kind, event.EntityID))
	return producer.SendMessage(ctx, topic, key, value)
}
