package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/utils"
)

// EventPublisher sends domain events to Kafka in the background. A nil
// producer turns publishing off.
type EventPublisher struct {
	kafka utils.KafkaProducer
	topic string
	log   *logger.Logger
}

func NewEventPublisher(kafka utils.KafkaProducer, topic string, log *logger.Logger) *EventPublisher {
	return &EventPublisher{kafka: kafka, topic: topic, log: log}
}

func (p *EventPublisher) Publish(eventType string, entityID uint, data interface{}) {
	if p == nil || p.kafka == nil {
		return
	}
	go p.send(eventType, entityID, data)
}

func (p *EventPublisher) send(eventType string, entityID uint, data interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fields := logrus.Fields{"event": eventType, "entity_id": entityID}
	event, err := utils.NewEvent(eventType, entityID, data)
	if err != nil {
		p.log.WithFields(fields).WithError(err).Error("failed to build Kafka event")
		return
	}
	if err := utils.PublishEvent(ctx, p.kafka, p.topic, event); err != nil {
		p.log.WithFields(fields).WithError(err).Error("failed to send Kafka message")
	}
}
