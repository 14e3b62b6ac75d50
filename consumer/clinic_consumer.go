package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/monitoring"
)

// Directory is the part of the directory service the consumer drives.
type Directory interface {
	IndexEntry(ctx context.Context, entry models.DirectoryEntry) error
	RemoveEntry(ctx context.Context, kind string, id uint) error
}

// ClinicConsumer applies patient and doctor events from Kafka to the
// directory index. Appointment events are acknowledged and skipped.
type ClinicConsumer struct {
	directory Directory
	reader    *kafka.Reader
	log       *logrus.Entry
	shutdown  chan struct{}
	done      sync.WaitGroup
	// retry bounds the backoff between attempts at the same message.
	retryMin time.Duration
	retryMax time.Duration
}

func NewClinicConsumer(directory Directory, broker, topic, groupID string, log *logger.Logger) *ClinicConsumer {
	return &ClinicConsumer{
		directory: directory,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{broker},
			Topic:   topic,
			GroupID: groupID,
			MaxWait: 10 * time.Second,
		}),
		log:      log.WithComponent("consumer"),
		shutdown: make(chan struct{}),
		retryMin: time.Second,
		retryMax: 30 * time.Second,
	}
}

func (c *ClinicConsumer) Start(ctx context.Context) {
	c.log.WithField("topic", c.reader.Config().Topic).Info("starting Kafka consumer")

	c.done.Add(1)
	go func() {
		defer c.done.Done()
		for {
			select {
			case <-c.shutdown:
				return
			case <-ctx.Done():
				return
			default:
				c.processMessage(ctx)
			}
		}
	}()
}

func (c *ClinicConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		c.log.WithError(err).Error("error closing Kafka reader")
	}
	c.done.Wait()
}

// processMessage commits the offset only after the event was applied.
// The reader hands out the next message regardless of commits, so a failed
// event is retried in place until it succeeds or the consumer stops.
func (c *ClinicConsumer) processMessage(ctx context.Context) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return
		}
		c.log.WithError(err).Warn("Kafka read error (will retry)")
		c.sleep(ctx, 5*time.Second)
		return
	}

	if !c.applyWithRetry(ctx, msg.Value, msg.Offset) {
		// Stopped before the event was applied; leave it uncommitted.
		return
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.WithError(err).Warn("failed to commit offset")
	}
}

// applyWithRetry reports whether the message was applied. It returns false
// only when ctx is done or Stop was called.
func (c *ClinicConsumer) applyWithRetry(ctx context.Context, value []byte, offset int64) bool {
	backoff := c.retryMin
	for attempt := 1; ; attempt++ {
		err := c.HandleMessage(ctx, value)
		if err == nil {
			return true
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"offset":  offset,
			"attempt": attempt,
			"backoff": backoff.String(),
		}).Error("failed to apply event, retrying")

		if !c.sleep(ctx, backoff) {
			return false
		}
		backoff *= 2
		if backoff > c.retryMax {
			backoff = c.retryMax
		}
	}
}

// sleep waits for d and reports false if the consumer was stopped first.
func (c *ClinicConsumer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.shutdown:
		return false
	}
}

// HandleMessage decodes one message and applies it. Undecodable messages
// are dropped without error so they do not block the partition.
func (c *ClinicConsumer) HandleMessage(ctx context.Context, value []byte) error {
	var event models.Event
	if err := json.Unmarshal(value, &event); err != nil {
		c.log.WithError(err).Warn("dropping undecodable Kafka message")
		monitoring.EventsConsumed.WithLabelValues("unknown", "dropped").Inc()
		return nil
	}
	return c.HandleEvent(ctx, event)
}

func (c *ClinicConsumer) HandleEvent(ctx context.Context, event models.Event) error {
	fields := logrus.Fields{"event": event.Event, "entity_id": event.EntityID, "event_id": event.ID}

	var err error
	result := "applied"
	switch event.Event {
	case models.EventPatientCreated, models.EventPatientUpdated,
		models.EventDoctorCreated, models.EventDoctorUpdated:
		entry, decodeErr := decodeEntry(event)
		if decodeErr != nil {
			c.log.WithFields(fields).WithError(decodeErr).Warn("dropping event with malformed payload")
			monitoring.EventsConsumed.WithLabelValues(event.Event, "dropped").Inc()
			return nil
		}
		err = c.directory.IndexEntry(ctx, entry)
	case models.EventPatientDeleted, models.EventDoctorDeleted:
		kind, _, _ := strings.Cut(event.Event, ".")
		err = c.directory.RemoveEntry(ctx, kind, event.EntityID)
	default:
		result = "ignored"
	}
	if err != nil {
		result = "failed"
	}
	monitoring.EventsConsumed.WithLabelValues(event.Event, result).Inc()

	if err != nil {
		return err
	}
	c.log.WithFields(fields).WithField("result", result).Debug("processed event")
	return nil
}

func decodeEntry(event models.Event) (models.DirectoryEntry, error) {
	var entry models.DirectoryEntry
	if err := json.Unmarshal(event.Data, &entry); err != nil {
		return entry, fmt.Errorf("failed to decode %s payload: %w", event.Event, err)
	}
	if entry.ID == 0 {
		entry.ID = event.EntityID
	}
	if entry.Kind == "" {
		entry.Kind, _, _ = strings.Cut(event.Event, ".")
	}
	return entry, nil
}
