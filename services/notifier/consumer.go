package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type deliverer interface {
	Deliver(ctx context.Context, event notify.Event) error
}

type deadLetterRecorder interface {
	Record(ctx context.Context, event notify.Event, cause error) (*models.FailedNotification, error)
}

// Consumer delivers rent notification events and dead-letters failures
type Consumer struct {
	client deliverer
	dead   deadLetterRecorder
	log    *logrus.Entry

	retryDelay    time.Duration
	maxRetryDelay time.Duration

	delivered    int64
	deadLettered int64
	malformed    int64
}

func NewConsumer(client deliverer, dead deadLetterRecorder, log *logrus.Entry) *Consumer {
	return &Consumer{
		client:        client,
		dead:          dead,
		log:           log,
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
	}
}

// NewKafkaReader reads the notification topic as part of the notifier group
func NewKafkaReader(broker string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          notify.KafkaTopic,
		GroupID:        "notifier-service",
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
}

// Handle delivers one encoded event. Only a failure to dead-letter is
// returned; delivery failures are stored for the retry consumer.
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	event, err := notify.Decode(data)
	if err != nil {
		atomic.AddInt64(&c.malformed, 1)
		c.log.WithError(err).Warn("Skipping malformed notification event")
		return nil
	}

	entry := c.log.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"kind":      event.Kind,
		"member_id": event.MemberID,
		"month":     event.Month,
	})

	if err := c.client.Deliver(ctx, event); err != nil {
		entry.WithError(err).Warn("Notification delivery failed, storing for retry")
		if _, dlqErr := c.dead.Record(ctx, event, err); dlqErr != nil {
			metrics.Notification(string(event.Kind), "lost")
			return fmt.Errorf("failed to store failed notification %s: %w", event.ID, dlqErr)
		}
		atomic.AddInt64(&c.deadLettered, 1)
		metrics.Notification(string(event.Kind), "dead_lettered")
		return nil
	}

	atomic.AddInt64(&c.delivered, 1)
	metrics.Notification(string(event.Kind), "delivered")
	entry.Info("Notification delivered")
	return nil
}

// RunKafka consumes until ctx is cancelled. Offsets are committed only
// after the event was delivered or dead-lettered. Commits are cumulative
// per partition, so a message that cannot be handled is retried in place
// and nothing after it is fetched.
func (c *Consumer) RunKafka(ctx context.Context, reader messageReader) {
	c.log.Info("Starting rent notification consumer...")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.log.WithError(err).Error("Error reading notification message")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if !c.handleUntilDone(ctx, msg) {
			return
		}
		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Error("Failed to commit notification offset")
		}
	}
}

// handleUntilDone retries Handle with a doubling backoff. It returns false
// when ctx ended before the message was handled.
func (c *Consumer) handleUntilDone(ctx context.Context, msg kafka.Message) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := c.Handle(ctx, msg.Value)
		if err == nil {
			return true
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"attempt":   attempt,
		}).Error("Notification not handled, retrying before reading further")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		if delay *= 2; delay > c.maxRetryDelay {
			delay = c.maxRetryDelay
		}
	}
}

// SubscribeNATS handles events published on the NATS subject
func (c *Consumer) SubscribeNATS(conn *nats.Conn) (*nats.Subscription, error) {
	return conn.QueueSubscribe(notify.NATSSubject, "notifier-service", func(msg *nats.Msg) {
		if err := c.Handle(context.Background(), msg.Data); err != nil {
			c.log.WithError(err).Error("Notification lost")
		}
	})
}

// Stats returns counters since start
func (c *Consumer) Stats() map[string]int64 {
	return map[string]int64{
		"delivered":     atomic.LoadInt64(&c.delivered),
		"dead_lettered": atomic.LoadInt64(&c.deadLettered),
		"malformed":     atomic.LoadInt64(&c.malformed),
	}
}
