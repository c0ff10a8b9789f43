package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned when the producer buffer cannot take more events
var ErrQueueFull = errors.New("notification queue full, event dropped")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events to Kafka through a worker pool
type KafkaNotifier struct {
	writer       messageWriter
	events       chan Event
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once
	log          *logrus.Entry
}

// NewKafkaNotifier creates a producer for broker and starts its workers
func NewKafkaNotifier(broker string, log *logrus.Entry) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return newKafkaNotifier(writer, 256, 4, log)
}

func newKafkaNotifier(writer messageWriter, buffer, workers int, log *logrus.Entry) *KafkaNotifier {
	kn := &KafkaNotifier{
		writer:       writer,
		events:       make(chan Event, buffer),
		workerCount:  workers,
		shutdownChan: make(chan struct{}),
		log:          log,
	}
	for i := 0; i < kn.workerCount; i++ {
		kn.wg.Add(1)
		go kn.worker(i)
	}
	kn.log.Infof("Started %d notification workers", kn.workerCount)
	return kn
}

func (kn *KafkaNotifier) worker(id int) {
	defer kn.wg.Done()

	for {
		select {
		case event := <-kn.events:
			kn.send(id, event)
		case <-kn.shutdownChan:
			// drain what is already queued
			for {
				select {
				case event := <-kn.events:
					kn.send(id, event)
				default:
					return
				}
			}
		}
	}
}

func (kn *KafkaNotifier) send(id int, event Event) {
	if err := kn.sendSync(event); err != nil {
		kn.log.WithError(err).WithField("worker", id).Error("Failed to send notification event")
	}
}

// Notify queues the event without blocking
func (kn *KafkaNotifier) Notify(_ context.Context, event Event) error {
	select {
	case <-kn.shutdownChan:
		return fmt.Errorf("notification producer is closed")
	default:
	}

	select {
	case kn.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (kn *KafkaNotifier) sendSync(event Event) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kn.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write notification event to Kafka: %w", err)
	}
	return nil
}

// Message builds the Kafka message for an event, keyed by member so events
// of one member stay ordered
func Message(event Event) (kafka.Message, error) {
	value, err := event.Encode()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.MemberID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Kind)},
			{Key: "member_id", Value: []byte(event.MemberID.String())},
		},
	}, nil
}

// Close stops the workers after the queue drains and closes the writer
func (kn *KafkaNotifier) Close() error {
	var err error
	kn.closeOnce.Do(func() {
		kn.log.Info("Initiating graceful shutdown of notification producer")
		close(kn.shutdownChan)
		kn.wg.Wait()
		if cerr := kn.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
		}
	})
	return err
}
