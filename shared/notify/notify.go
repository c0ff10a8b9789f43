package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind of rent notification
type Kind string

const (
	KindPaymentConfirmed Kind = "payment_confirmed"
	KindPaymentReminder  Kind = "payment_reminder"
)

// ChannelWhatsApp is the only delivery channel the facility uses
const ChannelWhatsApp = "whatsapp"

// Topic and subject the notifier service listens on
const (
	KafkaTopic  = "rent-notifications"
	NATSSubject = "rent.notifications"
)

// Event carries the structured parameters of a notification. Message text
// is produced by the delivering service.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	MemberID   uuid.UUID `json:"member_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Amount     int64     `json:"amount"`
	Month      string    `json:"month"`
	IsPaid     bool      `json:"is_paid"`
	Channel    string    `json:"channel"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Encode serializes the event for a broker
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification event: %w", err)
	}
	return data, nil
}

// Decode parses an event produced by Encode
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal notification event: %w", err)
	}
	return e, nil
}

// Notifier hands events to a delivery collaborator
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier only logs events, for development without a broker
type LogNotifier struct {
	Log *logrus.Entry
}

func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Log.WithFields(logrus.Fields{
		"kind":      event.Kind,
		"member_id": event.MemberID,
		"month":     event.Month,
		"amount":    event.Amount,
	}).Info("Rent notification")
	return nil
}
