package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events on a NATS subject
type NATSNotifier struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

// NewNATSNotifier connects to url and publishes on NATSSubject
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("coliving-rental"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSNotifier{conn: conn, pub: conn, subject: NATSSubject}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := event.Encode()
	if err != nil {
		return err
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

// Close drains pending publishes and closes the connection
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
