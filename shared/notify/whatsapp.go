package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// DefaultSender signs outgoing messages
const DefaultSender = "Get Inn Luxury Co-Living"

// FormatPhone strips non-digits and prefixes the 91 country code
func FormatPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if strings.HasPrefix(digits, "91") && len(digits) > 10 {
		return digits
	}
	return "91" + digits
}

// FormatMessage renders the WhatsApp text for an event
func FormatMessage(sender string, e Event) string {
	month := e.Month
	if key, err := models.ParseMonthKey(e.Month); err == nil {
		month = key.Label()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", sender)
	fmt.Fprintf(&b, "Dear %s,\n\n", e.Name)
	if e.Kind == KindPaymentConfirmed {
		b.WriteString("We confirm receipt of your rent payment:\n")
		fmt.Fprintf(&b, "• Amount: Rs.%d\n", e.Amount)
		fmt.Fprintf(&b, "• Month: %s\n", month)
		b.WriteString("• Status: Paid\n\n")
		fmt.Fprintf(&b, "Thank you for choosing %s.\n\n", sender)
	} else {
		b.WriteString("This is a gentle reminder regarding your pending rent payment:\n")
		fmt.Fprintf(&b, "• Amount Due: Rs.%d\n", e.Amount)
		fmt.Fprintf(&b, "• Month: %s\n", month)
		b.WriteString("• Status: Pending\n\n")
		b.WriteString("Please arrange the payment at your earliest convenience.\n\n")
		b.WriteString("If you have any concerns, feel free to contact us.\n\n")
	}
	b.WriteString("Best regards,\nManagement Team")
	return b.String()
}

// OutboundMessage is the body posted to the WhatsApp gateway
type OutboundMessage struct {
	EventID string `json:"event_id"`
	To      string `json:"to"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// WhatsAppClient delivers formatted messages to an HTTP gateway. Calls go
// through a circuit breaker so a down gateway fails fast.
type WhatsAppClient struct {
	endpoint   string
	sender     string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker

	mutex       sync.RWMutex
	lastSuccess time.Time
	lastError   error
	sent        int64
	failed      int64
}

// NewWhatsAppClient creates a client posting to endpoint
func NewWhatsAppClient(endpoint, sender string, breaker *utils.CircuitBreaker) *WhatsAppClient {
	if sender == "" {
		sender = DefaultSender
	}
	if breaker == nil {
		breaker = utils.NewCircuitBreaker("whatsapp", 5, 30*time.Second)
	}
	return &WhatsAppClient{
		endpoint: endpoint,
		sender:   sender,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: breaker,
	}
}

// Deliver formats and posts the event
func (c *WhatsAppClient) Deliver(ctx context.Context, event Event) error {
	msg := OutboundMessage{
		EventID: event.ID.String(),
		To:      FormatPhone(event.Phone),
		Channel: ChannelWhatsApp,
		Text:    FormatMessage(c.sender, event),
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, msg, event)
	})

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err != nil {
		c.failed++
		c.lastError = err
		return err
	}
	c.sent++
	c.lastSuccess = time.Now()
	c.lastError = nil
	return nil
}

func (c *WhatsAppClient) post(ctx context.Context, msg OutboundMessage, event Event) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Member-ID", event.MemberID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// Status reports delivery counters and the breaker state
func (c *WhatsAppClient) Status() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	status := map[string]interface{}{
		"endpoint":      c.endpoint,
		"circuit_state": string(c.breaker.GetState()),
		"sent":          c.sent,
		"failed":        c.failed,
		"last_success":  c.lastSuccess,
	}
	if c.lastError != nil {
		status["last_error"] = c.lastError.Error()
	}
	return status
}

// ResetCircuit closes the breaker after the gateway has recovered
func (c *WhatsAppClient) ResetCircuit() {
	c.breaker.Reset()
}
