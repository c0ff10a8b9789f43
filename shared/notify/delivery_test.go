package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "919876543210", FormatPhone("9876543210"))
	assert.Equal(t, "919876543210", FormatPhone("+91 98765-43210"))
	assert.Equal(t, "919123456789", FormatPhone("9123456789"))
}

func TestFormatMessage(t *testing.T) {
	e := sampleEvent()
	msg := FormatMessage("Test House", e)
	assert.Contains(t, msg, "*Test House*")
	assert.Contains(t, msg, "Dear Asha,")
	assert.Contains(t, msg, "Amount: Rs.5000")
	assert.Contains(t, msg, "Month: March 2024")
	assert.Contains(t, msg, "Status: Paid")

	e.Kind = KindPaymentReminder
	e.IsPaid = false
	msg = FormatMessage("Test House", e)
	assert.Contains(t, msg, "gentle reminder")
	assert.Contains(t, msg, "Amount Due: Rs.5000")
	assert.Contains(t, msg, "Status: Pending")
}

func TestWhatsAppClientDeliver(t *testing.T) {
	var got OutboundMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewWhatsAppClient(srv.URL, "", nil)
	e := sampleEvent()
	require.NoError(t, client.Deliver(context.Background(), e))

	assert.Equal(t, "919876543210", got.To)
	assert.Equal(t, ChannelWhatsApp, got.Channel)
	assert.Equal(t, e.ID.String(), got.EventID)
	assert.True(t, strings.HasPrefix(got.Text, "*"+DefaultSender+"*"))

	status := client.Status()
	assert.Equal(t, int64(1), status["sent"])
	assert.Equal(t, "closed", status["circuit_state"])
}

func TestWhatsAppClientOpensCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWhatsAppClient(srv.URL, "", utils.NewCircuitBreaker("test", 2, time.Hour))
	ctx := context.Background()

	assert.Error(t, client.Deliver(ctx, sampleEvent()))
	assert.Error(t, client.Deliver(ctx, sampleEvent()))
	err := client.Deliver(ctx, sampleEvent())
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	client.ResetCircuit()
	assert.Equal(t, "closed", client.Status()["circuit_state"])
}

func newDeadLetters(t *testing.T) *DeadLetters {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	d := NewDeadLetters(db)
	require.NoError(t, d.Migrate())
	return d
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Minute, RetryDelay(1))
	assert.Equal(t, 2*time.Minute, RetryDelay(2))
	assert.Equal(t, 16*time.Minute, RetryDelay(5))
	assert.Equal(t, time.Minute, RetryDelay(0))
}

func TestDeadLettersLifecycle(t *testing.T) {
	d := newDeadLetters(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return start }

	e := sampleEvent()
	failed, err := d.Record(ctx, e, errors.New("gateway down"))
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, failed.Status)
	assert.Equal(t, e.ID.String(), failed.OriginalEventID)

	decoded, err := Decode([]byte(failed.Payload))
	require.NoError(t, err)
	assert.Equal(t, e.MemberID, decoded.MemberID)

	// not due until a minute has passed
	due, err := d.Due(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	d.now = func() time.Time { return start.Add(2 * time.Minute) }
	due, err = d.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, d.Reschedule(ctx, &due[0], errors.New("still down")))
	assert.Equal(t, 1, due[0].RetryCount)
	require.NotNil(t, due[0].NextRetryAt)
	assert.True(t, due[0].NextRetryAt.Equal(start.Add(3*time.Minute)))

	require.NoError(t, d.Resolve(ctx, &due[0]))
	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DeadLetterStats{Resolved: 1}, stats)
}

func TestDeadLettersGiveUpAfterMaxRetries(t *testing.T) {
	d := newDeadLetters(t)
	ctx := context.Background()

	failed, err := d.Record(ctx, sampleEvent(), errors.New("gateway down"))
	require.NoError(t, err)

	for i := 0; i < MaxRetries; i++ {
		require.NoError(t, d.Reschedule(ctx, failed, errors.New("down")))
	}
	assert.Equal(t, models.NotificationPermanentlyFailed, failed.Status)
	assert.Nil(t, failed.NextRetryAt)
	assert.Contains(t, failed.ErrorMessage, "Max retries reached")

	other, err := d.Record(ctx, sampleEvent(), errors.New("bad payload"))
	require.NoError(t, err)
	require.NoError(t, d.Abandon(ctx, other, "undecodable"))

	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.PermanentlyFailed)
	assert.Equal(t, int64(0), stats.Pending)
}
