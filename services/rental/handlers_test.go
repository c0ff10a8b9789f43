package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/ledger"
	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
	"github.com/pavitra93/go-coliving-admin/shared/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) sent() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

type testServer struct {
	router   *gin.Engine
	token    string
	members  *store.MemberStore
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := store.NewGormRepository(db)
	require.NoError(t, repo.Migrate())

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	log := logrus.NewEntry(l)

	notifier := &recordingNotifier{}
	members := store.NewMemberStore(repo, occupancy.NewResolver(inventory.Default()), nil, nil, log)

	auth, err := middleware.NewAuthMiddleware("rental-test-secret-123")
	require.NoError(t, err)
	token, _, err := auth.IssueToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)

	return &testServer{
		router:   setupRouter(ledger.NewService(repo, notifier, log), auth),
		token:    token,
		members:  members,
		notifier: notifier,
	}
}

func (s *testServer) addMember(t *testing.T, phone, room string, shareType inventory.ShareType, amount int64) *models.Member {
	t.Helper()
	m, err := s.members.Create(context.Background(), store.CreateInput{
		FullName:      "Member " + phone,
		Gender:        models.GenderFemale,
		Age:           24,
		PhoneNumber:   phone,
		Email:         phone + "@example.com",
		ParentsNumber: "9123456789",
		Address:       "HSR Layout",
		Occupation:    "Engineer",
		Amount:        amount,
		RoomNumber:    room,
		RoomType:      shareType,
	})
	require.NoError(t, err)
	return m
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestRentalRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/rental/statistics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdatePaymentAndStatistics(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000001", "101", inventory.ShareSingle, 9000)
	s.addMember(t, "9800000002", "201", inventory.ShareDouble, 7000)

	w := s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 3, "is_paid": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result ledger.Result
	env := decode(t, w, &result)
	assert.True(t, env.Success)
	assert.Equal(t, ledger.OutcomeUpdated, result.Outcome)
	assert.Equal(t, "2024-3", result.Month)
	assert.True(t, result.Record.IsPaid)
	require.NotNil(t, result.Record.PaidAt)
	assert.Equal(t, "admin-1", result.Record.UpdatedBy)

	events := s.notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindPaymentConfirmed, events[0].Kind)
	assert.Equal(t, a.ID, events[0].MemberID)

	// repeating the same value changes nothing and sends nothing
	w = s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 3, "is_paid": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w, &result)
	assert.Equal(t, ledger.OutcomeNoop, result.Outcome)
	assert.Equal(t, "Payment status already up to date", env.Message)
	assert.Len(t, s.notifier.sent(), 1)

	w = s.do(http.MethodGet, "/rental/statistics?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats ledger.Stats
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, int64(16000), stats.TotalAmount)
	assert.Equal(t, int64(9000), stats.PaidAmount)
	assert.Equal(t, int64(7000), stats.UnpaidAmount)
	assert.Equal(t, 1, stats.PaidMembers)
	assert.InDelta(t, 9000.0/16000.0, stats.CollectionRate, 1e-9)
	assert.Equal(t, 1, stats.RoomTypeStats[inventory.ShareSingle].Paid)

	// another month is untouched
	w = s.do(http.MethodGet, "/rental/statistics?year=2024&month=4", nil)
	decode(t, w, &stats)
	assert.Equal(t, 0, stats.PaidMembers)
}

func TestMarkUnpaidClearsPaidAt(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000003", "102", inventory.ShareSingle, 9000)

	s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 5, "is_paid": true,
	})
	w := s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 5, "is_paid": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result ledger.Result
	decode(t, w, &result)
	assert.Equal(t, ledger.OutcomeUpdated, result.Outcome)
	assert.False(t, result.Record.IsPaid)
	assert.Nil(t, result.Record.PaidAt)
	assert.Len(t, s.notifier.sent(), 1)
}

func TestUpdatePaymentRejections(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000004", "103", inventory.ShareSingle, 9000)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing is_paid", gin.H{"member_id": a.ID.String(), "year": 2024, "month": 3}, http.StatusBadRequest},
		{"bad id", gin.H{"member_id": "nope", "year": 2024, "month": 3, "is_paid": true}, http.StatusBadRequest},
		{"month 13", gin.H{"member_id": a.ID.String(), "year": 2024, "month": 13, "is_paid": true}, http.StatusBadRequest},
		{"year out of range", gin.H{"member_id": a.ID.String(), "year": 1999, "month": 3, "is_paid": true}, http.StatusBadRequest},
		{"unknown member", gin.H{"member_id": "7f6b2a52-3f39-4c55-9d0e-1c1d3f1b2a10", "year": 2024, "month": 3, "is_paid": true}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/rental/update-payment", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, s.notifier.sent())
}

func TestSendReminderAndPaymentStatus(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000005", "104", inventory.ShareSingle, 9000)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/rental/send-reminder", gin.H{
			"member_id": a.ID.String(), "year": 2024, "month": 6,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	events := s.notifier.sent()
	require.Len(t, events, 2)
	assert.Equal(t, notify.KindPaymentReminder, events[1].Kind)
	assert.Equal(t, "2024-6", events[1].Month)

	w := s.do(http.MethodGet, "/rental/payment-status?member_id="+a.ID.String()+"&year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Month  string               `json:"month"`
		Record models.PaymentRecord `json:"record"`
	}
	decode(t, w, &body)
	assert.Equal(t, "2024-6", body.Month)
	assert.False(t, body.Record.IsPaid)
	assert.Len(t, body.Record.RemindersSent, 2)
}

func TestSendReminderForPaidMonthIsRejected(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000008", "106", inventory.ShareSingle, 9000)

	w := s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 7, "is_paid": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/rental/send-reminder", gin.H{
		"member_id": a.ID.String(), "year": 2024, "month": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	events := s.notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindPaymentConfirmed, events[0].Kind)
}

func TestRentalDataListsActiveMembers(t *testing.T) {
	s := newTestServer(t)
	a := s.addMember(t, "9800000006", "105", inventory.ShareSingle, 9000)
	b := s.addMember(t, "9800000007", "202", inventory.ShareDouble, 7000)

	inactive := models.MemberStatusInactive
	_, err := s.members.Update(context.Background(), b.ID, store.UpdatePatch{Status: &inactive})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/rental/rental-data?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report ledger.Report
	decode(t, w, &report)
	assert.Equal(t, "2024-3", report.Month)
	require.Len(t, report.Members, 1)
	assert.Equal(t, a.ID, report.Members[0].ID)
	assert.False(t, report.Members[0].PaymentStatus.IsPaid)
	assert.Equal(t, 1, report.Statistics.TotalMembers)

	// inactive members cannot have payments recorded
	w = s.do(http.MethodPost, "/rental/update-payment", gin.H{
		"member_id": b.ID.String(), "year": 2024, "month": 3, "is_paid": true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestRentalDataMonthQuery(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/rental/rental-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report ledger.Report
	decode(t, w, &report)
	assert.Equal(t, models.MonthKeyOf(time.Now()).String(), report.Month)

	w = s.do(http.MethodGet, "/rental/rental-data?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/rental/rental-data?year=2024&month=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
