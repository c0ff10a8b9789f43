package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/notify"
)

// Repository is the slice of the persistence collaborator the ledger needs
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindActive(ctx context.Context) ([]models.Member, error)
	// UpdateLedger writes the ledger only if the stored version still equals
	// expectedVersion, failing with apperr.ErrConcurrentModification otherwise
	UpdateLedger(ctx context.Context, id uuid.UUID, ledger models.Ledger, expectedVersion int64) error
}

// Service applies ledger transitions to stored members
type Service struct {
	repo     Repository
	notifier notify.Notifier
	log      *logrus.Entry
	now      func() time.Time
}

// NewService creates a ledger service
func NewService(repo Repository, notifier notify.Notifier, log *logrus.Entry) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log.WithField("component", "ledger"),
		now:      time.Now,
	}
}

// Result of a SetPaid call
type Result struct {
	MemberID uuid.UUID            `json:"member_id"`
	Month    string               `json:"month"`
	Record   models.PaymentRecord `json:"record"`
	Outcome  Outcome              `json:"outcome"`
}

// GetRecord returns the member's record for key without persisting anything
func (s *Service) GetRecord(ctx context.Context, memberID uuid.UUID, key models.MonthKey) (models.PaymentRecord, error) {
	m, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return models.PaymentRecord{}, err
	}
	return GetOrInitRecord(m, key), nil
}

// SetPaid marks the month paid or unpaid. Repeating the current value is a
// no-op that writes nothing and sends nothing.
func (s *Service) SetPaid(ctx context.Context, memberID uuid.UUID, key models.MonthKey, isPaid bool, actor string) (Result, error) {
	m, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return Result{}, err
	}
	if !m.IsActive() {
		return Result{}, apperr.ErrMemberInactive
	}

	version := m.Version
	rec, outcome := ApplyPaid(m, key, isPaid, actor, s.now())
	result := Result{MemberID: m.ID, Month: key.String(), Record: rec, Outcome: outcome}
	if outcome == OutcomeNoop {
		metrics.LedgerUpdate("set_paid", string(OutcomeNoop))
		return result, nil
	}

	if err := s.repo.UpdateLedger(ctx, m.ID, m.Payments, version); err != nil {
		metrics.LedgerUpdate("set_paid", "failed")
		return Result{}, err
	}
	metrics.LedgerUpdate("set_paid", string(OutcomeUpdated))

	s.log.WithFields(logrus.Fields{
		"member_id": m.ID,
		"month":     key.String(),
		"is_paid":   isPaid,
		"actor":     actor,
	}).Info("Payment status updated")

	if isPaid {
		s.notify(ctx, notify.KindPaymentConfirmed, m, key, true)
	}
	return result, nil
}

// RecordReminder appends a reminder timestamp to the month, creating an
// unpaid record first if needed, and asks for a reminder to be delivered.
// Paid months are rejected with ErrAlreadyPaid.
func (s *Service) RecordReminder(ctx context.Context, memberID uuid.UUID, key models.MonthKey) (models.PaymentRecord, error) {
	m, err := s.repo.FindByID(ctx, memberID)
	if err != nil {
		return models.PaymentRecord{}, err
	}
	if GetOrInitRecord(m, key).IsPaid {
		metrics.LedgerUpdate("reminder", "rejected")
		return models.PaymentRecord{}, apperr.ErrAlreadyPaid
	}

	version := m.Version
	rec := ApplyReminder(m, key, s.now())
	if err := s.repo.UpdateLedger(ctx, m.ID, m.Payments, version); err != nil {
		metrics.LedgerUpdate("reminder", "failed")
		return models.PaymentRecord{}, err
	}
	metrics.LedgerUpdate("reminder", string(OutcomeUpdated))

	s.notify(ctx, notify.KindPaymentReminder, m, key, rec.IsPaid)
	return rec, nil
}

func (s *Service) notify(ctx context.Context, kind notify.Kind, m *models.Member, key models.MonthKey, isPaid bool) {
	if s.notifier == nil {
		return
	}
	event := notify.Event{
		ID:         uuid.New(),
		Kind:       kind,
		MemberID:   m.ID,
		Name:       m.FullName,
		Phone:      m.PhoneNumber,
		Amount:     m.Amount,
		Month:      key.String(),
		IsPaid:     isPaid,
		Channel:    notify.ChannelWhatsApp,
		OccurredAt: s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		// the ledger write already happened; delivery is best effort
		metrics.Notification(string(kind), "failed")
		s.log.WithError(err).WithField("member_id", m.ID).Warn("Failed to queue rent notification")
		return
	}
	metrics.Notification(string(kind), "queued")
}

// MemberRent is one row of the monthly rental report
type MemberRent struct {
	ID            uuid.UUID            `json:"id"`
	FullName      string               `json:"full_name"`
	PhoneNumber   string               `json:"phone_number"`
	Email         string               `json:"email"`
	RoomNumber    string               `json:"room_number"`
	FloorNumber   inventory.Floor      `json:"floor_number"`
	RoomType      inventory.ShareType  `json:"room_type"`
	ProfileAsset  string               `json:"profile_asset,omitempty"`
	Amount        int64                `json:"amount"`
	Status        models.MemberStatus  `json:"status"`
	PaymentStatus models.PaymentRecord `json:"payment_status"`
}

// Report is the rental view of one month
type Report struct {
	Month      string       `json:"month"`
	Members    []MemberRent `json:"members"`
	Statistics Stats        `json:"statistics"`
}

// MonthlyReport lists active members with their record for key and the
// month's statistics
func (s *Service) MonthlyReport(ctx context.Context, key models.MonthKey) (Report, error) {
	members, err := s.repo.FindActive(ctx)
	if err != nil {
		return Report{}, err
	}

	rows := make([]MemberRent, 0, len(members))
	for i := range members {
		m := &members[i]
		rows = append(rows, MemberRent{
			ID:            m.ID,
			FullName:      m.FullName,
			PhoneNumber:   m.PhoneNumber,
			Email:         m.Email,
			RoomNumber:    m.RoomNumber,
			FloorNumber:   m.FloorNumber,
			RoomType:      m.RoomType,
			ProfileAsset:  m.ProfileAsset,
			Amount:        m.Amount,
			Status:        m.Status,
			PaymentStatus: GetOrInitRecord(m, key),
		})
	}

	return Report{
		Month:      key.String(),
		Members:    rows,
		Statistics: MonthlyStatistics(members, key),
	}, nil
}
