package ledger

import (
	"time"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/models"
)

// Outcome tells callers whether a transition changed anything
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeNoop    Outcome = "no-op"
)

// GetOrInitRecord returns a copy of the member's record for key, or a fresh
// unpaid record. The fresh record is not stored on the member.
func GetOrInitRecord(m *models.Member, key models.MonthKey) models.PaymentRecord {
	if rec, ok := m.Payments.Get(key); ok {
		return rec.Clone()
	}
	return models.PaymentRecord{RemindersSent: []time.Time{}}
}

// ApplyPaid moves the month's record to isPaid. When the record already has
// that value the member is left untouched and OutcomeNoop is returned.
func ApplyPaid(m *models.Member, key models.MonthKey, isPaid bool, actor string, now time.Time) (models.PaymentRecord, Outcome) {
	current := GetOrInitRecord(m, key)
	if current.IsPaid == isPaid {
		return current, OutcomeNoop
	}

	next := current.Clone()
	next.IsPaid = isPaid
	if isPaid {
		paidAt := now
		next.PaidAt = &paidAt
	} else {
		next.PaidAt = nil
	}
	updatedAt := now
	next.UpdatedAt = &updatedAt
	next.UpdatedBy = actor

	store(m, key, next)
	return next.Clone(), OutcomeUpdated
}

// ApplyReminder appends a reminder timestamp, creating an unpaid record for
// the month when none exists
func ApplyReminder(m *models.Member, key models.MonthKey, now time.Time) models.PaymentRecord {
	next := GetOrInitRecord(m, key)
	next.RemindersSent = append(next.RemindersSent, now)
	store(m, key, next)
	return next.Clone()
}

func store(m *models.Member, key models.MonthKey, rec models.PaymentRecord) {
	if m.Payments == nil {
		m.Payments = make(models.Ledger)
	}
	m.Payments[key] = &rec
}

// TypeStats is the per sharing type breakdown of a month
type TypeStats struct {
	Total  int   `json:"total"`
	Paid   int   `json:"paid"`
	Amount int64 `json:"amount"`
}

// Stats aggregates one month of rent over a population of members
type Stats struct {
	Month          string                            `json:"month"`
	TotalMembers   int                               `json:"total_members"`
	TotalAmount    int64                             `json:"total_amount"`
	PaidAmount     int64                             `json:"paid_amount"`
	UnpaidAmount   int64                             `json:"unpaid_amount"`
	PaidMembers    int                               `json:"paid_members"`
	UnpaidMembers  int                               `json:"unpaid_members"`
	CollectionRate float64                           `json:"collection_rate"`
	RoomTypeStats  map[inventory.ShareType]TypeStats `json:"room_type_stats"`
}

// MonthlyStatistics computes rent totals for key over members.
// CollectionRate is PaidAmount/TotalAmount, 0 when nothing is due.
func MonthlyStatistics(members []models.Member, key models.MonthKey) Stats {
	stats := Stats{
		Month:         key.String(),
		TotalMembers:  len(members),
		RoomTypeStats: make(map[inventory.ShareType]TypeStats, len(inventory.ShareTypes)),
	}
	for _, t := range inventory.ShareTypes {
		stats.RoomTypeStats[t] = TypeStats{}
	}

	for i := range members {
		m := &members[i]
		rec, _ := m.Payments.Get(key)
		paid := rec != nil && rec.IsPaid

		stats.TotalAmount += m.Amount
		if paid {
			stats.PaidAmount += m.Amount
			stats.PaidMembers++
		}

		if ts, ok := stats.RoomTypeStats[m.RoomType]; ok {
			ts.Total++
			ts.Amount += m.Amount
			if paid {
				ts.Paid++
			}
			stats.RoomTypeStats[m.RoomType] = ts
		}
	}

	stats.UnpaidAmount = stats.TotalAmount - stats.PaidAmount
	stats.UnpaidMembers = stats.TotalMembers - stats.PaidMembers
	if stats.TotalAmount > 0 {
		stats.CollectionRate = float64(stats.PaidAmount) / float64(stats.TotalAmount)
	}
	return stats
}
