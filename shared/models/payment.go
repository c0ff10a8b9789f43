package models

import "time"

// PaymentRecord is the rent state of one member for one month.
// PaidAt is set iff IsPaid is true.
type PaymentRecord struct {
	IsPaid        bool        `json:"is_paid"`
	PaidAt        *time.Time  `json:"paid_at"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty"`
	UpdatedBy     string      `json:"updated_by,omitempty"`
	RemindersSent []time.Time `json:"reminders_sent"`
}

// Clone returns a deep copy of the record
func (r PaymentRecord) Clone() PaymentRecord {
	cp := r
	if r.PaidAt != nil {
		t := *r.PaidAt
		cp.PaidAt = &t
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		cp.UpdatedAt = &t
	}
	cp.RemindersSent = append([]time.Time(nil), r.RemindersSent...)
	if cp.RemindersSent == nil {
		cp.RemindersSent = []time.Time{}
	}
	return cp
}

// Ledger maps a month to the member's payment record for it
type Ledger map[MonthKey]*PaymentRecord

// Get returns the record for a month, if one was ever written
func (l Ledger) Get(key MonthKey) (*PaymentRecord, bool) {
	if l == nil {
		return nil, false
	}
	rec, ok := l[key]
	return rec, ok && rec != nil
}

// Clone returns a deep copy of the ledger
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	for k, v := range l {
		if v == nil {
			continue
		}
		rec := v.Clone()
		out[k] = &rec
	}
	return out
}
