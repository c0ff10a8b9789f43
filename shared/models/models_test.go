package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

func TestParseMonthKey(t *testing.T) {
	k, err := ParseMonthKey("2024-3")
	require.NoError(t, err)
	assert.Equal(t, MonthKey{Year: 2024, Month: time.March}, k)
	assert.Equal(t, "2024-3", k.String())
	assert.Equal(t, "March 2024", k.Label())

	k, err = ParseMonthKey(" 2024-12 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-12", k.String())

	// only the canonical form round-trips, so anything else is rejected
	for _, bad := range []string{"", "2024", "2024-13", "2024-0", "abcd-1", "2019-5", "2051-1", "2024-x",
		"2024-03", "2024-+3", "+2024-3", "02024-3", "2024-3-1"} {
		_, err := ParseMonthKey(bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidMonth, bad)
	}
}

func TestLedgerJSONUsesMonthKeyStrings(t *testing.T) {
	paid := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	ledger := Ledger{
		{Year: 2024, Month: time.March}:    {IsPaid: true, PaidAt: &paid, RemindersSent: []time.Time{}},
		{Year: 2024, Month: time.December}: {IsPaid: false, RemindersSent: []time.Time{}},
	}

	data, err := json.Marshal(ledger)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "2024-3")
	assert.Contains(t, raw, "2024-12")

	var decoded Ledger
	require.NoError(t, json.Unmarshal(data, &decoded))
	rec, ok := decoded.Get(MonthKey{Year: 2024, Month: time.March})
	require.True(t, ok)
	assert.True(t, rec.IsPaid)
	assert.True(t, paid.Equal(*rec.PaidAt))
}

func TestMemberCloneIsDeep(t *testing.T) {
	key := MonthKey{Year: 2024, Month: time.May}
	m := &Member{FullName: "Asha", Payments: Ledger{key: {RemindersSent: []time.Time{time.Now()}}}}

	cp := m.Clone()
	cp.Payments[key].IsPaid = true
	cp.Payments[key].RemindersSent = append(cp.Payments[key].RemindersSent, time.Now())

	assert.False(t, m.Payments[key].IsPaid)
	assert.Len(t, m.Payments[key].RemindersSent, 1)
}
