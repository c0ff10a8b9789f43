package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

// Accepted year range for month keys
const (
	MinLedgerYear = 2020
	MaxLedgerYear = 2050
)

// MonthKey addresses one calendar month of a member's payment ledger.
// Its external form is "{year}-{1-based month}", e.g. "2024-3".
type MonthKey struct {
	Year  int
	Month time.Month
}

// NewMonthKey validates year and month
func NewMonthKey(year, month int) (MonthKey, error) {
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: month must be between 1 and 12", apperr.ErrInvalidMonth)
	}
	if year < MinLedgerYear || year > MaxLedgerYear {
		return MonthKey{}, fmt.Errorf("%w: year must be between %d and %d", apperr.ErrInvalidMonth, MinLedgerYear, MaxLedgerYear)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// ParseMonthKey parses the canonical "{year}-{month}" form. Padded or
// signed numbers are rejected so that a parsed key prints back to its input.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	yearPart, monthPart, ok := strings.Cut(s, "-")
	if !ok {
		return MonthKey{}, fmt.Errorf("%w: %q", apperr.ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", apperr.ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", apperr.ErrInvalidMonth, s)
	}
	key, err := NewMonthKey(year, month)
	if err != nil {
		return MonthKey{}, err
	}
	if key.String() != s {
		return MonthKey{}, fmt.Errorf("%w: %q is not in YEAR-MONTH form, e.g. %q", apperr.ErrInvalidMonth, s, key.String())
	}
	return key, nil
}

// MonthKeyOf returns the month containing t
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%d-%d", k.Year, int(k.Month))
}

// Label returns a human readable month, e.g. "March 2024"
func (k MonthKey) Label() string {
	return fmt.Sprintf("%s %d", k.Month.String(), k.Year)
}

func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
