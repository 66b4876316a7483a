package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthKeyLayout is the canonical encoding for month keys, e.g. "2024-03".
const MonthKeyLayout = "2006-01"

// ParseMonthKey parses a "YYYY-MM" key into the first instant of the month.
func ParseMonthKey(key string) (time.Time, error) {
	return time.Parse(MonthKeyLayout, key)
}

// MonthRange returns the inclusive first and last day of the month that
// contains t, at UTC midnight.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// Expense is a fixed cost recorded against a free-text category.
type Expense struct {
	ID        string          `db:"id" json:"id"`
	Category  string          `db:"category" json:"category"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	SpentOn   time.Time       `db:"spent_on" json:"spent_on"`
	Notes     *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ExpenseFilter scopes expense queries.
type ExpenseFilter struct {
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// Budget is the planning artifact for one month. At most one budget exists
// per month key; later writes replace earlier ones.
type Budget struct {
	Month         string                     `db:"month" json:"month"`
	RevenueTarget decimal.Decimal            `db:"revenue_target" json:"revenue_target"`
	ExpenseLimits map[string]decimal.Decimal `json:"expense_limits"`
	UpdatedAt     time.Time                  `db:"updated_at" json:"updated_at"`
}

// InstrumentFee is the fee schedule for one instrument.
type InstrumentFee struct {
	InstrumentID string          `db:"instrument_id" json:"instrument_id"`
	Monthly      decimal.Decimal `db:"monthly" json:"monthly"`
	Quarterly    decimal.Decimal `db:"quarterly" json:"quarterly"`
}

// ZeroFee is the named fallback applied when an instrument has no fee
// schedule entry. Missing configuration degrades to zero revenue rather
// than failing the computation.
var ZeroFee = InstrumentFee{}

// FeeStructure maps instrument IDs to their fee schedules.
type FeeStructure map[string]InstrumentFee

// Fee returns the schedule for the instrument, or ZeroFee when absent.
func (fs FeeStructure) Fee(instrumentID string) InstrumentFee {
	if fee, ok := fs[instrumentID]; ok {
		fee.InstrumentID = instrumentID
		return fee
	}
	return ZeroFee
}
