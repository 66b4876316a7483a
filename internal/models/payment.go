package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentFrequency identifies the purchased plan attached to a payment or
// enrollment. Unknown values are preserved as FrequencyUnknown rather than
// rejected so that legacy records still render.
type PaymentFrequency string

const (
	FrequencyMonthly    PaymentFrequency = "monthly"
	FrequencyQuarterly  PaymentFrequency = "quarterly"
	FrequencyHalfYearly PaymentFrequency = "half_yearly"
	FrequencyYearly     PaymentFrequency = "yearly"
	FrequencyUnknown    PaymentFrequency = ""
)

// creditsByFrequency maps each plan to the class credits it purchases.
var creditsByFrequency = map[PaymentFrequency]int{
	FrequencyMonthly:    8,
	FrequencyQuarterly:  24,
	FrequencyHalfYearly: 48,
	FrequencyYearly:     96,
}

// Valid reports whether the frequency is one of the supported plans.
func (f PaymentFrequency) Valid() bool {
	_, ok := creditsByFrequency[f]
	return ok
}

// Credits returns the class-credit count the plan purchases. Unknown plans
// purchase zero credits; they never fail.
func (f PaymentFrequency) Credits() int {
	return creditsByFrequency[f]
}

// NormalizeFrequency resolves the first recognisable plan out of a chain of
// raw metadata values. Legacy payment rows spread the plan across several
// fields, so callers pass every candidate and take whichever parses.
func NormalizeFrequency(candidates ...string) PaymentFrequency {
	for _, raw := range candidates {
		f := PaymentFrequency(strings.ToLower(strings.TrimSpace(raw)))
		if f.Valid() {
			return f
		}
	}
	return FrequencyUnknown
}

// Payment is a recorded fee payment by a student for a batch enrollment.
// Amount and Frequency are immutable once written; edits only touch the
// descriptive metadata (date, method, notes).
type Payment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	BatchID    string           `db:"batch_id" json:"batch_id"`
	Amount     decimal.Decimal  `db:"amount" json:"amount"`
	PaidAt     time.Time        `db:"paid_at" json:"paid_at"`
	Method     string           `db:"method" json:"method"`
	Frequency  PaymentFrequency `db:"frequency" json:"frequency"`
	PaymentFor *string          `db:"payment_for" json:"payment_for,omitempty"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Credits returns the class credits this payment purchased.
func (p Payment) Credits() int {
	return p.Frequency.Credits()
}

// PaymentFilter scopes payment listing queries.
type PaymentFilter struct {
	StudentID string
	BatchID   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
