package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/muse-ops-api/internal/models"
)

// ProjectedPayout is the derived monthly compensation for one teacher. The
// basis fields are structured so callers can assert on the numbers apart
// from the display label.
type ProjectedPayout struct {
	TeacherID  string            `json:"teacherId"`
	Model      models.PayoutType `json:"model"`
	Amount     decimal.Decimal   `json:"amount"`
	BasisCount int               `json:"basisCount"`
	BasisRate  decimal.Decimal   `json:"basisRate"`
	BasisLabel string            `json:"basisLabel"`
}

// TeacherPayoutResponse combines the payout projection with historical
// context for the requested month range.
type TeacherPayoutResponse struct {
	TeacherID        string                     `json:"teacherId"`
	Projected        ProjectedPayout            `json:"projectedPayout"`
	TotalPaid        decimal.Decimal            `json:"totalPaid"`
	MonthlyBreakdown []MonthlyReconciliationRow `json:"monthlyBreakdown"`
}
