package dto

import "github.com/noah-isme/muse-ops-api/internal/models"

// CreditSummary is the derived credit state for one enrollment. It is never
// persisted; every refresh recomputes it from payments and attendance.
type CreditSummary struct {
	StudentID         string                  `json:"studentId"`
	BatchID           string                  `json:"batchId"`
	Frequency         models.PaymentFrequency `json:"paymentFrequency"`
	CreditsPurchased  int                     `json:"creditsPurchased"`
	CreditsConsumed   int                     `json:"creditsConsumed"`
	ClassesRemaining  int                     `json:"classesRemaining"`
	IsOverdue         bool                    `json:"isOverdue"`
	LastPaymentDate   *string                 `json:"lastPaymentDate,omitempty"`
	ExpectedStartDate *string                 `json:"expectedStartDate,omitempty"`
}

// StudentLedgerResponse groups the credit summaries of one student.
type StudentLedgerResponse struct {
	StudentID string          `json:"studentId"`
	Summaries []CreditSummary `json:"enrollments"`
}

// RecordPaymentRequest captures POST /payments payload.
type RecordPaymentRequest struct {
	StudentID  string  `json:"studentId" binding:"required" validate:"required"`
	BatchID    string  `json:"batchId" binding:"required" validate:"required"`
	Amount     string  `json:"amount" binding:"required" validate:"required"`
	PaidAt     string  `json:"paidAt" binding:"required" validate:"required"`
	Method     string  `json:"method" binding:"required" validate:"required"`
	Frequency  string  `json:"paymentFrequency" binding:"required" validate:"required"`
	PaymentFor *string `json:"paymentFor,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// UpdatePaymentRequest edits non-financial payment metadata only. Amount and
// frequency are immutable once recorded.
type UpdatePaymentRequest struct {
	PaidAt *string `json:"paidAt,omitempty"`
	Method *string `json:"method,omitempty"`
	Notes  *string `json:"notes,omitempty"`
	// Amount and Frequency are accepted on the wire purely so the service
	// can reject the edit with an explicit immutability error instead of
	// silently dropping the fields.
	Amount    *string `json:"amount,omitempty"`
	Frequency *string `json:"paymentFrequency,omitempty"`
}
