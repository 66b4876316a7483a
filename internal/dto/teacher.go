package dto

import "github.com/noah-isme/muse-ops-api/internal/models"

// CreateTeacherRequest captures POST /teachers payload. PayoutRate is a
// decimal string to avoid float drift on the wire.
type CreateTeacherRequest struct {
	FullName   string            `json:"fullName" binding:"required"`
	Email      string            `json:"email" binding:"required,email"`
	Phone      *string           `json:"phone,omitempty"`
	PayoutType models.PayoutType `json:"payoutType" binding:"required"`
	PayoutRate string            `json:"payoutRate" binding:"required"`
}

// UpdateTeacherRequest captures PUT /teachers/:id payload.
type UpdateTeacherRequest struct {
	FullName   string            `json:"fullName" binding:"required"`
	Email      string            `json:"email" binding:"required,email"`
	Phone      *string           `json:"phone,omitempty"`
	PayoutType models.PayoutType `json:"payoutType" binding:"required"`
	PayoutRate string            `json:"payoutRate" binding:"required"`
	Active     *bool             `json:"active,omitempty"`
}
